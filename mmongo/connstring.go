package mmongo

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaybeAddDirectConnection parses the connection string into client
// options and enables a direct connection if:
//   - There is only 1 host.
//   - The connection string lacks parameters that contraindicate a
//     direct connection.
//
// This logic mimics mongosh’s behavior.
func MaybeAddDirectConnection(in string) (bool, *options.ClientOptions, error) {
	opts := options.Client().ApplyURI(in)
	if err := opts.Validate(); err != nil {
		return false, nil, errors.Wrapf(err, "parsing connection string %#q", in)
	}

	var added bool

	switch len(opts.Hosts) {
	case 0:
		return false, nil, fmt.Errorf("connection string has no hosts?? (%#q)", in)
	case 1:
		if opts.ReplicaSet == nil && opts.Direct == nil && opts.LoadBalanced == nil {
			opts.Direct = lo.ToPtr(true)
			added = true
		}
	}

	return added, opts, nil
}
