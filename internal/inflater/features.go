package inflater

import (
	"context"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/10gen/data-inflater/mmongo"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ShardingSupport is the result of probing a deployment for sharding.
type ShardingSupport int

const (
	// ShardingUnknown means the probe failed for a reason that says
	// nothing about the deployment, e.g. a network error.
	ShardingUnknown ShardingSupport = iota
	ShardingSupported
	ShardingUnsupported
)

func (s ShardingSupport) String() string {
	switch s {
	case ShardingSupported:
		return "supported"
	case ShardingUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ClassifyEnableShardingResult turns the outcome of `enableSharding` into
// a ShardingSupport. Only errors proving that the deployment lacks
// sharding count as unsupported.
func ClassifyEnableShardingResult(err error) ShardingSupport {
	switch {
	case err == nil:
		return ShardingSupported
	case util.IsShardingUnavailableError(err):
		return ShardingUnsupported
	default:
		return ShardingUnknown
	}
}

// DetectSharding determines whether dbName can hold sharded collections,
// enabling sharding on it if so. It returns an error for
// ShardingUnknown so that a transient failure never silently downgrades
// a run to unsharded mode.
func DetectSharding(
	ctx context.Context,
	logger *logger.Logger,
	client *mongo.Client,
	clusterInfo util.ClusterInfo,
	dbName string,
) (ShardingSupport, error) {
	if clusterInfo.Topology != util.TopologySharded {
		logger.Debug().
			Str("topology", string(clusterInfo.Topology)).
			Msg("Deployment is not sharded.")

		return ShardingUnsupported, nil
	}

	err := client.Database("admin").RunCommand(ctx, bson.D{{"enableSharding", dbName}}).Err()
	support := ClassifyEnableShardingResult(err)

	switch support {
	case ShardingSupported:
		return support, nil
	case ShardingUnsupported:
		logger.Info().
			Err(err).
			Msgf("Database %#q cannot be sharded; all collections will be unsharded.", dbName)

		return support, nil
	}

	if mmongo.ErrorHasCode(err, util.Unauthorized) {
		return support, errors.Wrap(
			err,
			"missing privileges to enable sharding; connect as a user with the `clusterManager` role",
		)
	}

	return support, errors.Wrapf(err, "failed to learn whether %#q can be sharded", dbName)
}
