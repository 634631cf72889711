package util

import (
	"context"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ClusterTopology string

const (
	TopologySharded ClusterTopology = "sharded"
	TopologyReplset ClusterTopology = "replset"
)

// ClusterInfo describes the deployment the inflater is connected to.
type ClusterInfo struct {
	VersionArray []int
	Topology     ClusterTopology
}

// GetClusterInfo learns the server version and whether the client is
// connected through a mongos.
func GetClusterInfo(ctx context.Context, logger *logger.Logger, client *mongo.Client) (ClusterInfo, error) {
	va, err := getVersionArray(ctx, client)
	if err != nil {
		return ClusterInfo{}, errors.Wrap(err, "failed to fetch version array")
	}

	topology, err := getTopology(ctx, "hello", client)
	if err != nil {
		logger.Info().
			Err(err).
			Msgf("Failed to learn topology via %#q; falling back to %#q.", "hello", "isMaster")

		topology, err = getTopology(ctx, "isMaster", client)
		if err != nil {
			return ClusterInfo{}, errors.Wrapf(err, "failed to learn topology via %#q", "isMaster")
		}
	}

	return ClusterInfo{
		VersionArray: va,
		Topology:     topology,
	}, nil
}

func getVersionArray(ctx context.Context, client *mongo.Client) ([]int, error) {
	var resp struct {
		VersionArray []int `bson:"versionArray"`
	}

	err := client.Database("admin").RunCommand(ctx, bson.D{{"buildinfo", 1}}).Decode(&resp)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run %#q", "buildinfo")
	}

	return resp.VersionArray, nil
}

func getTopology(ctx context.Context, cmdName string, client *mongo.Client) (ClusterTopology, error) {
	raw, err := client.Database("admin").RunCommand(ctx, bson.D{{cmdName, 1}}).Raw()
	if err != nil {
		return "", errors.Wrapf(err, "failed to learn topology via %#q", cmdName)
	}

	return TopologyFromHello(raw), nil
}

// TopologyFromHello classifies a `hello`/`isMaster` response. Only a mongos
// includes `msg: "isdbgrid"`.
func TopologyFromHello(resp bson.Raw) ClusterTopology {
	msg, isStr := resp.Lookup("msg").StringValueOK()

	return lo.Ternary(isStr && msg == "isdbgrid", TopologySharded, TopologyReplset)
}
