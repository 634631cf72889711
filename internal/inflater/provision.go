package inflater

import (
	"context"
	"fmt"
	"strings"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PartitionStrategy is how a collection is sharded.
type PartitionStrategy string

const (
	PartitionNone   PartitionStrategy = "unsharded"
	PartitionHashed PartitionStrategy = "hashed"
	PartitionRange  PartitionStrategy = "range"
)

// CollectionDescriptor records how a collection was provisioned.
type CollectionDescriptor struct {
	Name        string
	Compression Compression
	Strategy    PartitionStrategy
	KeyFields   []string
	SplitPoints []bson.RawValue
}

// IsPreSplitRange indicates whether the collection has range chunks that
// the balancer must distribute before bulk loading.
func (cd CollectionDescriptor) IsPreSplitRange() bool {
	return cd.Strategy == PartitionRange && len(cd.SplitPoints) > 0
}

// CollectionRequest describes a collection to provision.
type CollectionRequest struct {
	Name         string
	Compression  Compression
	KeyFields    []string
	SplitPoints  []bson.RawValue
	IntendedSize int64

	// IsFinal marks the user-facing target collection, which is always
	// sharded on a sharded deployment.
	IsFinal bool
}

// ChooseStrategy decides how to shard a collection. Small intermediate
// collections stay unsharded.
func ChooseStrategy(
	shardingSupported bool,
	isFinal bool,
	intendedSize int64,
	threshold int64,
	keyFields []string,
) PartitionStrategy {
	if !shardingSupported || !(isFinal || intendedSize >= threshold) {
		return PartitionNone
	}

	return lo.Ternary(len(keyFields) > 0, PartitionRange, PartitionHashed)
}

// Provisioner creates (and shards) collections in one database.
type Provisioner struct {
	logger            *logger.Logger
	db                *mongo.Database
	settings          Settings
	shardingSupported bool
}

// NewProvisioner returns a Provisioner for db.
func NewProvisioner(
	logger *logger.Logger,
	db *mongo.Database,
	settings Settings,
	sharding ShardingSupport,
) *Provisioner {
	return &Provisioner{
		logger:            logger,
		db:                db,
		settings:          settings,
		shardingSupported: sharding == ShardingSupported,
	}
}

// Create drops any existing collection of the requested name, then creates
// it with the requested compression and shards it if appropriate.
func (p *Provisioner) Create(ctx context.Context, req CollectionRequest) (CollectionDescriptor, error) {
	if err := dropCollection(ctx, p.logger, p.db.Collection(req.Name)); err != nil {
		return CollectionDescriptor{}, err
	}

	createOpts := options.CreateCollection().SetStorageEngine(bson.D{
		{"wiredTiger", bson.D{
			{"configString", "block_compressor=" + string(req.Compression)},
		}},
	})

	if err := p.db.CreateCollection(ctx, req.Name, createOpts); err != nil {
		return CollectionDescriptor{}, errors.Wrapf(
			err,
			"failed to create %#q with %#q compression",
			p.fullName(req.Name),
			req.Compression,
		)
	}

	desc := CollectionDescriptor{
		Name:        req.Name,
		Compression: req.Compression,
		Strategy: ChooseStrategy(
			p.shardingSupported,
			req.IsFinal,
			req.IntendedSize,
			p.settings.LargeCollectionThreshold,
			req.KeyFields,
		),
	}

	switch desc.Strategy {
	case PartitionRange:
		desc.KeyFields = req.KeyFields
		desc.SplitPoints = req.SplitPoints

		if err := p.shardByRange(ctx, desc); err != nil {
			return CollectionDescriptor{}, err
		}
	case PartitionHashed:
		desc.KeyFields = []string{"_id"}

		if err := p.shardByHashedID(ctx, desc.Name); err != nil {
			return CollectionDescriptor{}, err
		}
	}

	p.logger.Info().
		Str("collection", desc.Name).
		Str("compression", string(desc.Compression)).
		Str("sharding", describeSharding(desc)).
		Msg("Created collection.")

	return desc, nil
}

func (p *Provisioner) shardByRange(ctx context.Context, desc CollectionDescriptor) error {
	ns := p.fullName(desc.Name)

	key := lo.Map(desc.KeyFields, func(field string, _ int) bson.E {
		return bson.E{Key: field, Value: 1}
	})

	err := p.runAdminCommand(ctx, bson.D{
		{"shardCollection", ns},
		{"key", bson.D(key)},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to shard %#q by range on %v", ns, desc.KeyFields)
	}

	for i, point := range desc.SplitPoints {
		err := p.runAdminCommand(ctx, bson.D{
			{"split", ns},
			{"middle", SplitMiddle(desc.KeyFields, point)},
		})
		if err != nil {
			return errors.Wrapf(
				err,
				"failed to split %#q at point %d of %d (%s)",
				ns,
				1+i,
				len(desc.SplitPoints),
				point,
			)
		}
	}

	p.logger.Debug().
		Str("namespace", ns).
		Int("splitPoints", len(desc.SplitPoints)).
		Msg("Pre-split range-sharded collection.")

	return nil
}

func (p *Provisioner) shardByHashedID(ctx context.Context, collName string) error {
	ns := p.fullName(collName)

	err := p.runAdminCommand(ctx, bson.D{
		{"shardCollection", ns},
		{"key", bson.D{{"_id", "hashed"}}},
		{"numInitialChunks", p.settings.HashedInitialChunks},
	})

	return errors.Wrapf(err, "failed to shard %#q by hashed %#q", ns, "_id")
}

func (p *Provisioner) runAdminCommand(ctx context.Context, cmd bson.D) error {
	return p.db.Client().Database("admin").RunCommand(ctx, cmd).Err()
}

func (p *Provisioner) fullName(collName string) string {
	return p.db.Name() + "." + collName
}

// SplitMiddle builds a `split` command’s `middle` document: the split
// point on the first key field, then MaxKey on every other field.
func SplitMiddle(keyFields []string, point bson.RawValue) bson.D {
	middle := make(bson.D, 0, len(keyFields))

	for i, field := range keyFields {
		middle = append(middle, bson.E{
			Key:   field,
			Value: lo.Ternary[any](i == 0, point, primitive.MaxKey{}),
		})
	}

	return middle
}

func describeSharding(desc CollectionDescriptor) string {
	switch desc.Strategy {
	case PartitionRange:
		return fmt.Sprintf(
			"range on %s (%s)",
			strings.Join(desc.KeyFields, ","),
			lo.Ternary(len(desc.SplitPoints) > 0, fmt.Sprintf("pre-split at %d points", len(desc.SplitPoints)), "not pre-split"),
		)
	case PartitionHashed:
		return "hashed on _id (pre-split)"
	default:
		return string(PartitionNone)
	}
}

func dropCollection(ctx context.Context, logger *logger.Logger, coll *mongo.Collection) error {
	logger.Debug().
		Str("namespace", util.FullName(coll)).
		Msg("Dropping collection if it exists.")

	if err := coll.Drop(ctx); err != nil && !util.IsNamespaceNotFoundError(err) {
		return errors.Wrapf(err, "failed to drop %#q", util.FullName(coll))
	}

	return nil
}
