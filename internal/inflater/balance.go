package inflater

import (
	"context"
	"time"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/retry"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/10gen/data-inflater/mmongo"
	"github.com/10gen/data-inflater/mtime"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ChunkDistribution maps shard IDs to how many of a collection’s chunks
// each shard owns.
type ChunkDistribution map[string]int64

// Difference returns the chunk count of the most-loaded shard minus that
// of the least-loaded one. An empty distribution has no difference.
func (cd ChunkDistribution) Difference() int64 {
	if len(cd) == 0 {
		return 0
	}

	counts := lo.Values(cd)

	return lo.Max(counts) - lo.Min(counts)
}

// ChunkCountReader reads a collection’s current chunk distribution.
type ChunkCountReader interface {
	ReadChunkCounts(ctx context.Context) (ChunkDistribution, error)
}

type balanceStateKind int

const (
	balancePolling balanceStateKind = iota
	balanceConverging
	balanceConverged
	balanceTimedOut
)

func (k balanceStateKind) String() string {
	return [...]string{"polling", "converging", "converged", "timed out"}[k]
}

func (k balanceStateKind) isTerminal() bool {
	return k == balanceConverged || k == balanceTimedOut
}

type balanceState struct {
	kind           balanceStateKind
	settleAttempts int
	lastDifference int64
	polls          int
}

// nextBalanceState applies one chunk-count reading to the state.
//
// A reading within tolerance converges unless the difference is still 2 or
// more, in which case up to SettleAttempts further polls give the balancer
// a chance to even things out. A reading over tolerance times out once the
// budget is spent.
func nextBalanceState(
	state balanceState,
	difference int64,
	elapsed time.Duration,
	settings BalanceSettings,
) balanceState {
	if state.kind.isTerminal() {
		return state
	}

	state.polls++
	state.lastDifference = difference

	budgetSpent := elapsed >= settings.MaxWait

	switch {
	case difference <= settings.MaxChunkDifference:
		if difference >= 2 && state.settleAttempts < settings.SettleAttempts && !budgetSpent {
			state.kind = balanceConverging
			state.settleAttempts++
		} else {
			state.kind = balanceConverged
		}
	case budgetSpent:
		state.kind = balanceTimedOut
	default:
		state.kind = balancePolling
	}

	return state
}

// BalanceOutcome summarizes a finished wait.
type BalanceOutcome struct {
	TimedOut       bool
	LastDifference int64
	Polls          int
	Elapsed        time.Duration
}

// BalanceWaiter polls a collection’s chunk distribution until it is
// balanced or the wait budget runs out.
type BalanceWaiter struct {
	logger   *logger.Logger
	reader   ChunkCountReader
	settings BalanceSettings
	clock    mtime.Clock
}

func NewBalanceWaiter(
	logger *logger.Logger,
	reader ChunkCountReader,
	settings BalanceSettings,
	clock mtime.Clock,
) *BalanceWaiter {
	return &BalanceWaiter{
		logger:   logger,
		reader:   reader,
		settings: settings,
		clock:    clock,
	}
}

// Wait blocks until the chunks are balanced or the budget is spent. A
// timeout is not an error; the caller gets TimedOut in the outcome.
func (bw *BalanceWaiter) Wait(ctx context.Context) (BalanceOutcome, error) {
	start := bw.clock.Now()
	state := balanceState{kind: balancePolling}

	for {
		dist, err := bw.reader.ReadChunkCounts(ctx)
		if err != nil {
			return BalanceOutcome{}, errors.Wrap(err, "failed to read chunk distribution")
		}

		elapsed := bw.clock.Now().Sub(start)
		state = nextBalanceState(state, dist.Difference(), elapsed, bw.settings)

		bw.logger.Debug().
			Stringer("state", state.kind).
			Int("shards", len(dist)).
			Int64("difference", state.lastDifference).
			Int("settleAttempts", state.settleAttempts).
			Stringer("elapsed", elapsed).
			Msg("Polled chunk distribution.")

		if state.kind.isTerminal() {
			return BalanceOutcome{
				TimedOut:       state.kind == balanceTimedOut,
				LastDifference: state.lastDifference,
				Polls:          state.polls,
				Elapsed:        elapsed,
			}, nil
		}

		if state.polls == 1 {
			bw.logger.Info().
				Int64("difference", state.lastDifference).
				Int64("tolerance", bw.settings.MaxChunkDifference).
				Msg("Waiting for pre-split chunks to balance across shards.")
		}

		if err := bw.clock.Sleep(ctx, bw.settings.PollInterval); err != nil {
			return BalanceOutcome{}, errors.Wrap(err, "interrupted while waiting for chunks to balance")
		}
	}
}

type shardChunkCount struct {
	Shard       string `bson:"_id"`
	ChunksCount int64  `bson:"chunksCount"`
}

// configChunkCountReader reads chunk counts from the config database.
type configChunkCountReader struct {
	logger  *logger.Logger
	client  *mongo.Client
	ns      string
	byUUID  bool
	uuid    mo.Option[primitive.Binary]
	retryer *retry.Retryer
}

var _ ChunkCountReader = &configChunkCountReader{}

// NewConfigChunkCountReader returns a ChunkCountReader for the collection
// dbName.collName. Servers before 5.0 key config.chunks by namespace;
// later ones key it by collection UUID.
func NewConfigChunkCountReader(
	logger *logger.Logger,
	client *mongo.Client,
	clusterInfo util.ClusterInfo,
	dbName, collName string,
) ChunkCountReader {
	ns := dbName + "." + collName

	return &configChunkCountReader{
		logger:  logger,
		client:  client,
		ns:      ns,
		byUUID:  mmongo.ChunksAreKeyedByUUID(clusterInfo.VersionArray),
		retryer: retry.New(retry.DefaultDurationLimit).WithDescription("reading %#q’s chunk distribution", ns),
	}
}

func (r *configChunkCountReader) ReadChunkCounts(ctx context.Context) (ChunkDistribution, error) {
	var dist ChunkDistribution

	err := r.retryer.Run(ctx, r.logger, func(ctx context.Context, fi *retry.FuncInfo) error {
		filter, err := r.chunksFilter(ctx)
		if err != nil {
			return err
		}

		fi.NoteSuccess()

		cursor, err := r.client.Database("config").Collection("chunks").Aggregate(ctx, mongo.Pipeline{
			{{"$match", filter}},
			{{"$group", bson.D{
				{"_id", "$shard"},
				{"chunksCount", bson.D{{"$sum", 1}}},
			}}},
		})
		if err != nil {
			return errors.Wrap(err, "failed to aggregate config.chunks")
		}

		var counts []shardChunkCount
		if err := cursor.All(ctx, &counts); err != nil {
			return errors.Wrap(err, "failed to read per-shard chunk counts")
		}

		dist = lo.SliceToMap(counts, func(c shardChunkCount) (string, int64) {
			return c.Shard, c.ChunksCount
		})

		return nil
	})

	return dist, err
}

func (r *configChunkCountReader) chunksFilter(ctx context.Context) (bson.D, error) {
	if !r.byUUID {
		return bson.D{{"ns", r.ns}}, nil
	}

	if uuid, has := r.uuid.Get(); has {
		return bson.D{{"uuid", uuid}}, nil
	}

	var collDoc struct {
		UUID primitive.Binary `bson:"uuid"`
	}

	err := r.client.Database("config").Collection("collections").
		FindOne(ctx, bson.D{{"_id", r.ns}}).
		Decode(&collDoc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find %#q in config.collections", r.ns)
	}

	r.uuid = mo.Some(collDoc.UUID)

	return bson.D{{"uuid", collDoc.UUID}}, nil
}
