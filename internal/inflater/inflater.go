package inflater

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/reportutils"
	"github.com/10gen/data-inflater/internal/retry"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/10gen/data-inflater/mmongo"
	"github.com/10gen/data-inflater/mtime"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Request describes one inflation: which collection to grow, into what,
// and how large.
type Request struct {
	DBName         string
	SourceColl     string
	TargetColl     string
	TargetSize     int64
	Compression    Compression
	ShardKeyFields []string
}

// Validate checks the request for errors that need no server to detect.
func (r Request) Validate() error {
	if r.TargetSize < 1 {
		return errors.Wrapf(ErrInvalidSize, "got %d", r.TargetSize)
	}

	for _, name := range []lo.Tuple2[string, string]{
		{A: "database", B: r.DBName},
		{A: "source collection", B: r.SourceColl},
		{A: "target collection", B: r.TargetColl},
	} {
		if name.B == "" {
			return errors.Wrap(ErrMissingName, name.A)
		}
	}

	if _, err := ParseCompression(string(r.Compression)); err != nil {
		return err
	}

	if r.TargetColl == r.SourceColl || isStageCollectionName(r.SourceColl, r.TargetColl) {
		return errors.Wrapf(
			ErrNameCollision,
			"target %#q must differ from source %#q and from the %#q stage collections",
			r.TargetColl,
			r.SourceColl,
			StageCollectionName(r.SourceColl, 0),
		)
	}

	for _, field := range r.ShardKeyFields {
		if field == "" {
			return errors.Wrapf(ErrMissingName, "shard key fields %v", r.ShardKeyFields)
		}
	}

	return nil
}

// isStageCollectionName indicates whether name is one of the stage
// collection names derived from sourceName.
func isStageCollectionName(sourceName, name string) bool {
	suffix, isStageLike := strings.CutPrefix(name, sourceName+"_")
	if !isStageLike {
		return false
	}

	stage, err := strconv.Atoi(suffix)

	return err == nil && stage >= 0 && StageCollectionName(sourceName, stage) == name
}

// Result describes a finished run.
type Result struct {
	Plan               Plan
	Sharding           ShardingSupport
	Target             CollectionDescriptor
	Balance            mo.Option[BalanceOutcome]
	DroppedCollections []string
	SourceStats        CollectionStats
	TargetStats        CollectionStats
	Elapsed            time.Duration
}

// Inflater grows a small collection into a large one, an order of
// magnitude at a time.
type Inflater struct {
	logger    *logger.Logger
	client    *mongo.Client
	connector *Connector
	settings  Settings

	// writer receives the batch progress markers and the summary.
	writer io.Writer
}

// NewInflater returns an Inflater. client serves the inflater’s own
// metadata and DDL work; batch workers each connect anew via connector.
func NewInflater(
	logger *logger.Logger,
	client *mongo.Client,
	connector *Connector,
	settings Settings,
	writer io.Writer,
) *Inflater {
	return &Inflater{
		logger:    logger,
		client:    client,
		connector: connector,
		settings:  settings,
		writer:    lo.Ternary[io.Writer](writer == nil, io.Discard, writer),
	}
}

// Run performs the inflation that req describes.
func (inf *Inflater) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	db := inf.client.Database(req.DBName)

	inf.logger.Info().
		Str("source", req.DBName+"."+req.SourceColl).
		Str("target", req.DBName+"."+req.TargetColl).
		Str("targetSize", reportutils.FmtCount(req.TargetSize)).
		Str("compression", string(req.Compression)).
		Strs("shardKey", req.ShardKeyFields).
		Bool("dryRun", inf.settings.DryRun).
		Msg("Starting inflation.")

	sourceSize, err := inf.countSource(ctx, db.Collection(req.SourceColl))
	if err != nil {
		return Result{}, err
	}

	clusterInfo, err := util.GetClusterInfo(ctx, inf.logger, inf.client)
	if err != nil {
		return Result{}, err
	}

	if err := mmongo.WhyMergeIsUnavailable(clusterInfo.VersionArray); err != nil {
		return Result{}, err
	}

	sharding, err := DetectSharding(ctx, inf.logger, inf.client, clusterInfo, req.DBName)
	if err != nil {
		return Result{}, err
	}

	var splitPoints []bson.RawValue
	if sharding == ShardingSupported && len(req.ShardKeyFields) > 0 {
		splitPoints, err = AnalyzeSplitPoints(
			ctx,
			db.Collection(req.SourceColl),
			req.ShardKeyFields,
			inf.settings.SplitPointsTarget,
		)
		if err != nil {
			return Result{}, err
		}

		inf.logger.Info().
			Str("field", req.ShardKeyFields[0]).
			Int("splitPoints", len(splitPoints)).
			Msg("Computed range split points.")
	}

	provisioner := NewProvisioner(inf.logger, db, inf.settings, sharding)

	// The final collection is created first so that the balancer has the
	// whole inflation to spread its pre-split chunks.
	target, err := provisioner.Create(ctx, CollectionRequest{
		Name:         req.TargetColl,
		Compression:  req.Compression,
		KeyFields:    req.ShardKeyFields,
		SplitPoints:  splitPoints,
		IntendedSize: req.TargetSize,
		IsFinal:      true,
	})
	if err != nil {
		return Result{}, err
	}

	plan := NewPlan(sourceSize, req.TargetSize)

	inf.logger.Info().
		Str("sourceSize", reportutils.FmtCount(plan.SourceSize)).
		Int("stages", plan.Magnitudes).
		Msg("Planned intermediate stages.")

	tempColls := mapset.NewSet[string]()
	srcColl := req.SourceColl
	srcSize := sourceSize

	for stage, stageSize := range plan.StageSizes {
		stageColl := StageCollectionName(req.SourceColl, stage)

		_, err := provisioner.Create(ctx, CollectionRequest{
			Name:         stageColl,
			Compression:  req.Compression,
			KeyFields:    req.ShardKeyFields,
			SplitPoints:  splitPoints,
			IntendedSize: stageSize,
		})
		if err != nil {
			return Result{}, err
		}

		if err := inf.expand(ctx, req.DBName, srcColl, srcSize, stageColl, stageSize); err != nil {
			return Result{}, errors.Wrapf(err, "stage %d of %d failed", 1+stage, plan.Magnitudes)
		}

		tempColls.Add(srcColl)
		srcColl = stageColl
		srcSize = stageSize
	}

	result := Result{
		Plan:     plan,
		Sharding: sharding,
		Target:   target,
	}

	if target.IsPreSplitRange() {
		waiter := NewBalanceWaiter(
			logger.NewSubLogger(inf.logger, "component", "balanceWaiter"),
			NewConfigChunkCountReader(inf.logger, inf.client, clusterInfo, req.DBName, req.TargetColl),
			inf.settings.Balance,
			mtime.RealClock{},
		)

		outcome, err := waiter.Wait(ctx)
		if err != nil {
			return Result{}, err
		}

		result.Balance = mo.Some(outcome)

		if outcome.TimedOut {
			inf.logger.Warn().
				Int64("difference", outcome.LastDifference).
				Stringer("waited", outcome.Elapsed).
				Msg("Chunks are still unbalanced after the maximum wait. Cluster performance may suffer until the balancer catches up.")
		} else {
			inf.logger.Info().
				Int64("difference", outcome.LastDifference).
				Int("polls", outcome.Polls).
				Msg("Pre-split chunks are balanced.")
		}
	}

	if err := inf.expand(ctx, req.DBName, srcColl, srcSize, req.TargetColl, req.TargetSize); err != nil {
		return Result{}, errors.Wrap(err, "final copy failed")
	}

	tempColls.Add(srcColl)

	result.Elapsed = time.Since(start)

	inf.logger.Info().
		Str("elapsed", reportutils.DurationToHMS(result.Elapsed)).
		Msg("Finished copying.")

	result.SourceStats, result.TargetStats, err = inf.summarize(ctx, db, req, result.Elapsed)
	if err != nil {
		return Result{}, err
	}

	// The source must survive even if its name matches a stage’s.
	tempColls.Remove(req.SourceColl)

	if inf.settings.DryRun {
		inf.logger.Info().
			Int("count", tempColls.Cardinality()).
			Msg("Dry run: leaving temporary collections in place.")

		return result, nil
	}

	result.DroppedCollections = tempColls.ToSlice()
	sort.Strings(result.DroppedCollections)

	for _, collName := range result.DroppedCollections {
		if err := dropCollection(ctx, inf.logger, db.Collection(collName)); err != nil {
			return Result{}, err
		}
	}

	inf.logger.Info().
		Strs("dropped", result.DroppedCollections).
		Msg("Removed temporary collections.")

	return result, nil
}

func (inf *Inflater) countSource(ctx context.Context, coll *mongo.Collection) (int64, error) {
	var count int64

	err := retry.New(retry.DefaultDurationLimit).
		WithDescription("counting %#q’s documents", util.FullName(coll)).
		Run(ctx, inf.logger, func(ctx context.Context, _ *retry.FuncInfo) error {
			var err error
			count, err = coll.CountDocuments(ctx, bson.D{})
			return err
		})
	if err != nil {
		return 0, err
	}

	if count < 1 {
		return 0, errors.Wrapf(ErrEmptySource, "%#q has no documents", util.FullName(coll))
	}

	return count, nil
}

// expand fills dst with dstSize documents copied from src, which holds
// srcSize documents.
func (inf *Inflater) expand(
	ctx context.Context,
	dbName string,
	src string,
	srcSize int64,
	dst string,
	dstSize int64,
) error {
	sizes := BatchSizes(srcSize, dstSize)

	inf.logger.Info().
		Str("source", src).
		Str("sourceSize", reportutils.FmtCount(srcSize)).
		Str("target", dst).
		Str("targetSize", reportutils.FmtCount(dstSize)).
		Int("batches", len(sizes)).
		Msg("Copying.")

	if inf.settings.DryRun {
		return nil
	}

	_, _ = io.WriteString(inf.writer, "  |-> ")
	defer func() {
		_, _ = io.WriteString(inf.writer, "\n")
	}()

	return DispatchBatches(
		ctx,
		logger.NewSubLogger(inf.logger, "target", dst),
		sizes,
		CopyWorker(inf.connector, dbName, src, dst),
		inf.writer,
	)
}

func (inf *Inflater) summarize(
	ctx context.Context,
	db *mongo.Database,
	req Request,
	elapsed time.Duration,
) (CollectionStats, CollectionStats, error) {
	sourceStats, err := GetCollectionStats(ctx, inf.logger, db.Collection(req.SourceColl))
	if err != nil {
		return CollectionStats{}, CollectionStats{}, err
	}

	targetStats, err := GetCollectionStats(ctx, inf.logger, db.Collection(req.TargetColl))
	if err != nil {
		return CollectionStats{}, CollectionStats{}, err
	}

	builder := &strings.Builder{}
	RenderSummary(builder, sourceStats, targetStats, req.Compression, elapsed)

	if _, err := io.WriteString(inf.writer, builder.String()); err != nil {
		return CollectionStats{}, CollectionStats{}, errors.Wrap(err, "failed to write summary")
	}

	return sourceStats, targetStats, nil
}

func (r Result) String() string {
	return fmt.Sprintf(
		"%d stage(s), sharding %s, target %s",
		r.Plan.Magnitudes,
		r.Sharding,
		describeSharding(r.Target),
	)
}
