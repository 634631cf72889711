package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/10gen/data-inflater/contextplus"
	"github.com/10gen/data-inflater/internal/inflater"
	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/samber/lo"
	"github.com/urfave/cli"
	"github.com/urfave/cli/altsrc"
)

const (
	urlFlag         = "url"
	dbFlag          = "db"
	collFlag        = "coll"
	targetFlag      = "target"
	sizeFlag        = "size"
	compressionFlag = "compression"
	shardKeyFlag    = "shardkey"
	dryRunFlag      = "dryRun"
	logPathFlag     = "logPath"
	debugFlag       = "debug"
	configFileFlag  = "configFile"
)

// Short flag names. altsrc only reads a flag’s config-file value by its
// full Name, so these are separate flags rather than aliases.
var shortFlags = map[string]string{
	urlFlag:         "m",
	dbFlag:          "d",
	collFlag:        "c",
	targetFlag:      "t",
	sizeFlag:        "s",
	compressionFlag: "z",
	shardKeyFlag:    "k",
}

const defaultSize = 100_000_000

// Exit status for a run stopped by SIGINT or SIGTERM.
const interruptedExitCode = 130

func main() {
	os.Exit(run())
}

func run() int {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	zerolog.SetGlobalLevel(logger.DefaultLogLevel)

	ctx, cancel := contextplus.WithCancelCause(context.Background())
	defer cancel(nil)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		select {
		case sig := <-signals:
			cancel(fmt.Errorf("received %s (%w)", sig, context.Canceled))
		case <-ctx.Done():
		}
	}()

	flags := []cli.Flag{
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  configFileFlag,
			Usage: "path to an optional YAML config file",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  urlFlag,
			Value: "mongodb://localhost:27017",
			Usage: "MongoDB cluster `URI`",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  dbFlag,
			Value: "sample_mflix",
			Usage: "database `name`",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  collFlag,
			Value: "movies",
			Usage: "source collection `name`",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  targetFlag,
			Value: "movies_big",
			Usage: "target collection `name`",
		}),
		altsrc.NewInt64Flag(cli.Int64Flag{
			Name:  sizeFlag,
			Value: defaultSize,
			Usage: "`number` of documents the target collection should hold",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  compressionFlag,
			Value: string(inflater.CompressionSnappy),
			Usage: "block `compressor` for new collections: snappy, zstd, zlib, or none",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name: shardKeyFlag,
			Usage: "on sharded clusters, comma-separated `fields` of a range shard key for the target " +
				"collection (default is to hash-shard on _id)",
		}),
		altsrc.NewBoolFlag(cli.BoolFlag{
			Name:  dryRunFlag,
			Usage: "create the collections and plan the copies, but copy nothing",
		}),
		altsrc.NewStringFlag(cli.StringFlag{
			Name:  logPathFlag,
			Value: "stdout",
			Usage: "logging file `path`",
		}),
		altsrc.NewBoolFlag(cli.BoolFlag{
			Name:  debugFlag,
			Usage: "Turn on debug logging",
		}),
		cli.StringFlag{Name: shortFlags[urlFlag], Usage: "short for --" + urlFlag},
		cli.StringFlag{Name: shortFlags[dbFlag], Usage: "short for --" + dbFlag},
		cli.StringFlag{Name: shortFlags[collFlag], Usage: "short for --" + collFlag},
		cli.StringFlag{Name: shortFlags[targetFlag], Usage: "short for --" + targetFlag},
		cli.Int64Flag{Name: shortFlags[sizeFlag], Usage: "short for --" + sizeFlag},
		cli.StringFlag{Name: shortFlags[compressionFlag], Usage: "short for --" + compressionFlag},
		cli.StringFlag{Name: shortFlags[shardKeyFlag], Usage: "short for --" + shardKeyFlag},
	}

	app := &cli.App{
		Name: "data-inflater",
		Usage: "inflate a small collection into a much larger one. The new collection’s documents " +
			"duplicate the source’s, each with a new _id, so the variety of the source’s data " +
			"carries over. A source of at least a few hundred distinct documents works best.",
		Flags: flags,
		Before: func(cCtx *cli.Context) error {
			confFile := cCtx.String(configFileFlag)

			if len(confFile) > 0 {
				readConfFunc := altsrc.InitInputSourceWithContext(flags, altsrc.NewYamlSourceFromFlagFunc(configFileFlag))
				return readConfFunc(cCtx)
			}

			return nil
		},
		Action: func(cCtx *cli.Context) error {
			return runInflater(ctx, cCtx)
		},
	}

	err := app.Run(os.Args)
	if err == nil {
		return 0
	}

	if ctx.Err() != nil && util.IsContextCanceledError(err) {
		log.Info().Msgf("Exiting: %v", context.Cause(ctx))
		return interruptedExitCode
	}

	log.Error().Err(err).Stack().Msg("Fatal Error")

	return 1
}

func runInflater(ctx context.Context, cCtx *cli.Context) error {
	req, err := handleArgs(cCtx)
	if err != nil {
		return err
	}

	if cCtx.Bool(debugFlag) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	baseLogger, err := logger.NewForPath(cCtx.String(logPathFlag), zerolog.DebugLevel)
	if err != nil {
		return errors.Wrapf(err, "failed to set up logging to %#q", cCtx.String(logPathFlag))
	}

	runID := uuid.New()
	runLogger := logger.NewSubLogger(baseLogger, "runID", runID.String())

	connector, err := inflater.NewConnector(stringFlag(cCtx, urlFlag), runID)
	if err != nil {
		return err
	}

	client, err := connector.Connect(ctx, "metadata")
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	settings := inflater.DefaultSettings()
	settings.DryRun = cCtx.Bool(dryRunFlag)

	result, err := inflater.NewInflater(runLogger, client, connector, settings, os.Stdout).Run(ctx, req)
	if err != nil {
		return err
	}

	runLogger.Info().
		Stringer("result", result).
		Msg("Inflation complete.")

	return nil
}

// handleArgs builds the request and checks it before anything connects.
func handleArgs(cCtx *cli.Context) (inflater.Request, error) {
	compression, err := inflater.ParseCompression(stringFlag(cCtx, compressionFlag))
	if err != nil {
		return inflater.Request{}, err
	}

	size := cCtx.Int64(sizeFlag)
	if cCtx.IsSet(shortFlags[sizeFlag]) {
		size = cCtx.Int64(shortFlags[sizeFlag])
	}

	req := inflater.Request{
		DBName:         stringFlag(cCtx, dbFlag),
		SourceColl:     stringFlag(cCtx, collFlag),
		TargetColl:     stringFlag(cCtx, targetFlag),
		TargetSize:     size,
		Compression:    compression,
		ShardKeyFields: splitShardKey(stringFlag(cCtx, shardKeyFlag)),
	}

	return req, req.Validate()
}

// stringFlag returns a string flag’s value, preferring its short form if
// that was given.
func stringFlag(cCtx *cli.Context, name string) string {
	if short, has := shortFlags[name]; has && cCtx.IsSet(short) {
		return cCtx.String(short)
	}

	return cCtx.String(name)
}

func splitShardKey(in string) []string {
	fields := lo.Map(strings.Split(in, ","), func(field string, _ int) string {
		return strings.TrimSpace(field)
	})

	return lo.Compact(fields)
}
