package inflater

// This file gathers and renders the statistics that contrast the source
// collection with the inflated target.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/reportutils"
	"github.com/10gen/data-inflater/internal/retry"
	"github.com/10gen/data-inflater/internal/types"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/samber/mo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	dividerChar  = "━" // horizontal dash
	dividerWidth = 76
)

// CollectionStats holds the parts of `collStats` that the summary shows,
// plus an exact document count.
type CollectionStats struct {
	Name           string
	Sharded        bool
	AvgObjSize     float64
	DocCount       types.DocumentCount
	Size           types.ByteCount
	TotalIndexSize types.ByteCount
	StorageSize    types.ByteCount

	// totalSize is absent before 4.4.
	TotalSize mo.Option[types.ByteCount]
}

// DataSize is the uncompressed document size plus the index size.
func (cs CollectionStats) DataSize() types.ByteCount {
	return cs.Size + cs.TotalIndexSize
}

// StoredSize is the compressed on-disk size of documents and indexes.
func (cs CollectionStats) StoredSize() types.ByteCount {
	return cs.TotalSize.OrElse(cs.StorageSize + cs.TotalIndexSize)
}

// GetCollectionStats fetches a collection’s statistics, retrying on
// transient errors.
func GetCollectionStats(
	ctx context.Context,
	logger *logger.Logger,
	coll *mongo.Collection,
) (CollectionStats, error) {
	stats := CollectionStats{Name: coll.Name()}

	err := retry.New(retry.DefaultDurationLimit).
		WithDescription("fetching %#q’s statistics", coll.Name()).
		Run(ctx, logger, func(ctx context.Context, fi *retry.FuncInfo) error {
			var resp struct {
				Sharded        bool     `bson:"sharded"`
				AvgObjSize     float64  `bson:"avgObjSize"`
				Size           int64    `bson:"size"`
				TotalIndexSize int64    `bson:"totalIndexSize"`
				StorageSize    int64    `bson:"storageSize"`
				TotalSize      *float64 `bson:"totalSize"`
			}

			err := coll.Database().RunCommand(ctx, bson.D{{"collStats", coll.Name()}}).Decode(&resp)
			if err != nil {
				return errors.Wrap(err, "failed to run collStats")
			}

			fi.NoteSuccess()

			count, err := coll.CountDocuments(ctx, bson.D{})
			if err != nil {
				return errors.Wrap(err, "failed to count documents")
			}

			stats.Sharded = resp.Sharded
			stats.AvgObjSize = resp.AvgObjSize
			stats.DocCount = types.DocumentCount(count)
			stats.Size = types.ByteCount(resp.Size)
			stats.TotalIndexSize = types.ByteCount(resp.TotalIndexSize)
			stats.StorageSize = types.ByteCount(resp.StorageSize)
			if resp.TotalSize != nil {
				stats.TotalSize = mo.Some(types.ByteCount(*resp.TotalSize))
			}

			return nil
		})

	return stats, err
}

// RenderSummary writes a table that contrasts the source and target
// collections’ statistics.
func RenderSummary(
	builder *strings.Builder,
	source, target CollectionStats,
	compression Compression,
	elapsed time.Duration,
) {
	timestampAndSpace := time.Now().Format(logger.TimeFormat) + " "
	builder.WriteString(fmt.Sprintf(
		"\n%s%s\n\n",
		timestampAndSpace,
		strings.Repeat(dividerChar, dividerWidth-len(timestampAndSpace)),
	))

	builder.WriteString(fmt.Sprintf(
		"Inflation finished in %s (compression: %s)\n\n",
		reportutils.DurationToHMS(elapsed),
		compression,
	))

	table := tablewriter.NewWriter(builder)
	table.SetHeader([]string{"Statistic", "Source", "Target"})

	rows := []struct {
		label string
		value func(CollectionStats) string
	}{
		{"Collection", func(cs CollectionStats) string { return cs.Name }},
		{"Sharded", func(cs CollectionStats) string { return fmt.Sprintf("%t", cs.Sharded) }},
		{"Average object size", func(cs CollectionStats) string { return reportutils.FmtBytes(int64(cs.AvgObjSize)) }},
		{"Documents", func(cs CollectionStats) string { return reportutils.FmtCount(cs.DocCount) }},
		{"Documents size (uncompressed)", func(cs CollectionStats) string { return reportutils.FmtBytes(cs.Size) }},
		{"Index size", func(cs CollectionStats) string { return reportutils.FmtBytes(cs.TotalIndexSize) }},
		{"Data size (index + uncompressed docs)", func(cs CollectionStats) string { return reportutils.FmtBytes(cs.DataSize()) }},
		{"Stored size (compressed)", func(cs CollectionStats) string { return reportutils.FmtBytes(cs.StoredSize()) }},
	}

	for _, row := range rows {
		table.Append([]string{row.label, row.value(source), row.value(target)})
	}

	table.Render()
}
