package inflater

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// Compression names a WiredTiger block compressor.
type Compression string

const (
	CompressionSnappy Compression = "snappy"
	CompressionZstd   Compression = "zstd"
	CompressionZlib   Compression = "zlib"
	CompressionNone   Compression = "none"
)

var validCompressions = mapset.NewSet(
	CompressionSnappy,
	CompressionZstd,
	CompressionZlib,
	CompressionNone,
)

// Precondition errors. These are reported before anything is mutated.
var (
	ErrInvalidSize        = errors.New("requested size must be greater than zero")
	ErrEmptySource        = errors.New("source collection is empty")
	ErrInvalidCompression = errors.New("unsupported compression")
	ErrMissingName        = errors.New("collection name is required")
	ErrNameCollision      = errors.New("target collection name collides with another collection the run uses")
)

// ParseCompression validates a compressor name.
func ParseCompression(name string) (Compression, error) {
	c := Compression(name)
	if !validCompressions.Contains(c) {
		return "", errors.Wrapf(
			ErrInvalidCompression,
			"%#q is not one of %v",
			name,
			validCompressions.ToSlice(),
		)
	}

	return c, nil
}

// Settings holds the tunables of an inflation run. A Settings value is
// never modified once a run starts.
type Settings struct {
	// Intermediate collections at or above this many documents get
	// sharded like the final collection.
	LargeCollectionThreshold int64

	// How many $bucketAuto buckets to request when computing range
	// split points.
	SplitPointsTarget int

	// numInitialChunks for a hashed `_id` shard key.
	HashedInitialChunks int

	Balance BalanceSettings

	// DryRun provisions collections and plans the stages but skips all
	// copying and temporary-collection removal.
	DryRun bool
}

// BalanceSettings configures the wait for pre-split chunks to balance.
type BalanceSettings struct {
	MaxWait            time.Duration
	PollInterval       time.Duration
	MaxChunkDifference int64
	SettleAttempts     int
}

// DefaultSettings returns the settings used when none are overridden.
func DefaultSettings() Settings {
	return Settings{
		LargeCollectionThreshold: 100_000_000,
		SplitPointsTarget:        512,
		HashedInitialChunks:      96,
		Balance: BalanceSettings{
			MaxWait:            10 * time.Minute,
			PollInterval:       5 * time.Second,
			MaxChunkDifference: 8,
			SettleAttempts:     3,
		},
	}
}
