package inflater

import (
	"fmt"

	"github.com/samber/lo"
)

// Plan describes the order-of-magnitude stages needed to grow a source
// collection to a target size.
type Plan struct {
	SourceSize int64
	TargetSize int64

	// Magnitudes is the number of intermediate stages.
	Magnitudes int

	// StageSizes[i] is the document count of intermediate stage i.
	StageSizes []int64
}

// NewPlan computes the stages between sourceSize and targetSize. Both
// must be positive.
//
// The stage count is floor(log10(target)) − ceil(log10(source)), floored
// at zero, and stage i holds 10^(ceil(log10(source))+i) documents.
func NewPlan(sourceSize, targetSize int64) Plan {
	lo.Assertf(
		sourceSize > 0 && targetSize > 0,
		"sizes must be positive (source: %d, target: %d)",
		sourceSize,
		targetSize,
	)

	firstExp := ceilLog10(sourceSize)
	magnitudes := max(0, floorLog10(targetSize)-firstExp)

	return Plan{
		SourceSize: sourceSize,
		TargetSize: targetSize,
		Magnitudes: magnitudes,
		StageSizes: lo.Times(magnitudes, func(i int) int64 {
			return pow10(firstExp + i)
		}),
	}
}

// StageCollectionName is the name of intermediate stage i’s collection.
func StageCollectionName(sourceName string, stage int) string {
	return fmt.Sprintf("%s_%d", sourceName, stage)
}

// BatchSizes splits growBy documents into batches of at most sourceSize
// documents: floor(growBy/sourceSize) full batches plus one remainder
// batch. The sizes always sum to growBy.
func BatchSizes(sourceSize, growBy int64) []int64 {
	lo.Assertf(sourceSize > 0, "source size must be positive, not %d", sourceSize)
	lo.Assertf(growBy >= 0, "growth must be nonnegative, not %d", growBy)

	sizes := lo.Times(int(growBy/sourceSize), func(_ int) int64 {
		return sourceSize
	})

	if remainder := growBy % sourceSize; remainder > 0 {
		sizes = append(sizes, remainder)
	}

	return sizes
}

// floorLog10 and ceilLog10 use integer arithmetic because float64
// math.Log10 is inexact at some powers of ten.
func floorLog10(n int64) int {
	exp := 0
	for n >= 10 {
		n /= 10
		exp++
	}

	return exp
}

func ceilLog10(n int64) int {
	exp := floorLog10(n)
	if pow10(exp) < n {
		exp++
	}

	return exp
}

func pow10(exp int) int64 {
	result := int64(1)
	for range exp {
		result *= 10
	}

	return result
}
