package mmongo

import (
	"fmt"

	"github.com/samber/lo"
)

// WhyMergeIsUnavailable indicates why the server cannot run the copy
// pipeline, which needs `$unset` and `$merge` (both 4.2+). It returns nil
// if the server supports both.
func WhyMergeIsUnavailable(version []int) error {
	if len(version) >= 2 && VersionAtLeast(version, 4, 2) {
		return nil
	}

	return fmt.Errorf(
		"copying with %#q requires MongoDB 4.2+ (this is %v)",
		"$merge",
		version,
	)
}

// ChunksAreKeyedByUUID indicates whether config.chunks identifies each
// chunk’s collection by UUID (5.0+) rather than by namespace.
func ChunksAreKeyedByUUID(version []int) bool {
	return len(version) >= 1 && VersionAtLeast(version, 5)
}

// VersionAtLeast returns whether the version is >= the version given
// as separate numbers.
func VersionAtLeast(version []int, nums ...int) bool {
	lo.Assertf(
		len(nums) > 0,
		"need at least a major version to check version (%v) against",
		version,
	)

	for i := range nums {
		lo.Assertf(
			len(version) >= i+1,
			"version %v is too short to compare against %v",
			version,
			nums,
		)

		if version[i] < nums[i] {
			return false
		}

		if version[i] > nums[i] {
			break
		}
	}

	return true
}
