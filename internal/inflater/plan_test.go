package inflater

import (
	"fmt"

	"github.com/samber/lo"
)

func (suite *UnitTestSuite) TestNewPlan() {
	cases := []struct {
		source, target int64
		stageSizes     []int64
	}{
		{1, 1, []int64{}},
		{500, 900, []int64{}},
		{999, 1_000, []int64{}},
		{1_000, 1_000, []int64{}},
		{1_000, 999, []int64{}},
		{10, 1_000_000, []int64{10, 100, 1_000, 10_000, 100_000}},
		{1, 1_000, []int64{1, 10, 100}},
		{11, 1_000, []int64{100}},
		{1_001, 1_000_000_000, []int64{10_000, 100_000, 1_000_000, 10_000_000, 100_000_000}},
		{23_539, 100_000_000, []int64{100_000, 1_000_000, 10_000_000}},
	}

	for _, c := range cases {
		plan := NewPlan(c.source, c.target)

		label := fmt.Sprintf("source=%d target=%d", c.source, c.target)
		suite.Assert().Equal(len(c.stageSizes), plan.Magnitudes, label)
		suite.Assert().Equal(c.stageSizes, plan.StageSizes, label)
		suite.Assert().Equal(c.source, plan.SourceSize, label)
		suite.Assert().Equal(c.target, plan.TargetSize, label)
	}
}

func (suite *UnitTestSuite) TestIntegerLog10() {
	for exp := range 19 {
		n := pow10(exp)

		suite.Assert().Equal(exp, floorLog10(n), "floor of 10^%d", exp)
		suite.Assert().Equal(exp, ceilLog10(n), "ceil of 10^%d", exp)

		if exp > 0 {
			suite.Assert().Equal(exp-1, floorLog10(n-1), "floor of 10^%d - 1", exp)
			suite.Assert().Equal(exp, ceilLog10(n-1), "ceil of 10^%d - 1", exp)
		}

		if exp < 18 {
			suite.Assert().Equal(exp+1, ceilLog10(n+1), "ceil of 10^%d + 1", exp)
		}
	}
}

func (suite *UnitTestSuite) TestStageCollectionName() {
	suite.Assert().Equal("movies_0", StageCollectionName("movies", 0))
	suite.Assert().Equal("movies_12", StageCollectionName("movies", 12))
}

func (suite *UnitTestSuite) TestBatchSizes() {
	cases := []struct {
		source, grow int64
		expected     []int64
	}{
		{10, 0, []int64{}},
		{10, 10, []int64{10}},
		{10, 100, lo.RepeatBy(10, func(_ int) int64 { return 10 })},
		{10, 95, append(lo.RepeatBy(9, func(_ int) int64 { return 10 }), 5)},
		{100, 7, []int64{7}},
		{1, 3, []int64{1, 1, 1}},
	}

	for _, c := range cases {
		sizes := BatchSizes(c.source, c.grow)

		suite.Assert().Equal(c.expected, sizes, "source=%d grow=%d", c.source, c.grow)
	}
}

func (suite *UnitTestSuite) TestBatchSizesInvariants() {
	for _, source := range []int64{1, 3, 7, 10, 999, 23_539} {
		for _, grow := range []int64{0, 1, 2, 9, 10, 11, 1_000, 100_000, 123_457} {
			sizes := BatchSizes(source, grow)

			suite.Assert().Equal(grow, lo.Sum(sizes), "source=%d grow=%d", source, grow)

			smaller := lo.CountBy(sizes, func(s int64) bool { return s < source })
			suite.Assert().LessOrEqual(smaller, 1, "source=%d grow=%d", source, grow)

			for _, size := range sizes {
				suite.Assert().Positive(size)
				suite.Assert().LessOrEqual(size, source)
			}
		}
	}
}
