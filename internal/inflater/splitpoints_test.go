package inflater

import (
	"go.mongodb.org/mongo-driver/bson"
)

func (suite *UnitTestSuite) TestIsSplittableType() {
	for _, typeName := range []string{"string", "date", "int", "double", "long", "timestamp", "decimal"} {
		suite.Assert().True(IsSplittableType(typeName), typeName)
	}

	for _, typeName := range []string{"bool", "missing", "null", "objectId", "array", "object", "binData", ""} {
		suite.Assert().False(IsSplittableType(typeName), typeName)
	}
}

func (suite *UnitTestSuite) TestFilterSplitPoints() {
	points := []bson.RawValue{
		rawValueOf(nil),
		rawValueOf(int32(1915)),
		{Type: bson.TypeUndefined},
		rawValueOf(int32(1950)),
		rawValueOf("1990é"),
		rawValueOf(nil),
	}

	filtered := FilterSplitPoints(points)

	suite.Require().Len(filtered, 3)
	suite.Assert().EqualValues(1915, filtered[0].Int32())
	suite.Assert().EqualValues(1950, filtered[1].Int32())
	suite.Assert().Equal("1990é", filtered[2].StringValue())

	suite.Assert().Empty(FilterSplitPoints(nil))
}

func (suite *UnitTestSuite) TestSplitPointsPipeline() {
	pipeline := splitPointsPipeline("year", 512)

	suite.Require().Len(pipeline, 3)
	suite.Assert().Equal(
		bson.D{{"$bucketAuto", bson.D{{"groupBy", "$year"}, {"buckets", 512}}}},
		pipeline[0],
	)
	suite.Assert().Equal("$group", pipeline[1][0].Key)
	suite.Assert().Equal(bson.D{{"$unset", "_id"}}, pipeline[2])
}
