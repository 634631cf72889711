package inflater

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (suite *UnitTestSuite) TestChooseStrategy() {
	const threshold = 100_000_000

	cases := []struct {
		label     string
		sharding  bool
		isFinal   bool
		size      int64
		keyFields []string
		expected  PartitionStrategy
	}{
		{"unsharded deployment, final", false, true, threshold, []string{"year"}, PartitionNone},
		{"unsharded deployment, large", false, false, 10 * threshold, nil, PartitionNone},
		{"small intermediate", true, false, threshold - 1, []string{"year"}, PartitionNone},
		{"large intermediate, range", true, false, threshold, []string{"year"}, PartitionRange},
		{"large intermediate, hashed", true, false, threshold, nil, PartitionHashed},
		{"small final, hashed", true, true, 10, nil, PartitionHashed},
		{"small final, range", true, true, 10, []string{"year", "title"}, PartitionRange},
	}

	for _, c := range cases {
		suite.Assert().Equal(
			c.expected,
			ChooseStrategy(c.sharding, c.isFinal, c.size, threshold, c.keyFields),
			c.label,
		)
	}
}

func (suite *UnitTestSuite) TestSplitMiddle() {
	point := rawValueOf(int32(2014))

	middle := SplitMiddle([]string{"year", "title", "released"}, point)

	suite.Require().Len(middle, 3)
	suite.Assert().Equal("year", middle[0].Key)
	suite.Assert().Equal(point, middle[0].Value)
	suite.Assert().Equal(bson.E{Key: "title", Value: primitive.MaxKey{}}, middle[1])
	suite.Assert().Equal(bson.E{Key: "released", Value: primitive.MaxKey{}}, middle[2])

	bytes, err := bson.Marshal(middle)
	suite.Require().NoError(err)

	raw := bson.Raw(bytes)
	suite.Assert().EqualValues(2014, raw.Lookup("year").Int32())
	suite.Assert().Equal(bson.TypeMaxKey, raw.Lookup("title").Type)

	single := SplitMiddle([]string{"year"}, point)
	suite.Assert().Equal(bson.D{{"year", point}}, single)
}

func (suite *UnitTestSuite) TestCollectionDescriptor() {
	desc := CollectionDescriptor{Strategy: PartitionRange, KeyFields: []string{"year"}}
	suite.Assert().False(desc.IsPreSplitRange(), "range without split points")
	suite.Assert().Equal("range on year (not pre-split)", describeSharding(desc))

	desc.SplitPoints = []bson.RawValue{rawValueOf("a"), rawValueOf("m")}
	suite.Assert().True(desc.IsPreSplitRange())
	suite.Assert().Equal("range on year (pre-split at 2 points)", describeSharding(desc))

	desc = CollectionDescriptor{Strategy: PartitionHashed, SplitPoints: desc.SplitPoints}
	suite.Assert().False(desc.IsPreSplitRange(), "hashed")
	suite.Assert().Equal("hashed on _id (pre-split)", describeSharding(desc))

	suite.Assert().Equal("unsharded", describeSharding(CollectionDescriptor{Strategy: PartitionNone}))
}

func rawValueOf(val any) bson.RawValue {
	raw, err := bson.Marshal(bson.D{{"v", val}})
	if err != nil {
		panic(err)
	}

	return bson.Raw(raw).Lookup("v")
}
