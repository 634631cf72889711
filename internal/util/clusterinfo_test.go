package util

import (
	"go.mongodb.org/mongo-driver/bson"
)

func (suite *UnitTestSuite) TestTopologyFromHello() {
	mongos, err := bson.Marshal(bson.D{{"isWritablePrimary", true}, {"msg", "isdbgrid"}})
	suite.Require().NoError(err)
	suite.Assert().Equal(TopologySharded, TopologyFromHello(mongos))

	replset, err := bson.Marshal(bson.D{{"isWritablePrimary", true}, {"setName", "rs0"}})
	suite.Require().NoError(err)
	suite.Assert().Equal(TopologyReplset, TopologyFromHello(replset))

	odd, err := bson.Marshal(bson.D{{"msg", 1}})
	suite.Require().NoError(err)
	suite.Assert().Equal(TopologyReplset, TopologyFromHello(odd))
}
