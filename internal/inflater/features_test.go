package inflater

import (
	"github.com/10gen/data-inflater/internal/util"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

func (suite *UnitTestSuite) TestClassifyEnableShardingResult() {
	cases := []struct {
		err      error
		expected ShardingSupport
	}{
		{nil, ShardingSupported},
		{mongo.CommandError{Code: util.CommandNotFound, Message: "no such command: 'enableSharding'"}, ShardingUnsupported},
		{mongo.CommandError{Code: util.NoShardingEnabled}, ShardingUnsupported},
		{errors.Wrap(mongo.CommandError{Code: util.IllegalOperation}, "enabling sharding"), ShardingUnsupported},
		{mongo.CommandError{Code: util.Unauthorized}, ShardingUnknown},
		{mongo.CommandError{Code: 6, Message: "host unreachable"}, ShardingUnknown},
		{errors.New("connection reset by peer"), ShardingUnknown},
	}

	for _, c := range cases {
		suite.Assert().Equal(c.expected, ClassifyEnableShardingResult(c.err), "%v", c.err)
	}
}

func (suite *UnitTestSuite) TestShardingSupportString() {
	suite.Assert().Equal("supported", ShardingSupported.String())
	suite.Assert().Equal("unsupported", ShardingUnsupported.String())
	suite.Assert().Equal("unknown", ShardingUnknown.String())
}
