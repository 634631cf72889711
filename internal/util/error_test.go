package util

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

func (suite *UnitTestSuite) TestIsTransientError() {
	type testCase struct {
		err    error
		expect bool
	}
	testCases := []testCase{
		{errors.New("Not transient"), false},
		{context.Canceled, false},
		{errors.Wrap(context.Canceled, "interrupted"), false},
		{mongo.WriteConcernError{}, false},
		{&mongo.WriteConcernError{}, true},
		{mongo.CommandError{Code: 6}, true},
		{mongo.CommandError{Code: 42}, false},
		{mongo.CommandError{Code: 175}, true},
		{errors.Wrap(mongo.CommandError{Code: 13388}, "polling chunks"), true},
		{mongo.CommandError{Code: 0}, false},
		{mongo.CommandError{Code: 0, Message: "not master"}, true},
		{mongo.CommandError{Code: 1234567, Labels: []string{"NetworkError"}}, true},
		{mongo.CommandError{Code: 1234567, Labels: []string{"SomeNotTransientThing"}}, false},
		{mongo.CommandError{Code: 1234567, Labels: []string{"TransientTransactionError"}}, true},
	}
	for _, c := range testCases {
		suite.Assert().Equal(c.expect, IsTransientError(c.err), "%v", c.err)
	}
}

func (suite *UnitTestSuite) TestIsShardingUnavailableError() {
	suite.Assert().True(IsShardingUnavailableError(mongo.CommandError{Code: CommandNotFound, Message: "no such command: 'enableSharding'"}))
	suite.Assert().True(IsShardingUnavailableError(errors.Wrap(mongo.CommandError{Code: NoShardingEnabled}, "enabling")))
	suite.Assert().True(IsShardingUnavailableError(mongo.CommandError{Code: IllegalOperation}))

	suite.Assert().False(IsShardingUnavailableError(mongo.CommandError{Code: 6}))
	suite.Assert().False(IsShardingUnavailableError(mongo.CommandError{Code: Unauthorized}))
	suite.Assert().False(IsShardingUnavailableError(errors.New("connection refused")))
}

func (suite *UnitTestSuite) TestGetErrorCode() {
	suite.Assert().Equal(0, GetErrorCode(nil))
	suite.Assert().Equal(26, GetErrorCode(errors.Wrap(mongo.CommandError{Code: 26}, "dropping")))
	suite.Assert().Equal(
		11000,
		GetErrorCode(mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}),
	)
	suite.Assert().True(IsNamespaceNotFoundError(mongo.CommandError{Code: NamespaceNotFound}))
}
