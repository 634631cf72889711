package inflater

import (
	"context"
	"time"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/mtime"
	"github.com/pkg/errors"
)

type fakeChunkReader struct {
	readings []ChunkDistribution
	err      error
	calls    int
}

func (r *fakeChunkReader) ReadChunkCounts(_ context.Context) (ChunkDistribution, error) {
	if r.err != nil {
		return nil, r.err
	}

	reading := r.readings[min(r.calls, len(r.readings)-1)]
	r.calls++

	return reading, nil
}

func newTestBalanceWaiter(reader ChunkCountReader, settings BalanceSettings) *BalanceWaiter {
	return NewBalanceWaiter(
		logger.NewDebugLogger(),
		reader,
		settings,
		mtime.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	)
}

func testBalanceSettings() BalanceSettings {
	return BalanceSettings{
		MaxWait:            30 * time.Second,
		PollInterval:       5 * time.Second,
		MaxChunkDifference: 8,
		SettleAttempts:     3,
	}
}

func (suite *UnitTestSuite) TestChunkDistributionDifference() {
	suite.Assert().Zero(ChunkDistribution{}.Difference())
	suite.Assert().Zero(ChunkDistribution{"shard0": 40}.Difference())
	suite.Assert().EqualValues(
		35,
		ChunkDistribution{"shard0": 40, "shard1": 5, "shard2": 20}.Difference(),
	)
}

func (suite *UnitTestSuite) TestNextBalanceState() {
	settings := testBalanceSettings()

	state := nextBalanceState(balanceState{}, 1, 0, settings)
	suite.Assert().Equal(balanceConverged, state.kind, "small difference converges at once")
	suite.Assert().Equal(1, state.polls)

	state = nextBalanceState(balanceState{}, 0, time.Hour, settings)
	suite.Assert().Equal(balanceConverged, state.kind, "no difference converges even past budget")

	state = nextBalanceState(balanceState{}, 20, time.Second, settings)
	suite.Assert().Equal(balancePolling, state.kind, "over tolerance keeps polling")

	state = nextBalanceState(state, 20, settings.MaxWait, settings)
	suite.Assert().Equal(balanceTimedOut, state.kind, "over tolerance past budget times out")
	suite.Assert().EqualValues(20, state.lastDifference)
	suite.Assert().Equal(2, state.polls)

	state = nextBalanceState(state, 0, settings.MaxWait, settings)
	suite.Assert().Equal(balanceTimedOut, state.kind, "terminal states stay put")
	suite.Assert().Equal(2, state.polls)

	state = nextBalanceState(balanceState{}, 5, 0, settings)
	suite.Assert().Equal(balanceConverging, state.kind, "near tolerance settles")
	suite.Assert().Equal(1, state.settleAttempts)

	state = nextBalanceState(state, 12, time.Second, settings)
	suite.Assert().Equal(balancePolling, state.kind, "back over tolerance")
	suite.Assert().Equal(1, state.settleAttempts, "settle attempts survive a relapse")

	state = nextBalanceState(state, 5, 2*time.Second, settings)
	suite.Assert().Equal(balanceConverging, state.kind)
	suite.Assert().Equal(2, state.settleAttempts)

	state = nextBalanceState(state, 5, settings.MaxWait, settings)
	suite.Assert().Equal(balanceConverged, state.kind, "within tolerance at the budget converges")
}

func (suite *UnitTestSuite) TestNextBalanceStateSettleAttemptsRunOut() {
	settings := testBalanceSettings()

	state := balanceState{}
	for attempt := 1; attempt <= settings.SettleAttempts; attempt++ {
		state = nextBalanceState(state, 2, 0, settings)
		suite.Require().Equal(balanceConverging, state.kind, "attempt %d", attempt)
		suite.Require().Equal(attempt, state.settleAttempts)
	}

	state = nextBalanceState(state, 2, 0, settings)
	suite.Assert().Equal(balanceConverged, state.kind)
	suite.Assert().Equal(1+settings.SettleAttempts, state.polls)
}

func (suite *UnitTestSuite) TestBalanceWaiterConvergesImmediately() {
	reader := &fakeChunkReader{
		readings: []ChunkDistribution{{"shard0": 257, "shard1": 256}},
	}

	outcome, err := newTestBalanceWaiter(reader, testBalanceSettings()).Wait(context.Background())
	suite.Require().NoError(err)

	suite.Assert().False(outcome.TimedOut)
	suite.Assert().Equal(1, outcome.Polls)
	suite.Assert().EqualValues(1, outcome.LastDifference)
	suite.Assert().Zero(outcome.Elapsed)
	suite.Assert().Equal(1, reader.calls)
}

func (suite *UnitTestSuite) TestBalanceWaiterEmptyDistribution() {
	reader := &fakeChunkReader{readings: []ChunkDistribution{{}}}

	outcome, err := newTestBalanceWaiter(reader, testBalanceSettings()).Wait(context.Background())
	suite.Require().NoError(err)

	suite.Assert().False(outcome.TimedOut)
	suite.Assert().Equal(1, outcome.Polls)
}

func (suite *UnitTestSuite) TestBalanceWaiterSettles() {
	reader := &fakeChunkReader{
		readings: []ChunkDistribution{
			{"shard0": 500, "shard1": 13},
			{"shard0": 300, "shard1": 213},
			{"shard0": 260, "shard1": 253},
			{"shard0": 258, "shard1": 255},
			{"shard0": 257, "shard1": 256},
		},
	}

	outcome, err := newTestBalanceWaiter(reader, testBalanceSettings()).Wait(context.Background())
	suite.Require().NoError(err)

	suite.Assert().False(outcome.TimedOut)
	suite.Assert().Equal(5, outcome.Polls)
	suite.Assert().EqualValues(1, outcome.LastDifference)
	suite.Assert().Equal(20*time.Second, outcome.Elapsed)
}

func (suite *UnitTestSuite) TestBalanceWaiterTimesOut() {
	settings := testBalanceSettings()
	reader := &fakeChunkReader{
		readings: []ChunkDistribution{{"shard0": 500, "shard1": 13}},
	}

	outcome, err := newTestBalanceWaiter(reader, settings).Wait(context.Background())
	suite.Require().NoError(err, "a timeout is not an error")

	suite.Assert().True(outcome.TimedOut)
	suite.Assert().EqualValues(487, outcome.LastDifference)
	suite.Assert().Equal(settings.MaxWait, outcome.Elapsed)
	suite.Assert().Equal(1+int(settings.MaxWait/settings.PollInterval), outcome.Polls)
}

func (suite *UnitTestSuite) TestBalanceWaiterReadFailure() {
	readErr := errors.New("config server unreachable")
	reader := &fakeChunkReader{err: readErr}

	_, err := newTestBalanceWaiter(reader, testBalanceSettings()).Wait(context.Background())
	suite.Assert().ErrorIs(err, readErr)
}

func (suite *UnitTestSuite) TestBalanceWaiterCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeChunkReader{
		readings: []ChunkDistribution{{"shard0": 500, "shard1": 13}},
	}

	_, err := newTestBalanceWaiter(reader, testBalanceSettings()).Wait(ctx)
	suite.Assert().ErrorIs(err, context.Canceled)
	suite.Assert().Equal(1, reader.calls)
}
