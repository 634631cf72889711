package contextplus

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// TestCancelCause verifies that Err() includes both context.Canceled and
// the cancellation cause, including when the cause itself wraps Canceled.
func (s *UnitTestSuite) TestCancelCause() {
	for _, cause := range []error{
		fmt.Errorf("just because"),
		errors.Wrap(context.Canceled, "interrupted"),
	} {
		ctx, canceller := WithCancelCause(context.Background())

		canceller(cause)

		canceledErr := ctx.Err()

		s.Assert().ErrorIs(canceledErr, context.Canceled)
		s.Assert().ErrorIs(canceledErr, cause)

		fromCause := context.Cause(ctx)
		s.Assert().ErrorIs(fromCause, cause)
	}
}

func (s *UnitTestSuite) TestUncanceled() {
	ctx, cancel := WithCancelCause(context.Background())

	s.Assert().Nil(ctx.Err())

	cancel(errors.New(""))
}

func (s *UnitTestSuite) TestErrGroupCancelsOnFailure() {
	eg, ctx := ErrGroup(context.Background())

	failure := errors.New("batch 3 failed")

	eg.Go(func() error {
		return failure
	})
	eg.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	s.Assert().ErrorIs(eg.Wait(), failure)
	s.Assert().ErrorIs(ctx.Err(), context.Canceled)
}
