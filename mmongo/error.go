package mmongo

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorHasCode returns true if (and only if) this error is a
// mongo.ServerError that contains any of the given error codes.
func ErrorHasCode[T ~int](err error, codes ...T) bool {
	var serverError mongo.ServerError
	if !errors.As(err, &serverError) {
		return false
	}

	return lo.SomeBy(codes, func(code T) bool {
		return serverError.HasErrorCode(int(code))
	})
}
