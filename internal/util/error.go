package util

import (
	"context"
	"io"
	"net"
	"strings"

	"github.com/10gen/data-inflater/mmongo"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// Server error codes that the inflater inspects by name. All server error
// codes can be found at:
// https://github.com/mongodb/mongo/blob/master/src/mongo/base/error_codes.yml
const (
	IllegalOperation  = 20
	NamespaceNotFound = 26
	CommandNotFound   = 59
	NoShardingEnabled = 203
	Unauthorized      = 13
)

// IsNamespaceNotFoundError returns true if this is a NamespaceNotFound error.
func IsNamespaceNotFoundError(err error) bool {
	return mmongo.ErrorHasCode(err, NamespaceNotFound)
}

// IsShardingUnavailableError returns true if the error indicates that the
// deployment lacks sharding altogether, as opposed to a failure to reach it.
// A replica set answers sharding commands with CommandNotFound; some
// shard-server configurations answer with NoShardingEnabled or
// IllegalOperation.
func IsShardingUnavailableError(err error) bool {
	return mmongo.ErrorHasCode(err, CommandNotFound, NoShardingEnabled, IllegalOperation)
}

// IsContextCanceledError returns true if this is a Context Canceled error.
func IsContextCanceledError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		strings.Contains(err.Error(), context.Canceled.Error())
}

// IsTransientError returns true if this is an error that is reconnectable and can be retried.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if IsContextCanceledError(err) {
		return false
	}

	cause := errors.Cause(err)

	if _, ok := cause.(*mongo.WriteConcernError); ok {
		return true
	}

	if isNetworkError(cause) || isConnectionError(cause) || isServerSelectionError(cause) {
		return true
	}

	if hasTransientErrorCode(err) {
		return true
	}

	return hasTransientErrorLabel(err)
}

func isNetworkError(err error) bool {
	if _, ok := err.(net.Error); ok {
		return true
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}

	return mongo.IsNetworkError(err)
}

func isConnectionError(err error) bool {
	if connErr, ok := err.(topology.ConnectionError); ok {
		// Network errors are usually wrapped inside ConnectionError instead of being at top-level.
		return isNetworkError(connErr.Wrapped)
	}

	return false
}

func isServerSelectionError(err error) bool {
	_, ok := err.(topology.ServerSelectionError)
	return ok
}

// Copied (abridged) from mongosync's list of transient server codes.
var transientErrorCodes = mapset.NewSet(
	6,     // HostUnreachable
	7,     // HostNotFound
	43,    // CursorNotFound
	50,    // MaxTimeMSExpired
	70,    // ShardNotFound
	89,    // NetworkTimeout
	91,    // ShutdownInProgress
	112,   // WriteConflict
	117,   // ConflictingOperationInProgress
	133,   // FailedToSatisfyReadPreference
	134,   // ReadConcernMajorityNotAvailableYet
	175,   // QueryPlanKilled
	189,   // PrimarySteppedDown
	202,   // NetworkInterfaceExceededTimeLimit
	262,   // ExceededTimeLimit
	314,   // ObjectIsBusy
	365,   // TemporarilyUnavailable
	384,   // ConnectionError
	9001,  // SocketException
	10107, // NotWritablePrimary
	11600, // InterruptedAtShutdown
	11602, // InterruptedDueToReplStateChange
	13388, // StaleConfig
	13435, // NotPrimaryNoSecondaryOk
	13436, // NotPrimaryOrSecondary
)

func hasTransientErrorCode(err error) bool {
	if GetErrorCode(err) == 0 && strings.Contains(err.Error(), "not master") {
		return true
	}

	return mmongo.ErrorHasCode(err, transientErrorCodes.ToSlice()...)
}

var transientErrorLabels = [3]string{
	"ResumableChangeStreamError",
	"RetryableWriteError",
	"TransientTransactionError",
}

func hasTransientErrorLabel(err error) bool {
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}

	for _, l := range transientErrorLabels {
		if serverErr.HasErrorLabel(l) {
			return true
		}
	}

	return false
}

// GetErrorCode returns the provided error’s top-level error code.
// It returns 0 if the error is nil or not one of the supported error types.
//
// CAUTION: Server errors can contain multiple errors, and inspecting just
// the top-level error code often doesn’t achieve proper error handling.
// Instead consider mmongo.ErrorHasCode().
func GetErrorCode(err error) int {
	switch e := errors.Cause(err).(type) {
	case mongo.CommandError:
		return int(e.Code)
	case driver.Error:
		return int(e.Code)
	case mongo.WriteError:
		return e.Code
	case mongo.WriteConcernError:
		return e.Code
	case mongo.WriteException:
		for _, we := range e.WriteErrors {
			return we.Code
		}
		if e.WriteConcernError != nil {
			return e.WriteConcernError.Code
		}
		return 0
	default:
		return 0
	}
}
