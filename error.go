package migbatch

import (
	"fmt"

	"github.com/pkg/errors"
)

// error codes of BatchError
const (
	ErrCodeGeneral          = "general"
	ErrCodeDbFail           = "db_fail"
	ErrCodeConcurrency      = "concurrency"
	ErrCodeMissingParameter = "missing_parameter"
	ErrCodeProcessFailed    = "process_failed"
	ErrCodeStepOpenFailure  = "step_open_failure"
)

var (
	// ErrProcessTimeout is the cause of a ProcessFailed error raised when the absolute timeout elapsed
	ErrProcessTimeout = errors.New("process exceeded its timeout")
	// ErrProcessIdleTimeout is the cause of a ProcessFailed error raised when the process stayed silent too long
	ErrProcessIdleTimeout = errors.New("process exceeded its idle timeout")
)

// BatchError is the error type used across migbatch
type BatchError interface {
	Code() string
	Message() string
	Error() string
	Cause() error
	StackTrace() string
}

type batchError struct {
	code  string
	msg   string
	cause error
	stack error
}

// NewBatchError create a BatchError. The message is formatted with args, if the last arg is an error (or nil), it is
// recorded as the cause instead of being formatted.
func NewBatchError(code string, msg string, args ...interface{}) BatchError {
	var cause error
	if n := len(args); n > 0 {
		switch last := args[n-1].(type) {
		case error:
			cause = last
			args = args[:n-1]
		case nil:
			args = args[:n-1]
		}
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	err := &batchError{
		code:  code,
		msg:   msg,
		cause: cause,
	}
	if cause != nil {
		err.stack = errors.Wrap(cause, msg)
	} else {
		err.stack = errors.New(msg)
	}
	return err
}

func (err *batchError) Code() string {
	return err.code
}

func (err *batchError) Message() string {
	return err.msg
}

func (err *batchError) Error() string {
	if err.cause != nil {
		return fmt.Sprintf("BatchError[%s]: %s, cause: %v", err.code, err.msg, err.cause)
	}
	return fmt.Sprintf("BatchError[%s]: %s", err.code, err.msg)
}

func (err *batchError) Cause() error {
	return err.cause
}

func (err *batchError) Unwrap() error {
	return err.cause
}

func (err *batchError) StackTrace() string {
	return fmt.Sprintf("%+v", err.stack)
}

// IsBatchError reports whether err is a BatchError with the given code
func IsBatchError(err error, code string) bool {
	var be BatchError
	if errors.As(err, &be) {
		return be.Code() == code
	}
	return false
}
