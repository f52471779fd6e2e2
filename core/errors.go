package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned by repositories when the requested record does not exist.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{message: msg}
}

func (err *NotFoundError) Error() string {
	return err.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// GateError rejects a check-in that is otherwise valid:
// the session is closed, or the device is outside the geofence.
type GateError struct {
	Reason  string
	Message string
	Data    map[string]interface{}
}

func NewGateError(reason, msg string, data ...map[string]interface{}) *GateError {
	ge := &GateError{Reason: reason, Message: msg}
	if len(data) > 0 {
		ge.Data = data[0]
	}
	return ge
}

func (err *GateError) Error() string {
	return err.Message
}

// Is makes errors.Is match any GateError with the same Reason.
func (err *GateError) Is(target error) bool {
	t, ok := target.(*GateError)
	return ok && t.Reason == err.Reason
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
