package update

import (
	"fmt"
)

type ErrorType int

const (
	ErrorTypeNoLockEntry ErrorType = iota
	ErrorTypeCheck
	ErrorTypeApply
)

type UpdateError struct {
	Type    ErrorType
	Skill   string
	Message string
	Err     error
}

func (e *UpdateError) Error() string {
	msg := e.Message
	if e.Skill != "" {
		msg = fmt.Sprintf("%s: %s", e.Skill, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

func (e *UpdateError) Is(target error) bool {
	if t, ok := target.(*UpdateError); ok {
		return e.Type == t.Type
	}
	return false
}

// Logger is the structured logging interface used by the coordinator.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
}

// NoOpLogger discards all log output. It is the default.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, fields ...interface{})            {}
func (NoOpLogger) Info(msg string, fields ...interface{})             {}
func (NoOpLogger) Warn(msg string, fields ...interface{})             {}
func (NoOpLogger) Error(msg string, err error, fields ...interface{}) {}
