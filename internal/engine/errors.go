package engine

import (
	"fmt"
)

type ErrorType int

const (
	ErrorTypeSkillNotFound ErrorType = iota
	ErrorTypeUnknownTool
	ErrorTypeFilesystem
)

type EngineError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Type == t.Type
	}
	return false
}

// Logger is the structured logging interface used by the engine.
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
