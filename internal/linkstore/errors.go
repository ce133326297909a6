package linkstore

import (
	"fmt"
)

type ErrorType int

const (
	ErrorTypeSourceNotFound ErrorType = iota
	ErrorTypeTargetExists
	ErrorTypeRemovalFailed
	ErrorTypeFilesystem
)

// LinkError carries the offending path alongside the failure kind.
type LinkError struct {
	Type    ErrorType
	Path    string
	Message string
	Err     error
}

func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

func (e *LinkError) Is(target error) bool {
	if t, ok := target.(*LinkError); ok {
		return e.Type == t.Type
	}
	return false
}
