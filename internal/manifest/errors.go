package manifest

import (
	"fmt"
)

type ErrorType int

const (
	ErrorTypeNoFrontMatter ErrorType = iota
	ErrorTypeUnterminatedFrontMatter
	ErrorTypeMalformedMetadata
)

type ParseError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	if t, ok := target.(*ParseError); ok {
		return e.Type == t.Type
	}
	return false
}
