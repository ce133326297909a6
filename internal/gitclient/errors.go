package gitclient

import (
	"fmt"
)

type ErrorType int

const (
	// ErrorTypeNotInstalled means the git binary is missing. Permanently
	// fatal: no retry will help.
	ErrorTypeNotInstalled ErrorType = iota
	ErrorTypeInvalidURL
	ErrorTypeCloneFailed
	ErrorTypeHashFailed
	ErrorTypeCommandFailed
)

// GitError carries the failure kind plus captured subprocess output.
type GitError struct {
	Type    ErrorType
	Message string
	Stderr  string
	Err     error
}

func (e *GitError) Error() string {
	msg := e.Message
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

func (e *GitError) Is(target error) bool {
	if t, ok := target.(*GitError); ok {
		return e.Type == t.Type
	}
	return false
}
