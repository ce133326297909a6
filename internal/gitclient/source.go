package gitclient

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var shorthandPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Source identifies a skill repository.
type Source struct {
	// Owner/Repo form, e.g. "anthropics/skills".
	Name string
	// Type is the hosting kind recorded in lock entries.
	Type string
	// CloneURL is the full URL passed to git clone.
	CloneURL string
}

// ParseSource accepts either an "owner/repo" shorthand or a full https
// repository URL and validates it before anything reaches the git binary.
func ParseSource(input string) (Source, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Source{}, &GitError{
			Type:    ErrorTypeInvalidURL,
			Message: "repository source cannot be empty",
		}
	}

	if shorthandPattern.MatchString(trimmed) {
		return Source{
			Name:     trimmed,
			Type:     "github",
			CloneURL: fmt.Sprintf("https://github.com/%s.git", trimmed),
		}, nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return Source{}, &GitError{
			Type:    ErrorTypeInvalidURL,
			Message: fmt.Sprintf("invalid repository source '%s'", input),
			Err:     err,
		}
	}

	parts := strings.Split(strings.Trim(strings.TrimSuffix(parsed.Path, ".git"), "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Source{}, &GitError{
			Type:    ErrorTypeInvalidURL,
			Message: fmt.Sprintf("repository URL '%s' has no owner/repo path", input),
		}
	}

	sourceType := "git"
	if parsed.Host == "github.com" {
		sourceType = "github"
	}

	return Source{
		Name:     parts[0] + "/" + parts[1],
		Type:     sourceType,
		CloneURL: trimmed,
	}, nil
}
