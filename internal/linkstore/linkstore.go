// Package linkstore creates and removes the symbolic links that expose
// canonical skills inside tool directories, and resolves link chains back to
// their physical target.
package linkstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxHops bounds link-chain resolution so a link cycle cannot hang a scan.
const maxHops = 40

// Store performs symlink operations against the filesystem.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// CreateLink creates toolRoot/<base(source)> as a symlink to source. The
// tool root is created if missing. Fails when the source directory does not
// exist or when something already occupies the target slot.
func (s *Store) CreateLink(source, toolRoot string) error {
	if _, err := os.Stat(source); err != nil {
		if os.IsNotExist(err) {
			return &LinkError{
				Type:    ErrorTypeSourceNotFound,
				Path:    source,
				Message: fmt.Sprintf("skill directory '%s' does not exist", source),
			}
		}
		return &LinkError{
			Type:    ErrorTypeFilesystem,
			Path:    source,
			Message: "failed to stat skill directory",
			Err:     err,
		}
	}

	if err := os.MkdirAll(toolRoot, 0755); err != nil {
		return &LinkError{
			Type:    ErrorTypeFilesystem,
			Path:    toolRoot,
			Message: "failed to create tool skills directory",
			Err:     err,
		}
	}

	target := filepath.Join(toolRoot, filepath.Base(source))
	if _, err := os.Lstat(target); err == nil {
		return &LinkError{
			Type:    ErrorTypeTargetExists,
			Path:    target,
			Message: fmt.Sprintf("'%s' already exists", target),
		}
	} else if !os.IsNotExist(err) {
		return &LinkError{
			Type:    ErrorTypeFilesystem,
			Path:    target,
			Message: "failed to check link target",
			Err:     err,
		}
	}

	if err := os.Symlink(source, target); err != nil {
		return &LinkError{
			Type:    ErrorTypeFilesystem,
			Path:    target,
			Message: "failed to create symlink",
			Err:     err,
		}
	}
	return nil
}

// RemoveLink removes toolRoot/<name> if it is a symlink. A path that is
// missing or not a link is left untouched; a real skill directory must never
// be deleted by an unlink.
func (s *Store) RemoveLink(name, toolRoot string) error {
	target := filepath.Join(toolRoot, name)
	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &LinkError{
			Type:    ErrorTypeFilesystem,
			Path:    target,
			Message: "failed to check link target",
			Err:     err,
		}
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(target); err != nil {
		return &LinkError{
			Type:    ErrorTypeRemovalFailed,
			Path:    target,
			Message: fmt.Sprintf("failed to remove symlink '%s'", target),
			Err:     err,
		}
	}
	return nil
}

// IsSymlink reports whether path is a symbolic link.
func (s *Store) IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// Resolve follows a chain of symlinks to its final physical path. A path
// that is not a link comes back cleaned but otherwise unchanged. Tool
// directories may link into other tool directories which in turn link into
// canonical storage, so a single readlink hop is not enough.
func (s *Store) Resolve(path string) (string, error) {
	current := filepath.Clean(path)
	for range maxHops {
		info, err := os.Lstat(current)
		if err != nil {
			return current, nil
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}
		dest, err := os.Readlink(current)
		if err != nil {
			return "", &LinkError{
				Type:    ErrorTypeFilesystem,
				Path:    current,
				Message: "failed to read symlink",
				Err:     err,
			}
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(current), dest)
		}
		current = filepath.Clean(dest)
	}
	return "", &LinkError{
		Type:    ErrorTypeFilesystem,
		Path:    path,
		Message: fmt.Sprintf("too many levels of symbolic links resolving '%s'", path),
	}
}
