package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrPathEscape is returned when a tool-supplied path resolves outside the
// workspace root. Paths come from the model and are untrusted; confining them
// to the workspace is a security boundary, not input validation.
var ErrPathEscape = errors.New("path escapes workspace root")

// BasicState is the workspace-scoped state shared by all tools in a session.
// It is immutable after construction and safe to share between sessions.
type BasicState struct {
	workspaceRoot string
}

// NewBasicState creates a state rooted at the given workspace directory. The
// directory must exist; symlinks in the root are resolved up front so that
// later containment checks compare like with like.
func NewBasicState(workspaceRoot string) (*BasicState, error) {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve workspace root")
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace root %s is not accessible", abs)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace root %s is not accessible", resolved)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("workspace root %s is not a directory", resolved)
	}

	return &BasicState{workspaceRoot: resolved}, nil
}

// WorkspaceRoot returns the absolute workspace root directory.
func (s *BasicState) WorkspaceRoot() string {
	return s.workspaceRoot
}

// ResolvePath resolves a tool-supplied path against the workspace root.
// Relative paths are interpreted relative to the root. Any path that escapes
// the root, through `..` traversal or an absolute path pointing elsewhere,
// fails with ErrPathEscape.
func (s *BasicState) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.workspaceRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !s.contains(candidate) {
		return "", errors.Wrapf(ErrPathEscape, "path %s", path)
	}

	// The path itself may not exist yet (write_file creates it), so resolve
	// symlinks on the nearest existing ancestor and re-check containment.
	resolved, err := resolveExistingPrefix(candidate)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve path %s", path)
	}
	if !s.contains(resolved) {
		return "", errors.Wrapf(ErrPathEscape, "path %s", path)
	}

	return candidate, nil
}

func (s *BasicState) contains(absPath string) bool {
	if absPath == s.workspaceRoot {
		return true
	}
	return strings.HasPrefix(absPath, s.workspaceRoot+string(os.PathSeparator))
}

// resolveExistingPrefix walks up from path to the nearest existing ancestor,
// resolves its symlinks, and rejoins the non-existing remainder.
func resolveExistingPrefix(path string) (string, error) {
	var suffix []string
	current := path

	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(suffix) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, suffix[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		suffix = append(suffix, filepath.Base(current))
		current = parent
	}
}
