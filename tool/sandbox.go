package tool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/agentloop/core"
)

// Sandbox confines file tool paths to a root directory and enforces the
// extension allow list and size cap from the turn configuration.
type Sandbox struct {
	root        string
	maxFileSize int64
	allowedExts []string
}

// NewSandbox creates a sandbox from a validated turn configuration.
func NewSandbox(cfg core.TurnConfig) *Sandbox {
	return &Sandbox{
		root:        filepath.Clean(cfg.WorkingDir),
		maxFileSize: cfg.MaxFileSize,
		allowedExts: append([]string(nil), cfg.AllowedExtensions...),
	}
}

// Root returns the sandbox root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// MaxFileSize returns the configured file size cap in bytes.
func (s *Sandbox) MaxFileSize() int64 {
	return s.maxFileSize
}

// Resolve turns a user supplied path into an absolute path inside the
// sandbox. Relative paths are resolved against the root. Symlinks are
// resolved before the containment check, so a link inside the root pointing
// outside it fails like any other escape, before any file content is
// touched.
func (s *Sandbox) Resolve(path string) (string, Result) {
	if strings.TrimSpace(path) == "" {
		return "", Err(CodeInvalidArguments, "path must not be empty")
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := evalExistingSymlinks(candidate)
	if err != nil {
		return "", Errf(CodeExecutionError, "failed to resolve '%s': %v", path, err)
	}

	root, err := evalExistingSymlinks(s.root)
	if err != nil {
		return "", Errf(CodeExecutionError, "failed to resolve working directory: %v", err)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", Errf(CodePathOutsideSandbox, "path '%s' is outside the working directory", path)
	}
	return resolved, Result{OK: true}
}

// evalExistingSymlinks resolves symlinks in the deepest existing ancestor of
// p and rejoins the non-existing remainder, so paths that are about to be
// created are checked against their real parent location.
func evalExistingSymlinks(p string) (string, error) {
	suffix := ""
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Clean(filepath.Join(resolved, suffix)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(p), suffix)
		p = parent
	}
}

// CheckExtension verifies the path extension against the allow list.
func (s *Sandbox) CheckExtension(path string) Result {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range s.allowedExts {
		if ext == allowed {
			return Result{OK: true}
		}
	}
	return Errf(CodeFileTypeNotAllowed, "file type '%s' is not allowed (allowed: %s)", ext, strings.Join(s.allowedExts, ", "))
}
