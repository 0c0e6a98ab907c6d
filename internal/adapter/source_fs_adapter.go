package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	m "github.com/whr0724/genprog-code/internal/model"
)

// SourceFSAdapter abstracts the filesystem operations the engine relies on
// when loading targets and staging candidate variants. It hides direct `os`
// access so search logic can be tested without touching the disk.
type SourceFSAdapter interface {
	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// HashFile returns a stable fingerprint (SHA-256) for the file at path.
	HashFile(path m.Path) (string, error)

	// FindProjectRoot searches for a go.mod file walking up the tree.
	FindProjectRoot(startPath m.Path) (m.Path, error)

	// CreateTempDir creates a temporary directory for variant evaluation.
	CreateTempDir(pattern string) (m.Path, error)

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path m.Path) error

	// CopyDir recursively copies a directory tree.
	CopyDir(src, dst m.Path) error

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSourceFSAdapter is the concrete SourceFSAdapter backed by the os
// package.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FindProjectRoot searches for a go.mod file walking up the directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir := filepath.Dir(string(startPath))

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return m.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory of %s", startPath)
		}

		dir = parent
	}
}

// CreateTempDir creates a temporary directory for variant evaluation.
func (a *LocalSourceFSAdapter) CreateTempDir(pattern string) (m.Path, error) {
	tmpDir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", err
	}

	return m.Path(tmpDir), nil
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// CopyDir recursively copies a directory tree.
func (a *LocalSourceFSAdapter) CopyDir(src, dst m.Path) error {
	return filepath.Walk(string(src), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(string(src), path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			baseName := filepath.Base(path)
			if baseName == ".git" || baseName == "vendor" || baseName == "node_modules" {
				return filepath.SkipDir
			}

			return os.MkdirAll(filepath.Join(string(dst), relPath), info.Mode())
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		return os.WriteFile(filepath.Join(string(dst), relPath), content, info.Mode())
	})
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
