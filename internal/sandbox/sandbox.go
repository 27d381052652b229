// Package sandbox confines all file access to a root directory and
// keeps backups of files before they are rewritten.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BackupSuffix is appended to a file's name to form its backup sibling.
const BackupSuffix = ".bak"

// Sandbox provides safe file operations within a root directory.
type Sandbox struct {
	Root string
}

// New creates a sandbox rooted at root.
func New(root string) (*Sandbox, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Sandbox{Root: absRoot}, nil
}

// ValidatePath ensures a path is within the sandbox root, resolving
// symlinks so a link cannot smuggle writes outside.
func (s *Sandbox) ValidatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(s.Root, absPath)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("path traversal attempt: %s is outside sandbox root %s", path, s.Root)
	}

	info, err := os.Lstat(absPath)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			return "", err
		}
		return s.ValidatePath(resolved)
	}

	return absPath, nil
}

// SafeRead reads a file from the sandbox.
func (s *Sandbox) SafeRead(path string) ([]byte, error) {
	validatedPath, err := s.ValidatePath(path)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(validatedPath)
}

// SafeWrite writes a file atomically, keeping the existing file's mode
// so a patched script stays executable.
func (s *Sandbox) SafeWrite(path string, content []byte) error {
	validatedPath, err := s.ValidatePath(path)
	if err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(validatedPath); err == nil {
		mode = info.Mode().Perm()
	}

	if err := os.MkdirAll(filepath.Dir(validatedPath), 0755); err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tmpFile, err := os.CreateTemp(filepath.Dir(validatedPath), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}

	return os.Rename(tmpName, validatedPath)
}

// Backup copies a file to its .bak sibling and returns the backup path.
// An existing backup is overwritten.
func (s *Sandbox) Backup(path string) (string, error) {
	validatedPath, err := s.ValidatePath(path)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(validatedPath)
	if err != nil {
		return "", err
	}

	backupPath := validatedPath + BackupSuffix
	if err := s.SafeWrite(backupPath, content); err != nil {
		return "", err
	}
	return backupPath, nil
}

// HasBackup reports whether a .bak sibling exists for the file.
func (s *Sandbox) HasBackup(path string) bool {
	validatedPath, err := s.ValidatePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(validatedPath + BackupSuffix)
	return err == nil
}

// Restore copies the .bak sibling back over the file.
func (s *Sandbox) Restore(path string) error {
	validatedPath, err := s.ValidatePath(path)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(validatedPath + BackupSuffix)
	if err != nil {
		return fmt.Errorf("no backup to restore for %s: %w", path, err)
	}

	return s.SafeWrite(validatedPath, content)
}
