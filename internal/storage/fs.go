package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	DataDir    = ".local/share/clipped"
	PayloadDir = "payloads"

	tempPrefix = ".tmp-"
)

// PayloadFS is a filesystem rooted at the spill directory.
type PayloadFS struct {
	root string
}

// DefaultDataDir returns ~/.local/share/clipped.
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DataDir), nil
}

// NewFS creates a PayloadFS at <dataDir>/payloads.
// If dataDir is empty, uses the default ~/.local/share/clipped.
// If dataDir is relative, it is resolved against the home directory.
func NewFS(dataDir string) (*PayloadFS, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	} else if !filepath.IsAbs(dataDir) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, dataDir)
	}

	root := filepath.Join(dataDir, PayloadDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}
	return &PayloadFS{root: root}, nil
}

// NewFSWithRoot creates a PayloadFS with a custom root (for testing)
func NewFSWithRoot(root string) *PayloadFS {
	return &PayloadFS{root: root}
}

// Open implements fs.FS
func (pfs *PayloadFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(filepath.Join(pfs.root, name))
}

// ReadDir implements fs.ReadDirFS
func (pfs *PayloadFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadDir(filepath.Join(pfs.root, name))
}

// Stat implements fs.StatFS
func (pfs *PayloadFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	return os.Stat(filepath.Join(pfs.root, name))
}

// WriteFile writes data to name by way of a temporary file and a rename, so
// a reader never observes a partially written payload.
func (pfs *PayloadFS) WriteFile(name string, data []byte) error {
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return &fs.PathError{Op: "writefile", Path: name, Err: fs.ErrInvalid}
	}

	if err := os.MkdirAll(pfs.root, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(pfs.root, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(pfs.root, name)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Remove removes a file relative to the payload directory
func (pfs *PayloadFS) Remove(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
	}
	return os.Remove(filepath.Join(pfs.root, name))
}

// Path returns the absolute path of name.
func (pfs *PayloadFS) Path(name string) string {
	return filepath.Join(pfs.root, name)
}

// Root returns the root directory path
func (pfs *PayloadFS) Root() string {
	return pfs.root
}
