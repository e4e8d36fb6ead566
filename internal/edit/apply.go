package edit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gorewood/code-edit/internal/output"
)

// DefaultBackupSuffix is appended to the source path to name the backup.
const DefaultBackupSuffix = ".backup"

const newFileMode os.FileMode = 0o644

// ApplyOptions control where a result is written.
type ApplyOptions struct {
	Output       string // alternate destination; empty writes over the source
	Backup       bool   // copy the original to SourcePath+BackupSuffix first
	BackupSuffix string // empty means DefaultBackupSuffix
}

// Applied describes what Apply did.
type Applied struct {
	Path       string `json:"path"`
	BackupPath string `json:"backup_path,omitempty"`
	Written    bool   `json:"written"`
}

// Apply writes result.Proposed to the destination, backing up the original
// first when asked. An unchanged result with no alternate destination is
// not written at all.
func Apply(req *Request, result *Result, opts ApplyOptions) (*Applied, error) {
	dest := opts.Output
	if dest == "" {
		dest = req.SourcePath
	}
	applied := &Applied{Path: dest}

	if opts.Output == "" && !result.Changed() {
		return applied, nil
	}

	target, mode, err := resolveDestination(dest, req)
	if err != nil {
		return nil, err
	}

	if opts.Backup {
		suffix := opts.BackupSuffix
		if suffix == "" {
			suffix = DefaultBackupSuffix
		}
		backupPath := req.SourcePath + suffix
		backupMode := req.Mode
		if backupMode == 0 {
			backupMode = newFileMode
		}
		if err := WriteFileAtomic(backupPath, []byte(req.SourceText), backupMode); err != nil {
			return nil, output.NewSystemErrorWithCause("failed to write backup "+backupPath, err)
		}
		applied.BackupPath = backupPath
	}

	if err := WriteFileAtomic(target, []byte(result.Proposed), mode); err != nil {
		return nil, output.NewSystemErrorWithCause("failed to write "+dest, err)
	}
	applied.Written = true
	return applied, nil
}

// resolveDestination follows a symlinked destination to its target and
// picks the mode for the written file.
func resolveDestination(dest string, req *Request) (string, os.FileMode, error) {
	info, err := os.Stat(dest)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return dest, newFileMode, nil
	case err != nil:
		return "", 0, output.NewSystemErrorWithCause("cannot access "+dest, err)
	case info.IsDir():
		return "", 0, output.NewUserError(dest + " is a directory")
	}

	target, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return "", 0, output.NewSystemErrorWithCause("cannot resolve "+dest, err)
	}

	mode := info.Mode().Perm()
	if dest == req.SourcePath && req.Mode != 0 {
		mode = req.Mode
	}
	return target, mode, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it,
// sets mode and renames it over path. Readers see either the old or the
// new content, never a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	tmpName = ""
	return nil
}
