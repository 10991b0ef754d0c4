package updater

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// CurrentBinaryPath returns the resolved path to the currently running
// binary. Symlinks are followed so the update targets the real file:
// replacing a PATH shim instead of its target would leave the binary
// that actually executes untouched.
func CurrentBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "getting executable path")
	}

	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", errors.Wrap(err, "resolving symlinks")
	}

	return resolved, nil
}

// Install replaces the binary at targetPath with the extracted binary.
//
// The preferred path is an atomic rename: on POSIX filesystems a rename
// onto an existing file never exposes a missing or truncated target.
// When rename fails (staging file on a different device, or a platform
// that refuses to replace a running executable) it falls back to an
// in-place stream copy. The fallback is not atomic and exists only for
// platforms where the atomic path is unavailable.
func Install(extractedPath, targetPath string) error {
	if _, err := os.Stat(targetPath); err != nil {
		return errors.Wrap(err, "stat install target")
	}

	if err := os.Chmod(extractedPath, binaryFileMode); err != nil {
		return errors.Wrap(err, "marking binary executable")
	}

	renameErr := installByRename(extractedPath, targetPath)
	if renameErr == nil {
		return nil
	}

	if copyErr := installByCopy(extractedPath, targetPath); copyErr != nil {
		return errors.Wrapf(copyErr, "installing binary (rename failed: %v)", renameErr)
	}

	return nil
}

// installByRename atomically moves the extracted binary onto the target.
func installByRename(extractedPath, targetPath string) error {
	return os.Rename(extractedPath, targetPath)
}

// installByCopy overwrites the target in place: open for writing,
// stream-copy the extracted bytes, carry the permission bits over, then
// remove the spent staging file. Reduced-safety mode — a crash mid-copy
// leaves a truncated target, which the rename path can never do.
//
//nolint:gosec // G304: both paths are pipeline-internal (temp file, resolved executable)
func installByCopy(extractedPath, targetPath string) error {
	src, err := os.Open(extractedPath)
	if err != nil {
		return errors.Wrap(err, "opening extracted binary")
	}
	defer src.Close() //nolint:errcheck // read-only file

	info, err := src.Stat()
	if err != nil {
		return errors.Wrap(err, "stat extracted binary")
	}

	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return errors.Wrap(err, "opening install target")
	}

	if _, copyErr := io.Copy(dst, src); copyErr != nil {
		_ = dst.Close()

		return errors.Wrap(copyErr, "copying binary")
	}

	if closeErr := dst.Close(); closeErr != nil {
		return errors.Wrap(closeErr, "closing install target")
	}

	if err := os.Chmod(targetPath, info.Mode()); err != nil {
		return errors.Wrap(err, "setting target permissions")
	}

	return errors.Wrap(os.Remove(extractedPath), "removing staging file")
}
