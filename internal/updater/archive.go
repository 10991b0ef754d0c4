package updater

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrBinaryNotFound is returned when a full archive scan finds no entry
// matching the expected executable name. This signals a malformed or
// mismatched release asset; the pipeline aborts without retrying.
var ErrBinaryNotFound = errors.New("binary not found in archive")

// ErrArchiveFormat marks archives whose bytes cannot be read as the kind
// their asset name implied. Distinct from ErrBinaryNotFound: the archive
// itself is broken, not merely missing the binary.
var ErrArchiveFormat = errors.New("unreadable archive")

// binaryFileMode is the permission mode for extracted binary files.
const binaryFileMode = 0o755

// ExtractBinary pulls the named executable out of a staged archive,
// dispatching on the archive kind recorded at download time. Directory
// structure inside the archive is irrelevant; only the entry's base
// name is matched. Returns the path to the extracted file and a
// cleanup function the caller must run regardless of outcome.
func ExtractBinary(staged *StagedArchive, expectedName string) (string, func(), error) {
	if staged.Kind == KindZip {
		return extractFromZip(staged.Path, expectedName)
	}

	return extractFromTarGz(staged.Path, expectedName)
}

// extractFromTarGz stream-decompresses a .tar.gz archive and extracts
// the first regular entry whose base name matches.
//
//nolint:gosec // G304: archivePath is a temp file we just downloaded, not user-controlled
func extractFromTarGz(archivePath, expectedName string) (string, func(), error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", nil, errors.Wrap(err, "opening archive")
	}
	defer f.Close() //nolint:errcheck // read-only file

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", nil, errors.Mark(errors.Wrap(err, "reading gzip stream"), ErrArchiveFormat)
	}
	defer gz.Close() //nolint:errcheck // read-only decompressor

	tr := tar.NewReader(gz)

	tmpDir, err := os.MkdirTemp("", "grove-update-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating temp directory")
	}

	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			cleanup()

			return "", nil, errors.Mark(errors.Wrap(err, "reading tar entry"), ErrArchiveFormat)
		}

		// Match at any path depth (e.g. "grove" or "dist/grove").
		if filepath.Base(header.Name) != expectedName {
			continue
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		dest, pathErr := safePath(tmpDir, expectedName)
		if pathErr != nil {
			cleanup()

			return "", nil, pathErr
		}

		path, writeErr := extractToFile(dest, tr)
		if writeErr != nil {
			cleanup()

			return "", nil, writeErr
		}

		return path, cleanup, nil
	}

	cleanup()

	return "", nil, errors.Wrapf(ErrBinaryNotFound, "no entry named %q", expectedName)
}

// extractFromZip walks the zip central directory and extracts the first
// file entry whose base name matches.
func extractFromZip(archivePath, expectedName string) (string, func(), error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", nil, errors.Mark(errors.Wrap(err, "opening zip archive"), ErrArchiveFormat)
	}
	defer r.Close() //nolint:errcheck // read-only zip

	tmpDir, err := os.MkdirTemp("", "grove-update-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating temp directory")
	}

	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	for _, f := range r.File {
		if filepath.Base(f.Name) != expectedName {
			continue
		}

		if f.FileInfo().IsDir() {
			continue
		}

		dest, pathErr := safePath(tmpDir, expectedName)
		if pathErr != nil {
			cleanup()

			return "", nil, pathErr
		}

		rc, openErr := f.Open()
		if openErr != nil {
			cleanup()

			return "", nil, errors.Mark(errors.Wrap(openErr, "opening zip entry"), ErrArchiveFormat)
		}

		path, writeErr := extractToFile(dest, rc)

		_ = rc.Close()

		if writeErr != nil {
			cleanup()

			return "", nil, writeErr
		}

		return path, cleanup, nil
	}

	cleanup()

	return "", nil, errors.Wrapf(ErrBinaryNotFound, "no entry named %q", expectedName)
}

// safePath validates that name resolves to a path within baseDir,
// preventing path traversal (Zip Slip) from crafted archive entries.
func safePath(baseDir, name string) (string, error) {
	dest := filepath.Join(baseDir, name)

	cleanBase := filepath.Clean(baseDir) + string(os.PathSeparator)
	cleanDest := filepath.Clean(dest)

	if !strings.HasPrefix(cleanDest, cleanBase) {
		return "", errors.Newf("path traversal attempt: %q escapes %q", name, baseDir)
	}

	return cleanDest, nil
}

// extractToFile writes data from reader to destPath with executable permissions.
//
//nolint:gosec // G304: destPath is within our temp directory, not user-controlled
func extractToFile(destPath string, reader io.Reader) (string, error) {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, binaryFileMode)
	if err != nil {
		return "", errors.Wrap(err, "creating extracted file")
	}

	_, copyErr := io.Copy(out, reader)

	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return "", errors.Wrap(closeErr, "closing extracted file")
	}

	if copyErr != nil {
		return "", errors.Wrap(copyErr, "extracting binary")
	}

	return destPath, nil
}
