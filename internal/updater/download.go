package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
)

// ProgressFunc is called during download with bytes received and total bytes.
// Total may be -1 if the server doesn't send Content-Length.
type ProgressFunc func(received, total int64)

// ErrTransportFailure marks connection-level download failures where no
// HTTP response was received, as opposed to a server rejection.
var ErrTransportFailure = errors.New("download transport failure")

// StagedArchive is a temporary file holding downloaded asset bytes,
// tagged with its archive kind. Owned exclusively by the update
// pipeline and always removed before the pipeline returns.
type StagedArchive struct {
	Path string
	Kind ArchiveKind
}

// Remove deletes the staging file, ignoring errors.
func (s *StagedArchive) Remove() {
	if s != nil && s.Path != "" {
		_ = os.Remove(s.Path)
	}
}

// DownloadFailedError is returned when the asset server responds with a
// non-success status.
type DownloadFailedError struct {
	StatusCode int
	URL        string
}

// Error returns the error message.
func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed: HTTP %d from %s", e.StatusCode, e.URL)
}

// Downloader retrieves release assets over HTTP into staging files.
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a Downloader with the given HTTP client.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}

	return &Downloader{client: client}
}

// Download retrieves the asset at url into a staging file. The archive
// kind comes from the matched asset's name, decided before any bytes
// are inspected. Any 2xx status is success; everything else is a
// DownloadFailedError. The caller owns the returned staging file.
//
//nolint:gosec // G304/G704: URL comes from the release registry, staging path from os.CreateTemp
func (d *Downloader) Download(
	ctx context.Context,
	url string,
	kind ArchiveKind,
	progress ProgressFunc,
) (*StagedArchive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Mark(
			errors.Wrap(err, "downloading release asset"),
			ErrTransportFailure,
		)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &DownloadFailedError{StatusCode: resp.StatusCode, URL: url}
	}

	// Keep the extension on the staging file so a stray leftover is
	// still identifiable.
	tmp, err := os.CreateTemp("", "grove-update-*."+kind.String())
	if err != nil {
		return nil, errors.Wrap(err, "creating staging file")
	}

	staged := &StagedArchive{Path: tmp.Name(), Kind: kind}

	var reader io.Reader = resp.Body

	if progress != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			callback: progress,
		}
	}

	if _, copyErr := io.Copy(tmp, reader); copyErr != nil {
		_ = tmp.Close()

		staged.Remove()

		return nil, errors.Wrap(copyErr, "writing staging file")
	}

	if closeErr := tmp.Close(); closeErr != nil {
		staged.Remove()

		return nil, errors.Wrap(closeErr, "closing staging file")
	}

	return staged, nil
}

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	received int64
	callback ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.received += int64(n)

	if r.callback != nil {
		r.callback(r.received, r.total)
	}

	return n, err
}
