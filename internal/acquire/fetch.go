package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
	"github.com/PolarWolf314/buildseal/internal/logging"
)

const (
	// ArchiveFileName is the downloaded snapshot inside the work directory.
	ArchiveFileName = "repo.zip"

	// ExtractDirName is the directory the snapshot is unpacked into.
	ExtractDirName = "repo"

	maxArchiveBytes = 1 << 30
)

// Snapshot describes a fetched and unpacked repository.
type Snapshot struct {
	URL     string // Archive URL that was downloaded.
	Archive string // Local path of the downloaded archive.
	Root    string // Directory the archive was extracted into.
	Files   int    // Regular files extracted.
}

// Options configures a Fetcher.
type Options struct {
	WorkDir       string
	ArchiveSuffix string
	Timeout       time.Duration
	Retries       int
}

// Fetcher downloads repository snapshots and unpacks them.
type Fetcher struct {
	WorkDir       string
	ArchiveSuffix string
	Client        *retryablehttp.Client
}

// NewFetcher returns a Fetcher whose HTTP client retries transient failures
// and logs retries through log.
func NewFetcher(opts Options, log *logger.Logger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	if log != nil {
		client.Logger = leveledLogger{log}
	} else {
		client.Logger = nil
	}

	return &Fetcher{
		WorkDir:       opts.WorkDir,
		ArchiveSuffix: opts.ArchiveSuffix,
		Client:        client,
	}
}

// Paths returns the archive and extraction paths owned by the fetcher.
func (f *Fetcher) Paths() (archive, root string) {
	return filepath.Join(f.WorkDir, ArchiveFileName), filepath.Join(f.WorkDir, ExtractDirName)
}

// Fetch downloads the snapshot for locator into the work directory and
// extracts it, replacing any previous extraction. Network and HTTP status
// failures are ErrFetchFailed; archive problems are ErrInvalidArchive.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*Snapshot, error) {
	url := ArchiveURL(locator, f.ArchiveSuffix)
	archive, root := f.Paths()

	if err := os.MkdirAll(f.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating work dir %s: %v", kerrors.ErrIOFailure, f.WorkDir, err)
	}

	if err := f.download(ctx, url, archive); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("%w: clearing %s: %v", kerrors.ErrIOFailure, root, err)
	}
	files, err := Extract(archive, root)
	if err != nil {
		return nil, err
	}

	return &Snapshot{URL: url, Archive: archive, Root: root, Files: files}, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrFetchFailed, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(fmt.Errorf("%w: %s", kerrors.ErrFetchFailed, url), ctxErr)
		}
		return fmt.Errorf("%w: %s: %v", kerrors.ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: HTTP %d", kerrors.ErrFetchFailed, url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxArchiveBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("%w: %s: reading body: %v", kerrors.ErrFetchFailed, url, err)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIOFailure, closeErr)
	}
	if n > maxArchiveBytes {
		return fmt.Errorf("%w: %s: archive exceeds %d bytes", kerrors.ErrFetchFailed, url, int64(maxArchiveBytes))
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIOFailure, err)
	}
	return nil
}

// leveledLogger routes HTTP client diagnostics to the CLI logger.
type leveledLogger struct {
	l *logger.Logger
}

func (ll leveledLogger) Error(msg string, kv ...interface{}) { ll.l.Debugf("http: %s %v", msg, kv) }
func (ll leveledLogger) Info(msg string, kv ...interface{})  { ll.l.Debugf("http: %s %v", msg, kv) }
func (ll leveledLogger) Debug(msg string, kv ...interface{}) { ll.l.Debugf("http: %s %v", msg, kv) }
func (ll leveledLogger) Warn(msg string, kv ...interface{})  { ll.l.Infof("http: %s %v", msg, kv) }
