package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// DownloadState is the phase of a download.
type DownloadState int

const (
	StateIdle DownloadState = iota
	StateConnecting
	StateDownloading
	StateComplete
	StateFailed
	StateCancelled
)

func (s DownloadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateDownloading:
		return "downloading"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Status is a snapshot of download progress.
type Status struct {
	URL           string
	State         DownloadState
	BytesReceived int64

	// TotalBytes is the advertised Content-Length, or -1 when unknown
	TotalBytes int64

	// Percent is 0-100, or 0 while TotalBytes is unknown
	Percent int

	Err error
}

// StatusCallback is called as a download progresses.
type StatusCallback func(Status)

// HTTPStatusError indicates the server answered with a non-200 status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("download %s: unexpected HTTP status %d %s",
		e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Downloader fetches packages over HTTP. One download runs at a time per
// Downloader; Status and Cancel may be called from other goroutines.
type Downloader struct {
	config DownloaderConfig

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	cfg := defaultDownloaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Downloader{
		config: cfg,
		status: Status{TotalBytes: -1},
	}
}

// Download fetches url and returns the response body.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	d.update(Status{URL: url, State: StateConnecting, TotalBytes: -1})
	d.logInfo("downloading", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, d.fail(url, fmt.Errorf("build request: %w", err))
	}

	resp, err := d.config.Client.Do(req)
	if err != nil {
		return nil, d.fail(url, fmt.Errorf("download %s: %w", url, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, d.fail(url, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode})
	}

	total := resp.ContentLength
	if total > d.config.MaxSize {
		return nil, d.fail(url, fmt.Errorf("download %s: %d bytes: %w", url, total, ErrTooLarge))
	}

	var body bytes.Buffer
	if total > 0 {
		body.Grow(int(total))
	}

	buf := make([]byte, 4096)
	var received int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			received += int64(n)
			if received > d.config.MaxSize {
				return nil, d.fail(url, fmt.Errorf("download %s: %w", url, ErrTooLarge))
			}
			body.Write(buf[:n])
			d.update(Status{
				URL:           url,
				State:         StateDownloading,
				BytesReceived: received,
				TotalBytes:    total,
				Percent:       percent(received, total),
			})
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, d.fail(url, fmt.Errorf("download %s: %w", url, rerr))
		}
	}

	d.update(Status{
		URL:           url,
		State:         StateComplete,
		BytesReceived: received,
		TotalBytes:    total,
		Percent:       100,
	})
	d.logInfo("download complete", "url", url, "bytes", received)

	return body.Bytes(), nil
}

// DownloadToStore fetches url and saves the package in s under name. The
// package is verified before it is written.
func (d *Downloader) DownloadToStore(ctx context.Context, url, name string, s *Store) (*Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := d.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.Save(name, data)
}

// Status returns a snapshot of the current or last download.
func (d *Downloader) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Cancel aborts the download in progress, if any.
func (d *Downloader) Cancel() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		d.logInfo("download cancel requested")
	}
}

func (d *Downloader) update(s Status) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()

	if d.config.StatusCallback != nil {
		d.config.StatusCallback(s)
	}
}

func (d *Downloader) fail(url string, err error) error {
	d.mu.Lock()
	st := d.status
	d.mu.Unlock()

	st.URL = url
	st.Err = err
	st.State = StateFailed
	if errors.Is(err, context.Canceled) {
		st.State = StateCancelled
	}
	d.update(st)

	if d.config.Logger != nil {
		d.config.Logger.Error("download failed", "url", url, "err", err)
	}
	return err
}

func (d *Downloader) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

func percent(received, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(received * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
