package store

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 10000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var (
		mu       sync.Mutex
		statuses []Status
	)
	d := NewDownloader(WithStatusCallback(func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, s)
	}))

	got, err := d.Download(context.Background(), srv.URL+"/hello.bin")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("downloaded bytes differ")
	}

	st := d.Status()
	if st.State != StateComplete || st.BytesReceived != int64(len(payload)) || st.Percent != 100 {
		t.Errorf("Status() = %+v", st)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) < 3 {
		t.Fatalf("got %d status updates, want at least 3", len(statuses))
	}
	if statuses[0].State != StateConnecting {
		t.Errorf("first state = %v, want connecting", statuses[0].State)
	}
	if statuses[1].State != StateDownloading {
		t.Errorf("second state = %v, want downloading", statuses[1].State)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := NewDownloader()
	_, err := d.Download(context.Background(), srv.URL+"/missing.bin")

	var he *HTTPStatusError
	if !errors.As(err, &he) {
		t.Fatalf("Download() error = %v, want HTTPStatusError", err)
	}
	if he.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", he.StatusCode)
	}
	if st := d.Status(); st.State != StateFailed || st.Err == nil {
		t.Errorf("Status() = %+v, want failed", st)
	}
}

func TestDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	d := NewDownloader(WithDownloadLimit(1024))
	if _, err := d.Download(context.Background(), srv.URL); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Download() error = %v, want ErrTooLarge", err)
	}
}

func TestDownloadTooLargeChunked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			_, _ = w.Write(make([]byte, 512))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	d := NewDownloader(WithDownloadLimit(1024))
	if _, err := d.Download(context.Background(), srv.URL); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Download() error = %v, want ErrTooLarge", err)
	}
}

func TestDownloadCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := NewDownloader()
	result := make(chan error, 1)
	go func() {
		_, err := d.Download(context.Background(), srv.URL)
		result <- err
	}()

	deadline := time.After(5 * time.Second)
	for d.Status().State != StateConnecting {
		select {
		case <-deadline:
			t.Fatal("download never started")
		case <-time.After(10 * time.Millisecond):
		}
	}
	time.Sleep(50 * time.Millisecond)
	d.Cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Download() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Cancel() did not stop the download")
	}
	if st := d.Status(); st.State != StateCancelled {
		t.Errorf("State = %v, want cancelled", st.State)
	}
}

func TestDownloadToStore(t *testing.T) {
	pkg := testPackage(t, "remote", 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.bin":
			_, _ = w.Write(pkg)
		default:
			_, _ = w.Write([]byte("<html>not a package</html>"))
		}
	}))
	defer srv.Close()

	s := openTestStore(t)
	d := NewDownloader()

	entry, err := d.DownloadToStore(context.Background(), srv.URL+"/good.bin", "remote", s)
	if err != nil {
		t.Fatalf("DownloadToStore() error = %v", err)
	}
	if entry.Header == nil || entry.Header.Name != "remote" {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := d.DownloadToStore(context.Background(), srv.URL+"/bad.bin", "bad", s); err == nil {
		t.Error("DownloadToStore() stored a non-package")
	}
	if ok, _ := s.Exists("bad"); ok {
		t.Error("invalid download was stored")
	}

	if _, err := d.DownloadToStore(context.Background(), srv.URL+"/good.bin", "../x", s); !errors.Is(err, ErrInvalidName) {
		t.Errorf("error = %v, want ErrInvalidName", err)
	}
}

func TestDownloadStateString(t *testing.T) {
	for state, want := range map[DownloadState]string{
		StateIdle:         "idle",
		StateConnecting:   "connecting",
		StateDownloading:  "downloading",
		StateComplete:     "complete",
		StateFailed:       "failed",
		StateCancelled:    "cancelled",
		DownloadState(99): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
