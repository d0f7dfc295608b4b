package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/castscribe/castscribe/internal/fetch"
)

func audioPayload(n int) []byte {
	return append([]byte("ID3\x04\x00"), bytes.Repeat([]byte{0xAB}, n-5)...)
}

func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("downloads the body", func(t *testing.T) {
		t.Parallel()

		payload := audioPayload(4096)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("User-Agent"); got == "" || got == "Go-http-client/1.1" {
				t.Errorf("expected a browser-like User-Agent, got %q", got)
			}
			_, _ = w.Write(payload)
		}))
		defer srv.Close()

		data, err := fetch.New().Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if !bytes.Equal(data, payload) {
			t.Errorf("payload mismatch: got %d bytes, want %d", len(data), len(payload))
		}
	})

	t.Run("follows a short redirect chain", func(t *testing.T) {
		t.Parallel()

		payload := audioPayload(2048)
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/start":
				http.Redirect(w, r, srv.URL+"/final", http.StatusFound)
			default:
				_, _ = w.Write(payload)
			}
		}))
		defer srv.Close()

		data, err := fetch.New().Fetch(context.Background(), srv.URL+"/start")
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if len(data) != len(payload) {
			t.Errorf("got %d bytes, want %d", len(data), len(payload))
		}
	})

	t.Run("rejects an endless redirect loop", func(t *testing.T) {
		t.Parallel()

		var srv *httptest.Server
		var hop atomic.Int32
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next := hop.Add(1)
			http.Redirect(w, r, fmt.Sprintf("%s/hop%d", srv.URL, next), http.StatusFound)
		}))
		defer srv.Close()

		_, err := fetch.New().Fetch(context.Background(), srv.URL)
		if !errors.Is(err, fetch.ErrTooManyRedirects) {
			t.Errorf("err = %v, want ErrTooManyRedirects", err)
		}
	})

	t.Run("non-2xx surfaces as HTTPError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := fetch.New().Fetch(context.Background(), srv.URL)
		var httpErr *fetch.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("err = %v, want *HTTPError", err)
		}
		if httpErr.Status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", httpErr.Status)
		}
	})

	t.Run("tiny body is an invalid payload", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not audio</html>"))
		}))
		defer srv.Close()

		_, err := fetch.New().Fetch(context.Background(), srv.URL)
		if !errors.Is(err, fetch.ErrInvalidPayload) {
			t.Errorf("err = %v, want ErrInvalidPayload", err)
		}
	})

	t.Run("progress reports the final byte count", func(t *testing.T) {
		t.Parallel()

		payload := audioPayload(8192)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer srv.Close()

		var last atomic.Int64
		f := fetch.New(fetch.WithProgress(func(n int64) { last.Store(n) }))
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if last.Load() != int64(len(payload)) {
			t.Errorf("last progress = %d, want %d", last.Load(), len(payload))
		}
	})

	t.Run("cancelled context aborts the download", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(audioPayload(2048))
		}))
		defer srv.Close()

		_, err := fetch.New().Fetch(ctx, srv.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		t.Parallel()

		payload := audioPayload(2048)
		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write(payload)
		}))
		defer srv.Close()

		data, err := fetch.New().Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if len(data) != len(payload) {
			t.Errorf("got %d bytes, want %d", len(data), len(payload))
		}
		if attempts.Load() < 2 {
			t.Errorf("attempts = %d, want at least 2", attempts.Load())
		}
	})
}
