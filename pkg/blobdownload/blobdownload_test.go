package blobdownload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDownloadWritesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	c := New()
	var buf bytes.Buffer
	result, err := c.Download(context.Background(), srv.URL, &buf, 0)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "hello world" {
		t.Errorf("got %q", buf.String())
	}
	if result.BytesWritten != 11 {
		t.Errorf("got %d bytes written", result.BytesWritten)
	}
	if result.ContentType != "image/jpeg" {
		t.Errorf("got content type %q, want charset stripped", result.ContentType)
	}
}

func TestDownloadDefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A nil value keeps net/http from sniffing and adding a Content-Type.
		w.Header()["Content-Type"] = nil
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := New()
	var buf bytes.Buffer
	result, err := c.Download(context.Background(), srv.URL, &buf, 0)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if result.ContentType != "image/png" {
		t.Errorf("got %q, want default image/png", result.ContentType)
	}
}

func TestDownloadFailsPreStreamOnContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := strings.Repeat("a", 100)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := New()
	var buf bytes.Buffer
	_, err := c.Download(context.Background(), srv.URL, &buf, 10)
	if !errors.Is(err, ErrFileSizeExceeded) {
		t.Fatalf("got %v, want ErrFileSizeExceeded", err)
	}
}

func TestDownloadFailsMidStreamWhenLengthUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer srv.Close()

	c := New()
	var buf bytes.Buffer
	_, err := c.Download(context.Background(), srv.URL, &buf, 10)
	if !errors.Is(err, ErrFileSizeExceeded) {
		t.Fatalf("got %v, want ErrFileSizeExceeded", err)
	}
}

func TestDownloadRedirectBound(t *testing.T) {
	var target string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for i := 0; i < 7; i++ {
		i := i
		mux.HandleFunc(fmt.Sprintf("/hop%d", i), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, fmt.Sprintf("%s/hop%d", srv.URL, i+1), http.StatusFound)
		})
	}
	mux.HandleFunc("/hop7", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	target = srv.URL + "/hop0"

	c := New()
	var buf bytes.Buffer
	_, err := c.Download(context.Background(), target, &buf, 0)
	if !errors.Is(err, ErrDownloadError) {
		t.Fatalf("got %v, want ErrDownloadError for exceeding redirect bound", err)
	}
}

func TestHeadReturnsContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "42")
	}))
	defer srv.Close()

	c := New()
	result, err := c.Head(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if result.ContentType != "image/png" {
		t.Errorf("got %q", result.ContentType)
	}
	if result.ContentLength != 42 {
		t.Errorf("got content length %d, want 42", result.ContentLength)
	}
}
