// Package blobdownload streams a remote blob into a caller-supplied sink
// while enforcing a maximum size and a bound on redirect hops.
package blobdownload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

// ErrFileSizeExceeded is returned when the content exceeds the caller's
// max size, either by the content-length header or mid-stream.
var ErrFileSizeExceeded = errors.New("blobdownload: file size exceeded")

// ErrDownloadError wraps network failures and exhausted redirect budgets.
var ErrDownloadError = errors.New("blobdownload: download failed")

const (
	maxRedirects       = 5
	defaultContentType = "image/png"
)

// HeadResult is the outcome of a HEAD probe.
type HeadResult struct {
	ContentLength int64 // -1 if unknown
	ContentType   string
}

// DownloadResult is the outcome of a streamed download.
type DownloadResult struct {
	BytesWritten int64
	ContentType  string
}

// Client downloads blobs over HTTP, following a bounded number of
// redirects and stopping a stream that exceeds a caller-supplied cap.
type Client struct {
	httpClient *http.Client
}

// New creates a Client with a redirect policy that raises DownloadError
// past the 5th hop, per the spec's redirect bound.
func New() *Client {
	c := &Client{}
	c.httpClient = &http.Client{
		Timeout: 60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects+1 {
				return fmt.Errorf("%w: too many redirects", ErrDownloadError)
			}
			return nil
		},
	}
	return c
}

// Head probes a URL for its size and content type without downloading the
// body.
func (c *Client) Head(ctx context.Context, url string) (*HeadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrDownloadError, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return &HeadResult{
		ContentLength: resp.ContentLength,
		ContentType:   normalizeContentType(resp.Header.Get("Content-Type")),
	}, nil
}

// Download streams url into sink, counting bytes as it writes. maxSize <= 0
// means unbounded.
func (c *Client) Download(ctx context.Context, url string, sink io.Writer, maxSize int64) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrDownloadError, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if maxSize > 0 && resp.ContentLength > maxSize {
		return nil, ErrFileSizeExceeded
	}

	contentType := normalizeContentType(resp.Header.Get("Content-Type"))

	written, err := copyWithCap(sink, resp.Body, maxSize)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{BytesWritten: written, ContentType: contentType}, nil
}

// copyWithCap copies src to dst chunk by chunk, failing with
// ErrFileSizeExceeded as soon as the running count would exceed maxSize.
// maxSize <= 0 means unbounded.
func copyWithCap(dst io.Writer, src io.Reader, maxSize int64) (int64, error) {
	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)

	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if maxSize > 0 && total > maxSize {
				return total, ErrFileSizeExceeded
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return total, fmt.Errorf("%w: writing to sink: %v", ErrDownloadError, writeErr)
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, fmt.Errorf("%w: %v", ErrDownloadError, readErr)
		}
	}
}

// normalizeContentType strips any charset parameter and falls back to a
// PNG-like default when the header is absent.
func normalizeContentType(header string) string {
	if header == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return defaultContentType
	}
	return mediaType
}
