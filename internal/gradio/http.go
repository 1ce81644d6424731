package gradio

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	userAgent       = "go-gradiogate"
	maxBodyBytes    = 16 << 20
	maxErrorPreview = 280
)

// HTTPError is a non-2xx response from a Space or the Hub. Its message
// carries the status code.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	status := fmt.Sprintf("%d", e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		status += " " + text
	}
	msg := fmt.Sprintf("%s %s: HTTP %s", e.Method, e.URL, status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "br, gzip")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decodedBody wraps resp.Body with the decoder named by Content-Encoding.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return readCloser{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return readCloser{Reader: zr, Closer: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// checkStatus turns a non-2xx response into an *HTTPError, consuming the body.
func checkStatus(resp *http.Response, body io.Reader) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(body, 64*1024))
	return &HTTPError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       compactPreview(raw, maxErrorPreview),
	}
}

func compactPreview(raw []byte, maxLen int) string {
	clean := strings.Join(strings.Fields(string(raw)), " ")
	if len(clean) <= maxLen {
		return clean
	}
	return clean[:maxLen] + "..."
}
