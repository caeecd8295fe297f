package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/internal/metrics"
)

// Well-known object names stored next to every piece of content.
const (
	ManifestFile = "playlist.m3u8"
	MetadataFile = "metadata.json"
)

// ErrObjectNotFound is returned when storage answers 404 or 403 for an object.
var ErrObjectNotFound = errors.New("object not found")

// Backend produces short-lived signed GET URLs for content objects. Objects
// live at "<contentID>/<filename>".
type Backend interface {
	SignedURL(ctx context.Context, contentID, filename string, ttl time.Duration) (string, error)
}

// Key is the object key of filename within contentID.
func Key(contentID, filename string) string {
	return contentID + "/" + filename
}

// FetchError is a storage failure other than a missing object.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("storage fetch failed with status %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const defaultHeaderTimeout = 30 * time.Second

// NewTransport returns the transport used for object fetches. Dialing, the TLS
// handshake and the wait for response headers are bounded by timeout. Reading
// the body is not: segments stream to the viewer at the viewer's pace and end
// with the caller's context.
func NewTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// Client opens objects by signing a URL and fetching it.
type Client struct {
	backend    Backend
	httpClient *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the fetch client. It should not set Client.Timeout,
// which would also cut off bodies that are still streaming.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(backend Backend, options ...ClientOption) (*Client, error) {
	if backend == nil {
		return nil, errors.New("[storage NewClient] backend is required")
	}
	c := &Client{
		backend:    backend,
		httpClient: &http.Client{Transport: NewTransport(defaultHeaderTimeout)},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Open returns the body of contentID/filename and its length (-1 if unknown).
// The caller must close the body.
func (c *Client) Open(ctx context.Context, contentID, filename string, ttl time.Duration) (io.ReadCloser, int64, error) {
	defer metrics.ObserveUpstream("storage", time.Now())

	signed, err := c.backend.SignedURL(ctx, contentID, filename, ttl)
	if err != nil {
		return nil, 0, &FetchError{Err: fmt.Errorf("[storage Open] signing %s: %w", Key(contentID, filename), err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed, nil)
	if err != nil {
		return nil, 0, &FetchError{Err: fmt.Errorf("[storage Open] %w", err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &FetchError{Err: fmt.Errorf("[storage Open] %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("[storage Open] %s: %w", Key(contentID, filename), ErrObjectNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, 0, &FetchError{StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}
