package storage_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/storage"
	"github.com/jrsteele09/go-sponsor-gate/storage/fakestorage"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*fakestorage.FakeStorage, *storage.Client) {
	t.Helper()
	fake := fakestorage.New()
	t.Cleanup(fake.Close)
	client, err := storage.NewClient(fake, storage.WithHTTPClient(fake.HTTPClient()))
	require.NoError(t, err)
	return fake, client
}

func TestClient_Open(t *testing.T) {
	fake, client := setup(t)
	fake.Put("video1", "segment_0.ts", []byte("mpegts-bytes"))

	body, size, err := client.Open(context.Background(), "video1", "segment_0.ts", 5*time.Minute)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "mpegts-bytes", string(data))
	require.Equal(t, int64(len("mpegts-bytes")), size)
	require.Equal(t, []fakestorage.SignRequest{{Key: "video1/segment_0.ts", TTL: 5 * time.Minute}}, fake.Signed())
}

func TestClient_OpenErrors(t *testing.T) {
	fake, client := setup(t)
	ctx := context.Background()

	t.Run("missing object", func(t *testing.T) {
		_, _, err := client.Open(ctx, "video1", "absent.ts", time.Minute)
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("forbidden is reported as missing", func(t *testing.T) {
		fake.SetStatus("video1", "private.ts", http.StatusForbidden)
		_, _, err := client.Open(ctx, "video1", "private.ts", time.Minute)
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		fake.SetStatus("video1", "broken.ts", http.StatusInternalServerError)
		_, _, err := client.Open(ctx, "video1", "broken.ts", time.Minute)
		var fetchErr *storage.FetchError
		require.ErrorAs(t, err, &fetchErr)
		require.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
		require.NotErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("signing failure", func(t *testing.T) {
		fake.SignErr = errors.New("no credentials")
		defer func() { fake.SignErr = nil }()
		_, _, err := client.Open(ctx, "video1", "segment_0.ts", time.Minute)
		var fetchErr *storage.FetchError
		require.ErrorAs(t, err, &fetchErr)
	})
}

// staticBackend signs every object as a plain URL on one server.
type staticBackend string

func (b staticBackend) SignedURL(_ context.Context, contentID, filename string, _ time.Duration) (string, error) {
	return string(b) + "/" + storage.Key(contentID, filename), nil
}

func slowBodyServer(t *testing.T, pause time.Duration) *httptest.Server {
	t.Helper()
	chunk := strings.Repeat("x", 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2048")
		_, _ = io.WriteString(w, chunk)
		w.(http.Flusher).Flush()
		time.Sleep(pause)
		_, _ = io.WriteString(w, chunk)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_OpenStreamsSlowBodies(t *testing.T) {
	srv := slowBodyServer(t, 400*time.Millisecond)

	clients := map[string][]storage.ClientOption{
		"default client":       nil,
		"short header timeout": {storage.WithHTTPClient(&http.Client{Transport: storage.NewTransport(200 * time.Millisecond)})},
	}
	for name, options := range clients {
		t.Run(name, func(t *testing.T) {
			client, err := storage.NewClient(staticBackend(srv.URL), options...)
			require.NoError(t, err)

			body, size, err := client.Open(context.Background(), "video1", "segment_0.ts", time.Minute)
			require.NoError(t, err)
			defer body.Close()
			require.Equal(t, int64(2048), size)

			copied, err := io.Copy(io.Discard, body)
			require.NoError(t, err)
			require.Equal(t, int64(2048), copied)
		})
	}
}

func TestClient_OpenBoundsResponseHeaders(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client, err := storage.NewClient(staticBackend(srv.URL),
		storage.WithHTTPClient(&http.Client{Transport: storage.NewTransport(100 * time.Millisecond)}))
	require.NoError(t, err)

	_, _, err = client.Open(context.Background(), "video1", "segment_0.ts", time.Minute)
	var fetchErr *storage.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestKey(t *testing.T) {
	require.Equal(t, "abc/playlist.m3u8", storage.Key("abc", storage.ManifestFile))
}
