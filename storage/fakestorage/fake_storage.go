package fakestorage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/storage"
)

var _ storage.Backend = (*FakeStorage)(nil)

// SignRequest records one call to SignedURL.
type SignRequest struct {
	Key string
	TTL time.Duration
}

// FakeStorage is an in-memory bucket served over httptest. Its signed URLs
// carry an expiry and an HMAC so tests exercise the real fetch path.
type FakeStorage struct {
	server  *httptest.Server
	objects map[string][]byte
	status  map[string]int
	signed  []SignRequest
	secret  []byte
	lock    sync.RWMutex

	// SignErr, when set, is returned by SignedURL.
	SignErr error
	nowTime func() time.Time
}

func New() *FakeStorage {
	f := &FakeStorage{
		objects: make(map[string][]byte),
		status:  make(map[string]int),
		secret:  []byte("fake-storage-signing-key"),
		nowTime: time.Now,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeStorage) Close() {
	f.server.Close()
}

// HTTPClient returns a client that can reach the fake bucket.
func (f *FakeStorage) HTTPClient() *http.Client {
	return f.server.Client()
}

func (f *FakeStorage) Put(contentID, filename string, data []byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.objects[storage.Key(contentID, filename)] = append([]byte(nil), data...)
}

// SetStatus forces the bucket to answer status for an object.
func (f *FakeStorage) SetStatus(contentID, filename string, status int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.status[storage.Key(contentID, filename)] = status
}

// Signed returns every SignedURL request made so far.
func (f *FakeStorage) Signed() []SignRequest {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]SignRequest(nil), f.signed...)
}

func (f *FakeStorage) SignedURL(_ context.Context, contentID, filename string, ttl time.Duration) (string, error) {
	if f.SignErr != nil {
		return "", f.SignErr
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	key := storage.Key(contentID, filename)

	f.lock.Lock()
	f.signed = append(f.signed, SignRequest{Key: key, TTL: ttl})
	f.lock.Unlock()

	expires := strconv.FormatInt(f.nowTime().Add(ttl).Unix(), 10)
	q := url.Values{}
	q.Set("expires", expires)
	q.Set("sig", f.sign(key, expires))
	return f.server.URL + "/" + key + "?" + q.Encode(), nil
}

func (f *FakeStorage) sign(key, expires string) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func (f *FakeStorage) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	expires := r.URL.Query().Get("expires")
	if !hmac.Equal([]byte(f.sign(key, expires)), []byte(r.URL.Query().Get("sig"))) {
		http.Error(w, "SignatureDoesNotMatch", http.StatusForbidden)
		return
	}
	if exp, err := strconv.ParseInt(expires, 10, 64); err != nil || f.nowTime().Unix() > exp {
		http.Error(w, "AccessDenied: Request has expired", http.StatusForbidden)
		return
	}

	f.lock.RLock()
	status, forced := f.status[key]
	data, ok := f.objects[key]
	f.lock.RUnlock()

	switch {
	case forced:
		http.Error(w, http.StatusText(status), status)
	case !ok:
		http.Error(w, "NoSuchKey", http.StatusNotFound)
	default:
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}
}
