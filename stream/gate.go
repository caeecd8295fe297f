package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/internal/metrics"
	"github.com/jrsteele09/go-sponsor-gate/storage"
)

const (
	defaultMediaURLTTL      = 5 * time.Minute
	defaultMetadataURLTTL   = time.Minute
	defaultMaxManifestBytes = 1 << 20
	maxMetadataBytes        = 1 << 20
)

var (
	contentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
	segmentPattern   = regexp.MustCompile(`^segment_\d+\.ts$`)
)

// ValidContentID reports whether id is an acceptable content identifier.
func ValidContentID(id string) bool {
	return contentIDPattern.MatchString(id)
}

// ValidSegmentName reports whether name is an acceptable segment file name.
func ValidSegmentName(name string) bool {
	return segmentPattern.MatchString(name)
}

// Objects opens stored content. storage.Client implements it.
type Objects interface {
	Open(ctx context.Context, contentID, filename string, ttl time.Duration) (io.ReadCloser, int64, error)
}

// Authorizer verifies a session token. auth.SessionVerifier implements it.
type Authorizer interface {
	Verify(rawToken string) (*auth.AuthorizationResult, error)
}

// ManifestRequest asks for the playlist of one piece of content.
type ManifestRequest struct {
	ContentID   string
	Token       string
	TokenSource auth.TokenSource
}

// SegmentRequest asks for one media segment.
type SegmentRequest struct {
	ContentID string
	Segment   string
	Token     string
}

// Gate serves HLS playlists and segments to holders of a session token for
// the content's owner.
type Gate struct {
	objects          Objects
	sessions         Authorizer
	baseURL          string
	mediaURLTTL      time.Duration
	metadataURLTTL   time.Duration
	maxManifestBytes int64
}

// GateOption defines a function type to modify the Gate instance.
type GateOption func(*Gate)

func WithMaxManifestBytes(n int64) GateOption {
	return func(g *Gate) {
		if n > 0 {
			g.maxManifestBytes = n
		}
	}
}

// WithSignedURLTTLs overrides how long storage URLs stay valid for media and metadata.
func WithSignedURLTTLs(media, metadata time.Duration) GateOption {
	return func(g *Gate) {
		if media > 0 {
			g.mediaURLTTL = media
		}
		if metadata > 0 {
			g.metadataURLTTL = metadata
		}
	}
}

// NewGate creates a gate. baseURL is the public origin used in rewritten playlists.
func NewGate(objects Objects, sessions Authorizer, baseURL string, options ...GateOption) (*Gate, error) {
	if objects == nil {
		return nil, errors.New("[NewGate] objects is required")
	}
	if sessions == nil {
		return nil, errors.New("[NewGate] session authorizer is required")
	}
	if baseURL == "" {
		return nil, errors.New("[NewGate] base URL is required")
	}
	g := &Gate{
		objects:          objects,
		sessions:         sessions,
		baseURL:          strings.TrimRight(baseURL, "/"),
		mediaURLTTL:      defaultMediaURLTTL,
		metadataURLTTL:   defaultMetadataURLTTL,
		maxManifestBytes: defaultMaxManifestBytes,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// ServeManifest authorizes the request and returns the playlist with every
// segment reference pointing back through the gate.
func (g *Gate) ServeManifest(ctx context.Context, req ManifestRequest) ([]byte, error) {
	body, err := g.serveManifest(ctx, req)
	metrics.IncStreamRequest("manifest", resultCode(err))
	return body, err
}

func (g *Gate) serveManifest(ctx context.Context, req ManifestRequest) ([]byte, error) {
	if !ValidContentID(req.ContentID) {
		return nil, invalidContentID()
	}
	if err := g.authorize(ctx, req.ContentID, req.Token); err != nil {
		return nil, err
	}

	body, _, err := g.objects.Open(ctx, req.ContentID, storage.ManifestFile, g.mediaURLTTL)
	if err != nil {
		return nil, storageError(err, "manifest_not_found", "Playlist not found")
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, g.maxManifestBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "storage_unavailable", err, "Could not read the playlist")
	}
	if int64(len(raw)) > g.maxManifestBytes {
		return nil, apperrors.New(apperrors.KindUpstream, "manifest_too_large", "The playlist is too large")
	}

	tokenParam := ""
	if req.TokenSource == auth.SourceQuery {
		tokenParam = req.Token
	}
	rewritten, err := g.rewriteManifest(raw, req.ContentID, tokenParam)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "invalid_manifest", err, "The playlist could not be processed")
	}
	return rewritten, nil
}

// ServeSegment authorizes the request and opens the segment. The caller must
// close the returned body.
func (g *Gate) ServeSegment(ctx context.Context, req SegmentRequest) (io.ReadCloser, int64, error) {
	body, size, err := g.serveSegment(ctx, req)
	metrics.IncStreamRequest("segment", resultCode(err))
	return body, size, err
}

func (g *Gate) serveSegment(ctx context.Context, req SegmentRequest) (io.ReadCloser, int64, error) {
	if !ValidContentID(req.ContentID) {
		return nil, 0, invalidContentID()
	}
	if !ValidSegmentName(req.Segment) {
		return nil, 0, apperrors.New(apperrors.KindInvalidInput, "invalid_segment", "Invalid segment name")
	}
	if err := g.authorize(ctx, req.ContentID, req.Token); err != nil {
		return nil, 0, err
	}

	body, size, err := g.objects.Open(ctx, req.ContentID, req.Segment, g.mediaURLTTL)
	if err != nil {
		return nil, 0, storageError(err, "segment_not_found", "Segment not found")
	}
	return body, size, nil
}

// Metadata returns the stored metadata document of contentID.
func (g *Gate) Metadata(ctx context.Context, contentID string) (*Metadata, error) {
	if !ValidContentID(contentID) {
		return nil, invalidContentID()
	}
	body, _, err := g.objects.Open(ctx, contentID, storage.MetadataFile, g.metadataURLTTL)
	if err != nil {
		return nil, storageError(err, "content_not_found", "Content not found")
	}
	defer body.Close()

	var md Metadata
	if err := json.NewDecoder(io.LimitReader(body, maxMetadataBytes)).Decode(&md); err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "invalid_metadata",
			fmt.Errorf("[Gate Metadata] %s: %w", contentID, err), "Content metadata is unreadable")
	}
	return &md, nil
}

// authorize checks the token, then resolves the owner of contentID and
// compares it with the creator the session was issued for. Storage is only
// consulted for tokens that verify.
func (g *Gate) authorize(ctx context.Context, contentID, rawToken string) error {
	if rawToken == "" {
		return apperrors.Wrap(apperrors.KindUnauthorized, "no_credential", apperrors.ErrNoCredential, "A sponsor session is required")
	}
	session, err := g.sessions.Verify(rawToken)
	if err != nil {
		return err
	}
	md, err := g.Metadata(ctx, contentID)
	if err != nil {
		return err
	}
	if md.GitHubUser == "" {
		return apperrors.New(apperrors.KindNotFound, "content_not_found", "Content has no owner")
	}
	return session.CheckCreator(md.GitHubUser)
}

// rewriteManifest points every segment URI at the gate. Tags, comments and
// URIs that are not segments pass through untouched.
func (g *Gate) rewriteManifest(raw []byte, contentID, tokenParam string) ([]byte, error) {
	prefix := g.baseURL + "/stream/" + url.PathEscape(contentID) + "/"
	suffix := ""
	if tokenParam != "" {
		suffix = "?" + auth.TokenQueryParam + "=" + url.QueryEscape(tokenParam)
	}

	var out bytes.Buffer
	out.Grow(len(raw) + len(raw)/4)

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			if name := segmentName(trimmed); name != "" {
				line = prefix + name + suffix
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return out.Bytes(), nil
}

// segmentName returns the segment file name a URI line refers to, or "".
func segmentName(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	if u, err := url.Parse(uri); err == nil {
		uri = u.Path
	}
	name := path.Base(uri)
	if !ValidSegmentName(name) {
		return ""
	}
	return name
}

func invalidContentID() error {
	return apperrors.New(apperrors.KindInvalidInput, "invalid_content_id", "Invalid content identifier")
}

func storageError(err error, notFoundCode, notFoundMessage string) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, notFoundCode, err, notFoundMessage)
	}
	return apperrors.Wrap(apperrors.KindUpstream, "storage_unavailable", err, "Content storage is unavailable")
}

func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.CodeOf(err)
}
