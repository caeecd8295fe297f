package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/stream"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeManifest = "application/vnd.apple.mpegurl"
	contentTypeSegment  = "video/MP2T"

	cacheControlManifest = "private, max-age=5"
	cacheControlSegment  = "private, max-age=31536000, immutable"
)

// ManifestHandler serves the rewritten playlist for a content item.
func (s *Server) ManifestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, source, _ := auth.ExtractToken(r, auth.DefaultExtractors())
		body, err := s.services.Gate.ServeManifest(r.Context(), stream.ManifestRequest{
			ContentID:   r.PathValue(pathValueContentID),
			Token:       raw,
			TokenSource: source,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentTypeManifest)
		w.Header().Set("Cache-Control", cacheControlManifest)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// SegmentHandler streams one media segment from storage to the player.
func (s *Server) SegmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _, _ := auth.ExtractToken(r, auth.DefaultExtractors())
		body, size, err := s.services.Gate.ServeSegment(r.Context(), stream.SegmentRequest{
			ContentID: r.PathValue(pathValueContentID),
			Segment:   r.PathValue(pathValueSegment),
			Token:     raw,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", contentTypeSegment)
		w.Header().Set("Cache-Control", cacheControlSegment)
		if size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, body); err != nil {
			// Headers are gone; the player sees a truncated segment and retries.
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("segment copy interrupted")
		}
	}
}

type contentStatusResponse struct {
	Exists     bool   `json:"exists"`
	ContentID  string `json:"contentId,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"`
	FilesCount int    `json:"filesCount,omitempty"`
	TotalSize  int64  `json:"totalSize,omitempty"`
	GitHubUser string `json:"githubUser,omitempty"`
}

// ContentStatusHandler reports whether a content item has been uploaded. It
// is public: it reveals the owner but no media.
func (s *Server) ContentStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID := r.PathValue(pathValueContentID)
		md, err := s.services.Gate.Metadata(r.Context(), contentID)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindNotFound {
				writeJSON(w, http.StatusNotFound, contentStatusResponse{Exists: false})
				return
			}
			writeAppError(w, err)
			return
		}

		resp := contentStatusResponse{
			Exists:     true,
			ContentID:  contentID,
			FilesCount: len(md.Files),
			TotalSize:  md.TotalSize,
			GitHubUser: md.GitHubUser,
		}
		if !md.UploadedAt.IsZero() {
			resp.UploadedAt = md.UploadedAt.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
