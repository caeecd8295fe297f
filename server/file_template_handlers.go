package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const (
	templateCallbackSuccess = "callback_success.html"
	templateCallbackFailure = "callback_failure.html"
)

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

type pages struct {
	success *template.Template
	failure *template.Template
}

func loadPages() (pages, error) {
	success, err := ParseTemplate(templateCallbackSuccess)
	if err != nil {
		return pages{}, fmt.Errorf("[loadPages] %s: %w", templateCallbackSuccess, err)
	}
	failure, err := ParseTemplate(templateCallbackFailure)
	if err != nil {
		return pages{}, fmt.Errorf("[loadPages] %s: %w", templateCallbackFailure, err)
	}
	return pages{success: success, failure: failure}, nil
}

type successPageData struct {
	AppName      string
	CreatorID    string
	VisitorLogin string
	VisitorName  string
	IsOwner      bool
	ExpiresAt    string
}

type failurePageData struct {
	AppName string
	Code    string
	Message string
}

func (s *Server) renderSuccessPage(w http.ResponseWriter, outcome *auth.CallbackOutcome) {
	s.renderPage(w, s.pages.success, http.StatusOK, successPageData{
		AppName:      s.config.GetAppName(),
		CreatorID:    outcome.CreatorID,
		VisitorLogin: outcome.VisitorLogin,
		VisitorName:  outcome.VisitorName,
		IsOwner:      outcome.IsOwner,
		ExpiresAt:    outcome.ExpiresAt.UTC().Format(time.RFC1123),
	})
}

func (s *Server) renderFailurePage(w http.ResponseWriter, status int, code, message string) {
	s.renderPage(w, s.pages.failure, status, failurePageData{
		AppName: s.config.GetAppName(),
		Code:    code,
		Message: message,
	})
}

// renderPage executes into a buffer first so a template error never leaves a
// half-written page behind.
func (s *Server) renderPage(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
