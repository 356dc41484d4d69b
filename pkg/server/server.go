// Package server exposes statement conversion over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/reubano/csv2ofx/pkg/config"
	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/service"
)

// Server handles HTTP requests for statement conversion
type Server struct {
	config *config.Config
	logger *log.Logger
	mux    *http.ServeMux
}

// New creates a new HTTP server
func New(cfg *config.Config, logger *log.Logger) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	s.setupRoutes()
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/convert", s.withLogging(s.handleConvert))
	s.mux.HandleFunc("/api/mappings", s.withLogging(s.handleMappings))
}

// handleConvert accepts a multipart upload under "statement" and returns
// the converted document. "mapping" and "format" form fields override the
// server defaults per request.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	file, header, err := r.FormFile("statement")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "statement file required", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to read file", err)
		return
	}

	// Per-request copy so form overrides don't leak between requests.
	cfg := *s.config
	if v := r.FormValue("mapping"); v != "" {
		cfg.Mapping = v
		cfg.MappingFile = ""
	}
	if v := r.FormValue("format"); v != "" {
		cfg.Format = v
	}

	processor := service.NewProcessor(&cfg, s.logger)

	var out bytes.Buffer
	if err := processor.ConvertReader(&out, bytes.NewReader(data), header.Filename, time.Now()); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "conversion failed", err)
		return
	}

	contentType := "application/x-ofx"
	if cfg.Format == "qif" {
		contentType = "application/qif"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", header.Filename+"."+cfg.Format))
	if _, err := w.Write(out.Bytes()); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"mappings": mappings.Names(),
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
