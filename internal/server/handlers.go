package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/statelayout/pkg/chart"
	"github.com/matzehuels/statelayout/pkg/errors"
	"github.com/matzehuels/statelayout/pkg/pipeline"
	"github.com/matzehuels/statelayout/pkg/store"
)

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

type listBody struct {
	Layouts []*store.Document `json:"layouts"`
}

type healthBody struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatus(code)

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store unreachable", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "degraded", Store: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Store: "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return
	}
	if len(data) == 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "empty request body"))
		return
	}

	format, err := requestFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := s.runner.Execute(r.Context(), pipeline.Options{
		Data:      data,
		Format:    format,
		Name:      q.Get("name"),
		Direction: strings.ToUpper(q.Get("direction")),
		Timeout:   s.timeout,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := q.Get("name")
	if name == "" {
		name = res.Definition.ID
	}
	doc := store.NewDocument(name, res.Layout)
	doc.Format = string(format)
	doc.DurationMS = res.Stats.LayoutTime.Milliseconds()
	if err := s.store.Save(r.Context(), doc); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "save layout"))
		return
	}

	w.Header().Set("Location", "/api/v1/layouts/"+doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be between 1 and %d", MaxListLimit))
			return
		}
		limit = n
	}
	docs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "list layouts"))
		return
	}
	if docs == nil {
		docs = []*store.Document{}
	}
	writeJSON(w, http.StatusOK, listBody{Layouts: docs})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !store.ValidID(id) {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "layout %s not found", id))
		return
	}
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, storeError(err, id))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !store.ValidID(id) {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "layout %s not found", id))
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, storeError(err, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func storeError(err error, id string) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.Wrap(errors.ErrCodeNotFound, err, "layout %s not found", id)
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "load layout %s", id)
}

// =============================================================================
// Content Negotiation
// =============================================================================

var mediaFormats = map[string]chart.Format{
	"application/json":   chart.FormatJSON,
	"application/yaml":   chart.FormatYAML,
	"application/x-yaml": chart.FormatYAML,
	"text/yaml":          chart.FormatYAML,
	"application/toml":   chart.FormatTOML,
	"text/plain":         chart.FormatJSON,
}

// requestFormat picks the definition encoding: the format query parameter
// wins over Content-Type, and JSON is assumed when neither is given.
func requestFormat(r *http.Request) (chart.Format, error) {
	if v := r.URL.Query().Get("format"); v != "" {
		return chart.ParseFormat(v)
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return chart.FormatJSON, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidFormat, err, "bad content type %q", ct)
	}
	f, ok := mediaFormats[mt]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported content type %q", mt)
	}
	return f, nil
}
