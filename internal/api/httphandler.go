package api

import (
	"commitlens/internal/cache"
	"commitlens/internal/types"
	"commitlens/internal/worker"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 4 << 20

// Directory is the part of the employee cache the API serves.
type Directory interface {
	Lookup(ctx context.Context, email string) (*types.EmployeeRecord, bool)
	ForceRefresh(ctx context.Context) error
	Clear(ctx context.Context) error
	Stats() cache.Stats
}

// Mappings is the email mapping table of the config store.
type Mappings interface {
	AllMappings() map[string]string
	AddMapping(from, to string, persist bool) error
	RemoveMapping(email string, persist bool) (bool, error)
}

type Correlator interface {
	Rows(ctx context.Context, commits []types.CommitRecord) ([]types.CommitRow, error)
}

type Handler struct {
	Directory  Directory
	Mappings   Mappings
	Correlator Correlator
}

func NewHandler(dir Directory, mappings Mappings, corr Correlator) *Handler {
	return &Handler{
		Directory:  dir,
		Mappings:   mappings,
		Correlator: corr,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(interactive)

	r.Get("/health", h.handleHealth)
	r.Get("/employees/{email}", h.handleLookup)
	r.Post("/refresh", h.handleRefresh)
	r.Delete("/cache", h.handleClear)

	r.Route("/mappings", func(r chi.Router) {
		r.Get("/", h.handleListMappings)
		r.Put("/{from}", h.handlePutMapping)
		r.Delete("/{from}", h.handleDeleteMapping)
	})

	if h.Correlator != nil {
		r.Post("/correlate", h.handleCorrelate)
	}
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cache": h.Directory.Stats()})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	email, ok := pathParam(r, "email")
	if !ok {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	rec, found := h.Directory.Lookup(r.Context(), email)
	if !found {
		writeError(w, http.StatusNotFound, types.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.ForceRefresh(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Directory.Stats())
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.Clear(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMappings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Mappings.AllMappings())
}

type mappingRequest struct {
	To string `json:"to"`
}

func (h *Handler) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	from, ok := pathParam(r, "from")
	if !ok {
		writeError(w, http.StatusBadRequest, "source address is required")
		return
	}
	var req mappingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Mappings.AddMapping(from, req.To, true); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": from, "to": req.To})
}

func (h *Handler) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	from, ok := pathParam(r, "from")
	if !ok {
		writeError(w, http.StatusBadRequest, "source address is required")
		return
	}
	removed, err := h.Mappings.RemoveMapping(from, true)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, types.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	var commits []types.CommitRecord
	if err := decodeBody(r, &commits); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	rows, err := h.Correlator.Rows(r.Context(), commits)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, types.ErrMissingToken):
		return http.StatusPreconditionFailed
	case errors.Is(err, types.ErrRefreshFailed), errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pathParam(r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func decodeBody(r *http.Request, v any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// interactive marks every API request so cache refreshes it triggers run on the worker pool.
func interactive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(worker.WithInteractive(r.Context())))
	})
}

// requestLogger is middleware.Logger on logrus.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.WithFields(log.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Debug("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
