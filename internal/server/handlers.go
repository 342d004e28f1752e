package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/media"
)

const maxUploadBytes = 2 << 30 // 2 GiB per file

// uploadKinds maps the media kind path segment to its workspace directory
// and accepted formats.
var uploadKinds = map[string]struct {
	dir     string
	formats map[string]bool
}{
	"videos": {"videos", media.VideoFormats},
	"music":  {"music", media.AudioFormats},
	"sounds": {"sounds", media.AudioFormats},
	"quotes": {"quotes", media.QuoteFormats},
}

// StartRequest carries the per-job configuration overrides accepted by the
// start endpoint. Omitted fields fall back to the defaults; pointer fields
// distinguish an explicit zero from an absent key.
type StartRequest struct {
	Duration        float64  `json:"duration"`
	Resolution      string   `json:"resolution"`
	FPS             int      `json:"fps"`
	Transition      string   `json:"transition"`
	QuoteStyle      string   `json:"quoteStyle"`
	QuoteDuration   float64  `json:"quoteDuration"`
	QuoteMinBetween *float64 `json:"quoteMinBetween"`
	QuoteMaxBetween *float64 `json:"quoteMaxBetween"`
	QuoteShuffle    bool     `json:"quoteShuffle"`
	MusicVolume     *float64 `json:"musicVolume"`
	SoundsVolume    *float64 `json:"soundsVolume"`
	MusicShuffle    bool     `json:"musicShuffle"`
	Seed            int64    `json:"seed"`
}

// Handler serves the job API.
type Handler struct {
	manager *Manager
	log     zerolog.Logger
}

func NewHandler(manager *Manager, log zerolog.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

// CreateJob handles POST /api/jobs.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.manager.CreateJob()
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.manager.List()
	if err != nil {
		h.serverError(w, err)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.manager.Get(mux.Vars(r)["id"])
	if errors.Is(err, ErrJobNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// UploadMedia handles POST /api/jobs/{id}/media/{kind}. The file arrives as
// the raw request body with its name in the ?name= query parameter.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, kind := vars["id"], vars["kind"]

	accept, ok := uploadKinds[kind]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown media kind %q", kind), http.StatusBadRequest)
		return
	}

	job, err := h.manager.Get(id)
	if errors.Is(err, ErrJobNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	if job.State != StateQueued {
		http.Error(w, "media can only be uploaded before the job starts", http.StatusConflict)
		return
	}

	name := filepath.Base(r.URL.Query().Get("name"))
	if name == "" || name == "." || name == string(filepath.Separator) {
		http.Error(w, "missing name query parameter", http.StatusBadRequest)
		return
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !accept.formats[ext] {
		http.Error(w, fmt.Sprintf("unsupported %s extension %q", kind, ext), http.StatusBadRequest)
		return
	}

	dest := filepath.Join(h.manager.JobDir(id), accept.dir, name)
	if err := saveUpload(dest, http.MaxBytesReader(w, r.Body, maxUploadBytes)); err != nil {
		h.serverError(w, err)
		return
	}
	h.log.Info().Str("job", id).Str("kind", kind).Str("file", name).Msg("media uploaded")
	writeJSON(w, http.StatusCreated, map[string]string{"name": name, "kind": kind})
}

// StartJob handles POST /api/jobs/{id}/start.
func (h *Handler) StartJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req StartRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	cfg, err := buildJobConfig(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.manager.Start(id, cfg); err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case strings.Contains(err.Error(), "only queued jobs"):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.serverError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "state": string(StateRunning)})
}

// CancelJob handles POST /api/jobs/{id}/cancel.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.manager.Cancel(id); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// Download handles GET /api/jobs/{id}/download.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	job, err := h.manager.Get(mux.Vars(r)["id"])
	if errors.Is(err, ErrJobNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	if job.State != StateDone || job.Output == "" {
		http.Error(w, "job output is not ready", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.Output)))
	http.ServeFile(w, r, job.Output)
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// buildJobConfig layers the request overrides onto the default configuration
// and validates the result.
func buildJobConfig(req StartRequest) (config.Config, error) {
	cfg := config.Default()
	if req.Duration != 0 {
		cfg.Duration = req.Duration
	}
	if req.Resolution != "" {
		cfg.Resolution = req.Resolution
	}
	if req.FPS != 0 {
		cfg.FPS = req.FPS
	}
	if req.Transition != "" {
		transition, err := config.ParseTransition(req.Transition)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Transition = transition
	}
	if req.QuoteStyle != "" {
		style, err := config.ParseQuoteStyle(req.QuoteStyle)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Quotes.Style = style
	}
	if req.QuoteDuration != 0 {
		cfg.Quotes.Duration = req.QuoteDuration
	}
	if req.QuoteMinBetween != nil {
		cfg.Quotes.MinBetween = *req.QuoteMinBetween
	}
	if req.QuoteMaxBetween != nil {
		cfg.Quotes.MaxBetween = *req.QuoteMaxBetween
	}
	cfg.Quotes.Shuffle = req.QuoteShuffle
	if req.MusicVolume != nil {
		cfg.Music.Volume = *req.MusicVolume
	}
	if req.SoundsVolume != nil {
		cfg.Sounds.Volume = *req.SoundsVolume
	}
	cfg.Music.Shuffle = req.MusicShuffle
	cfg.Seed = req.Seed

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func saveUpload(dest string, body io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("write upload: %w", err)
	}
	return f.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
