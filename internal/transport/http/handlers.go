// Package http provides HTTP handlers and router configuration.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/cache"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/pipeline"
	"github.com/emanuelef/yt-mp3-api-go/internal/transport/http/middleware"
)

//go:embed templates/index.html
var templates embed.FS

const flashCookie = "flash"

// Processor runs one download request.
type Processor interface {
	Process(ctx context.Context, req domain.DownloadRequest, deliverer pipeline.Deliverer) error
}

// HistoryCounter reports request counts per final state.
type HistoryCounter interface {
	CountByState(ctx context.Context) (map[string]int, error)
}

// Options configures Handlers. History and Objects are optional.
type Options struct {
	Processor   Processor
	Flashes     *cache.FlashStore
	FlashTTL    time.Duration
	History     HistoryCounter
	Objects     ObjectStore
	URLExpiry   time.Duration
	AudioFormat string
	BitrateKbps int
	Logger      *slog.Logger
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	opts  Options
	index *template.Template
	log   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(opts Options) (*Handlers, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Flashes == nil {
		opts.Flashes = cache.DefaultFlashStore()
	}
	if opts.FlashTTL <= 0 {
		opts.FlashTTL = 5 * time.Minute
	}

	index, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}

	return &Handlers{opts: opts, index: index, log: opts.Logger}, nil
}

type indexData struct {
	Format   string
	Bitrate  int
	Messages []cache.Flash
}

// IndexHandler handles GET / requests.
func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Format:  strings.ToUpper(h.opts.AudioFormat),
		Bitrate: h.opts.BitrateKbps,
	}

	if c, err := r.Cookie(flashCookie); err == nil {
		data.Messages = h.opts.Flashes.Pop(c.Value)
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	}

	h.log.Debug("Rendering index page")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.index.Execute(w, data); err != nil {
		h.log.Error("Failed to render index page", "error", err)
	}
}

// DownloadHandler handles POST /download requests.
func (h *Handlers) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	req := domain.DownloadRequest{SourceURL: r.PostFormValue("youtube_url")}

	var d responseDeliverer = &attachmentDeliverer{w: w, r: r}
	if h.opts.Objects != nil {
		d = &objectDeliverer{store: h.opts.Objects, expiry: h.opts.URLExpiry, w: w, r: r}
	}

	err := h.opts.Processor.Process(r.Context(), req, d)
	if err == nil {
		return
	}

	if d.started() {
		// Headers are gone, nothing left to tell the client.
		h.log.Warn("Delivery interrupted",
			"ip", middleware.ClientIP(r),
			"error", err,
		)
		return
	}

	h.redirectWithFlash(w, r, cache.Flash{
		Category: cache.CategoryError,
		Message:  userMessage(err, h.opts.AudioFormat),
	})
}

// HealthHandler handles GET /api/health requests.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	delivery := "attachment"
	if h.opts.Objects != nil {
		delivery = "r2"
	}
	response := &domain.HealthResponse{
		Status:    "ok",
		Delivery:  delivery,
		AudioType: h.opts.AudioFormat,
	}

	if h.opts.History != nil {
		counts, err := h.opts.History.CountByState(r.Context())
		if err != nil {
			h.log.Error("Failed to count requests", "error", err)
		} else {
			response.Requests = counts
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) redirectWithFlash(w http.ResponseWriter, r *http.Request, messages ...cache.Flash) {
	id := h.opts.Flashes.Push(messages...)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.opts.FlashTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// userMessage maps a pipeline error to the text shown on the index page.
func userMessage(err error, format string) string {
	switch {
	case errors.Is(err, domain.ErrEmptyURL):
		return "Error: No YouTube URL provided."
	case errors.Is(err, domain.ErrExtractionFailed):
		return "Error during download: " + detail(err, domain.ErrExtractionFailed)
	case errors.Is(err, domain.ErrOutputNotFound):
		return "Error: Could not locate the converted " + strings.ToUpper(format) + " file after download."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := err.Error()
	if d := strings.TrimPrefix(msg, sentinel.Error()+": "); d != "" {
		return d
	}
	return msg
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, &domain.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
