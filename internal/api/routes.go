package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/apperror"
	"github.com/abdul-hamid-achik/resize.cheap/internal/health"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/resize.cheap/internal/presets"
	"github.com/abdul-hamid-achik/resize.cheap/internal/results"
	"github.com/abdul-hamid-achik/resize.cheap/internal/storage"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
	"github.com/redis/go-redis/v9"
)

// Enqueuer hands a request to the background workers and returns the
// queue job id. *jobs.Enqueuer satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, req transform.Request) (string, error)
}

type Config struct {
	Worker        *transform.Worker
	Enqueuer      Enqueuer
	Storage       storage.Storage
	Results       results.Store
	Health        *health.Checker
	RedisClient   redis.UniversalClient
	MaxUploadSize int64
	RateLimit     int
	RateWindow    time.Duration
	CORSOrigins   []string
	DevMode       bool
}

func NewRouter(cfg *Config) http.Handler {
	mux := http.NewServeMux()

	checker := cfg.Health
	if checker == nil {
		checker = health.NewChecker("")
	}
	mux.HandleFunc("GET /health", health.ReadinessHandler(checker))
	mux.HandleFunc("GET /health/live", health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", health.ReadinessHandler(checker))

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /v1/transform", transformHandler(cfg))
	apiMux.HandleFunc("POST /v1/transforms", enqueueHandler(cfg))
	apiMux.HandleFunc("GET /v1/transforms/{id}", statusHandler(cfg))
	apiMux.HandleFunc("GET /v1/transforms/{id}/download", downloadHandler(cfg))
	apiMux.HandleFunc("GET /v1/presets", presetsHandler())

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 60
	}
	window := cfg.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	limiter := NewHybridRateLimiter(cfg.RedisClient, rateLimit, window)

	mux.Handle("/v1/", CORSWithOrigins(cfg.CORSOrigins, cfg.DevMode)(RateLimit(limiter, window)(apiMux)))

	return mux
}

func maxUploadSize(cfg *Config) int64 {
	if cfg.MaxUploadSize > 0 {
		return cfg.MaxUploadSize
	}
	return 25 * 1024 * 1024
}

type transformResponse struct {
	RequestID   string  `json:"request_id"`
	ContentType string  `json:"content_type"`
	Filename    string  `json:"filename"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Size        int     `json:"size"`
	Quality     float64 `json:"quality"`
	DurationMs  int64   `json:"duration_ms"`
	Data        string  `json:"data"`
}

// transformHandler runs the transform while the client waits. The result
// comes back as the raw image unless ?response=json is given.
func transformHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Worker == nil {
			apperror.WriteJSON(w, r, apperror.ErrServiceUnavailable)
			return
		}

		parsed, err := parseTransformRequest(w, r, maxUploadSize(cfg))
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		log := logger.FromContext(r.Context()).With("transform_id", parsed.RequestID)
		log.Info("transform requested",
			"width", parsed.Width,
			"height", parsed.Height,
			"format", parsed.Format,
			"source_size", len(parsed.Source),
		)

		metrics.TransformsInFlight.Inc()
		res, err := cfg.Worker.Await(r.Context(), cfg.Worker.Submit(r.Context(), parsed.Request))
		metrics.TransformsInFlight.Dec()
		if err != nil {
			log.Warn("client stopped waiting for transform", "error", err)
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrServiceUnavailable))
			return
		}
		if !res.Success {
			apperror.WriteJSON(w, r, apperror.FromTransform(res.Err()))
			return
		}

		filename := OutputFilename(parsed.Filename, res.RequestID, res.Extension)

		if r.URL.Query().Get("response") == "json" {
			writeJSON(w, http.StatusOK, transformResponse{
				RequestID:   res.RequestID,
				ContentType: res.ContentType,
				Filename:    filename,
				Width:       res.Width,
				Height:      res.Height,
				Size:        res.Size,
				Quality:     res.Quality,
				DurationMs:  res.Duration.Milliseconds(),
				Data:        base64.StdEncoding.EncodeToString(res.Data),
			})
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(res.Size))
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.Header().Set("X-Request-Id", res.RequestID)
		w.Header().Set("X-Image-Width", strconv.Itoa(res.Width))
		w.Header().Set("X-Image-Height", strconv.Itoa(res.Height))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Data)
	}
}

type enqueueResponse struct {
	RequestID string         `json:"request_id"`
	JobID     string         `json:"job_id"`
	Status    results.Status `json:"status"`
	StatusURL string         `json:"status_url"`
}

func enqueueHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Enqueuer == nil {
			apperror.WriteJSON(w, r, apperror.ErrServiceUnavailable)
			return
		}

		parsed, err := parseTransformRequest(w, r, maxUploadSize(cfg))
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		jobID, err := cfg.Enqueuer.Enqueue(r.Context(), parsed.Request)
		if err != nil {
			if _, ok := transform.KindOf(err); ok {
				apperror.WriteJSON(w, r, apperror.FromTransform(err))
				return
			}
			if errors.Is(err, results.ErrExists) {
				apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrConflict))
				return
			}
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrServiceUnavailable))
			return
		}

		statusURL := "/v1/transforms/" + parsed.RequestID
		w.Header().Set("Location", statusURL)
		writeJSON(w, http.StatusAccepted, enqueueResponse{
			RequestID: parsed.RequestID,
			JobID:     jobID,
			Status:    results.StatusPending,
			StatusURL: statusURL,
		})
	}
}

// presignExpiry is how long a presigned output URL stays valid.
const presignExpiry = 15 * 60

type statusResponse struct {
	results.Record
	DownloadURL  string `json:"download_url,omitempty"`
	PresignedURL string `json:"presigned_url,omitempty"`
}

func statusHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadRecord(w, r, cfg)
		if !ok {
			return
		}

		resp := statusResponse{Record: rec}
		resp.OutputKey = ""
		if rec.Status == results.StatusSucceeded {
			resp.DownloadURL = "/v1/transforms/" + rec.RequestID + "/download"
			if cfg.Storage != nil {
				url, err := cfg.Storage.GetPresignedURL(r.Context(), rec.OutputKey, presignExpiry)
				if err != nil {
					logger.FromContext(r.Context()).Warn("failed to presign output", "output_key", rec.OutputKey, "error", err)
				} else {
					resp.PresignedURL = url
				}
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func downloadHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadRecord(w, r, cfg)
		if !ok {
			return
		}

		switch rec.Status {
		case results.StatusPending:
			apperror.WriteJSON(w, r, apperror.ErrNotReady)
			return
		case results.StatusFailed:
			apperror.WriteJSON(w, r, apperror.FromTransform(&transform.Error{
				Kind:      transform.ErrorKind(rec.ErrorKind),
				RequestID: rec.RequestID,
				Err:       errors.New(rec.Error),
			}))
			return
		}

		reader, err := cfg.Storage.Download(r.Context(), rec.OutputKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrNotFound))
				return
			}
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}
		defer func() { _ = reader.Close() }()

		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(rec.Size))
		w.Header().Set("X-Request-Id", rec.RequestID)
		w.Header().Set("X-Image-Width", strconv.Itoa(rec.Width))
		w.Header().Set("X-Image-Height", strconv.Itoa(rec.Height))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, reader); err != nil {
			logger.FromContext(r.Context()).Warn("download interrupted", "error", err)
		}
	}
}

func loadRecord(w http.ResponseWriter, r *http.Request, cfg *Config) (results.Record, bool) {
	if cfg.Results == nil {
		apperror.WriteJSON(w, r, apperror.ErrServiceUnavailable)
		return results.Record{}, false
	}

	rec, err := cfg.Results.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			apperror.WriteJSON(w, r, apperror.ErrNotFound)
			return results.Record{}, false
		}
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return results.Record{}, false
	}
	return rec, true
}

func presetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"presets": presets.List()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
