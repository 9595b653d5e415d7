package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"medchatd/internal/manager"
	"medchatd/internal/prompt"
	"medchatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager satisfies it.
type Service interface {
	Health() types.HealthResponse
	Ready() bool
	Acquire(ctx context.Context) (*manager.Handle, error)
	Generate(ctx context.Context, h *manager.Handle, prompt string, opts manager.GenerateOptions, emit func(string) error) (manager.GenerateResult, error)
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// now is the clock used to compute ages from dates of birth.
var now = time.Now

// NewMux builds the HTTP router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   corsAllowedMethods,
			AllowedHeaders:   corsAllowedHeaders,
			ExposedHeaders:   []string{"X-Stream-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", healthHandler(svc))
	r.Post("/chat/stream", chatStreamHandler(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// healthHandler reports memory and engine status. It never loads the engine.
//
// @Summary      Service health
// @Description  Memory usage and engine residency. Never loads the engine.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Health()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}

// chatStreamHandler answers a question as a server-sent event stream.
//
// @Summary      Stream a chat answer
// @Description  Streams generated fragments as SSE "data:" events terminated by "data: [DONE]".
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      types.ChatRequest  true  "question and user profile"
// @Success      200      {string}  string             "SSE stream"
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /chat/stream [post]
func chatStreamHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		streamID := uuid.NewString()
		w.Header().Set("X-Stream-ID", streamID)

		lvl := requestLogLevel(r)
		log := zlog.With().Str("stream_id", streamID).Logger()
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			log = log.With().Str("request_id", rid).Logger()
		}

		req, status, msg := decodeChatRequest(w, r)
		if status != 0 {
			writeJSONError(w, status, msg)
			streamsTotal.WithLabelValues("rejected").Inc()
			logEnd(log, lvl, status, start, errors.New(msg))
			return
		}
		text, err := prompt.ForProfile(*req.Profile, req.Prompt, now())
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "Failed to build user context: "+err.Error())
			streamsTotal.WithLabelValues("rejected").Inc()
			logEnd(log, lvl, http.StatusBadRequest, start, err)
			return
		}
		if lvl >= LevelInfo {
			log.Info().Str("path", r.URL.Path).Int("max_tokens", req.MaxTokens).Msg("stream start")
		}

		ctx, cancel := streamContext(r.Context())
		defer cancel()

		h, err := svc.Acquire(ctx)
		if err != nil {
			if r.Context().Err() != nil {
				streamsTotal.WithLabelValues("client_gone").Inc()
				return
			}
			status := writeServiceError(w, err)
			streamsTotal.WithLabelValues("unavailable").Inc()
			logEnd(log, lvl, status, start, err)
			return
		}

		var tee io.Writer
		if lvl >= LevelDebug {
			tee = &frameLogWriter{log: log}
		}
		sw := newSSEWriter(w, tee, start)
		opts := manager.GenerateOptions{MaxFragments: req.MaxTokens}
		res, err := svc.Generate(ctx, h, text, opts, sw.Fragment)
		if manager.IsEngineUnloaded(err) && !sw.Started() {
			// Evicted while queued for a slot; reload once.
			if lvl >= LevelInfo {
				log.Info().Msg("engine evicted while queued; reacquiring")
			}
			if h, err = svc.Acquire(ctx); err == nil {
				res, err = svc.Generate(ctx, h, text, opts, sw.Fragment)
			}
		}
		switch {
		case err == nil:
			_ = sw.Done()
			streamsTotal.WithLabelValues("ok").Inc()
			if lvl >= LevelInfo {
				log.Info().Int("status", http.StatusOK).Int("fragments", res.Fragments).Str("finish", res.FinishReason).Dur("dur", time.Since(start)).Msg("stream end")
			}
		case r.Context().Err() != nil || errors.Is(err, manager.ErrConsumerGone):
			streamsTotal.WithLabelValues("client_gone").Inc()
			if lvl >= LevelInfo {
				log.Info().Int("fragments", res.Fragments).Dur("dur", time.Since(start)).Msg("stream aborted by client")
			}
		case sw.Started():
			_ = sw.Error(streamErrorMessage(err))
			streamsTotal.WithLabelValues("error").Inc()
			if lvl >= LevelError {
				log.Error().Err(err).Int("fragments", res.Fragments).Dur("dur", time.Since(start)).Msg("stream failed")
			}
		default:
			status := writeServiceError(w, err)
			streamsTotal.WithLabelValues("error").Inc()
			logEnd(log, lvl, status, start, err)
		}
	}
}

// decodeChatRequest parses and validates the request body. A non-zero status
// means the request was rejected with msg.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (types.ChatRequest, int, string) {
	var req types.ChatRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return req, http.StatusUnsupportedMediaType, "Content-Type must be application/json"
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Oversized bodies surface here too; report them as invalid JSON.
		return req, http.StatusBadRequest, "Invalid JSON in request"
	}
	if req.Profile == nil {
		return req, http.StatusBadRequest, "Invalid or missing user profile"
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return req, http.StatusBadRequest, "newPrompt is required"
	}
	if err := validate.Var(req.MaxTokens, "gte=0"); err != nil {
		return req, http.StatusBadRequest, "max_tokens must be >= 0"
	}
	if err := validate.Struct(req.Profile); err != nil {
		return req, http.StatusBadRequest, "Failed to build user context: " + validationMessage(err)
	}
	return req, 0, ""
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func streamErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "stream timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "server shutting down"
	}
	return err.Error()
}

func logEnd(log zerolog.Logger, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo {
		return
	}
	log.Info().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("stream end")
}
