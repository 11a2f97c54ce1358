// Package http exposes the tender engine over JSON. Identity comes from the
// X-User-ID header and roles are resolved through a session.RoleCache;
// authentication itself happens upstream.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-tender/internal/application"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/session"
)

// Services are the application services the handlers call.
type Services struct {
	Tenders     *application.TenderService
	Evaluations *application.EvaluationService
	Shortlists  *application.ShortlistService
	Awards      *application.AwardService
	Leaderboard *application.LeaderboardService
}

func (s Services) validate() error {
	if s.Tenders == nil || s.Evaluations == nil || s.Shortlists == nil ||
		s.Awards == nil || s.Leaderboard == nil {
		return errors.New("all services are required")
	}
	return nil
}

// Config controls the router outside of the services.
type Config struct {
	CORSOrigins []string
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// RequestTimeout bounds each request. Zero disables the limit.
	RequestTimeout time.Duration
}

type handlers struct {
	svc    Services
	roles  *session.RoleCache
	logger *slog.Logger
	check  *validator.Validate
}

// NewRouter builds the HTTP surface.
func NewRouter(svc Services, roles *session.RoleCache, cfg Config) (http.Handler, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if roles == nil {
		return nil, session.ErrNilSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &handlers{svc: svc, roles: roles, logger: logger, check: validator.New()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(logger), middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", userHeader},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(pr chi.Router) {
		pr.Use(h.identify)

		pr.Delete("/session", h.signOut)

		pr.Route("/tenders", func(tr chi.Router) {
			tr.With(requireRole(domain.RoleGovernment)).Post("/", h.createTender)
			tr.Route("/{tenderID}", func(one chi.Router) {
				one.Get("/", h.getTender)
				one.With(requireRole(domain.RoleGovernment, domain.RoleEvaluator)).
					Get("/leaderboard", h.leaderboard)
				one.With(requireRole(domain.RoleGovernment)).Put("/shortlist", h.updateShortlistSettings)
				one.With(requireRole(domain.RoleGovernment)).Post("/award", h.finalizeAward)
				one.With(requireRole(domain.RoleBidder)).Post("/bids", h.submitBid)
			})
		})

		pr.Route("/bids/{bidID}", func(br chi.Router) {
			br.With(requireRole(domain.RoleEvaluator, domain.RoleGovernment)).
				Put("/evaluation", h.submitEvaluation)
			br.With(requireRole(domain.RoleGovernment)).Post("/shortlist", h.shortlist)
			br.With(requireRole(domain.RoleGovernment)).Delete("/shortlist", h.removeShortlist)
		})
	})

	return r, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelDebug, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
