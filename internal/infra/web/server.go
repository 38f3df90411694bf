package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"cashpoints/internal/application"
	"cashpoints/internal/infra/worker"
	"cashpoints/internal/usecase"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler consumes decoded Telegram updates. Implemented by the
// Telegram adapter.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update, transport string)
}

// TaskSubmitter decouples the webhook handler from the worker pool.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

// Server exposes the public surface: health probe, Telegram webhook,
// Prometheus metrics and the JWT-gated admin API.
type Server struct {
	facade  *application.BotFacade
	statsUC usecase.StatsUseCase
	userUC  usecase.UserUseCase
	updates UpdateHandler
	pool    TaskSubmitter
	auth    *AuthManager
	secret  string
	log     *zerolog.Logger
}

func NewServer(
	facade *application.BotFacade,
	statsUC usecase.StatsUseCase,
	userUC usecase.UserUseCase,
	updates UpdateHandler,
	pool TaskSubmitter,
	auth *AuthManager,
	webhookSecret string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		facade:  facade,
		statsUC: statsUC,
		userUC:  userUC,
		updates: updates,
		pool:    pool,
		auth:    auth,
		secret:  webhookSecret,
		log:     &l,
	}
}

// Router builds the chi routing tree. chi answers 405 for known paths hit
// with the wrong method, which is what Telegram probes expect.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.healthHandler)
	r.Post("/webhook", s.webhookHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/stats", s.statsHandler)
		r.Get("/users/{telegram_id}", s.userHandler)
	})

	return r
}

// Serve runs the HTTP server until ctx is canceled, then drains with a
// short grace period.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("http server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
