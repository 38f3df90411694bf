// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashpoints/internal/application"
	"cashpoints/internal/config"
	pg "cashpoints/internal/infra/db/postgres"
	"cashpoints/internal/infra/logging"
	"cashpoints/internal/infra/metrics"
	red "cashpoints/internal/infra/redis"
	"cashpoints/internal/infra/sched"
	tele "cashpoints/internal/infra/telegram"
	"cashpoints/internal/infra/web"
	"cashpoints/internal/infra/worker"
	"cashpoints/internal/usecase"
)

const verifySweepInterval = 10 * time.Minute

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, polling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	referralRepo := pg.NewPostgresReferralRepo(pool)
	codeRepo := pg.NewPostgresReferralCodeRepo(pool)
	earningRepo := pg.NewPostgresEarningRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Telegram adapter + cached membership checks ----
	botAdapter, err := tele.NewRealTelegramBotAdapter(cfg, rateLimiter, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	membership := red.NewMembershipCache(redisClient, botAdapter, cfg.Redis.TTL, logger)

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, codeRepo, tm, logger)
	referralUC := usecase.NewReferralUseCase(userRepo, referralRepo, codeRepo, earningRepo, tm, membership, cfg.Reward.Referral, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, referralRepo, earningRepo, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(userUC, referralUC, statsUC, membership, pool, cfg, logger)
	botAdapter.Bind(facade, membership.Invalidate)
	logger.Info().Str("bot", botAdapter.Username()).Msg("authorized with Telegram")

	// ---- Worker pool (webhook dispatch) ----
	wp := worker.NewPool(cfg.Bot.Workers, logger)
	wp.Start(ctx)

	// ---- Transport: webhook in production, polling everywhere else ----
	if cfg.Bot.Mode == "webhook" {
		if err := botAdapter.ConfigureWebhook(); err != nil {
			log.Fatalf("webhook: %v", err)
		}
	} else {
		// Stale webhook registrations swallow updates meant for polling.
		if err := botAdapter.DropWebhook(); err != nil {
			logger.Warn().Err(err).Msg("drop webhook before polling")
		}
		go func() {
			if err := botAdapter.StartPolling(ctx); err != nil {
				logger.Error().Err(err).Msg("polling stopped")
			}
		}()
	}

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Server.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	srv := web.NewServer(facade, statsUC, userUC, botAdapter, wp, auth, cfg.Webhook.Secret, logger)
	go func() {
		if err := srv.Serve(ctx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Pending-referral sweeper ----
	sweeper := sched.NewVerifyWorker(verifySweepInterval, referralRepo, userRepo, referralUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	botAdapter.StopPolling()
	wp.Stop()
}
