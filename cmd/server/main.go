package main

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vncsmyrnk/polls/internal/adapters/handler/http"
	"github.com/vncsmyrnk/polls/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/polls/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/polls/internal/adapters/storage/local"
	"github.com/vncsmyrnk/polls/internal/config"
	"github.com/vncsmyrnk/polls/internal/core/services"
	"github.com/vncsmyrnk/polls/internal/logger"
	"github.com/vncsmyrnk/polls/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	files, err := local.NewFileStore(cfg.MediaDir)
	if err != nil {
		log.Error("failed to prepare media storage", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Initialize Repositories
	questionRepo := postgres.NewQuestionRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	resultRepo := postgres.NewResultRepository(db)
	userRepo := postgres.NewUserRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	authRepo := postgres.NewAuthRepository(db)

	// Initialize Services
	questionSvc := services.NewQuestionService(questionRepo, resultRepo, userRepo, files, cfg.MediaMaxBytes)
	voteSvc := services.NewVoteService(questionRepo, voteRepo)
	profileSvc := services.NewProfileService(userRepo, profileRepo, questionRepo, files, cfg.MediaMaxBytes)
	authSvc := services.NewAuthService(userRepo, authRepo, google.NewVerifier(), cfg.JWTSecret, cfg.GoogleClientID)

	cookies := http.CookieSettings{Domain: cfg.CookieDomain, SameSite: cfg.CookieSameSite}
	voteLimiter := http.NewVoteLimiter(cfg.VoteRatePerMin, 10*time.Minute, collector)
	defer voteLimiter.Stop()

	handler := http.NewHandler(http.RouterConfig{
		Questions:      http.NewQuestionHandler(questionSvc, voteSvc, collector, cfg.MediaMaxBytes),
		Votes:          http.NewVoteHandler(voteSvc, collector),
		Profiles:       http.NewProfileHandler(profileSvc, cookies, cfg.MediaMaxBytes),
		Auth:           http.NewAuthHandler(authSvc, cfg.AuthRedirectURL, cookies),
		AuthMiddleware: http.NewAuthMiddleware(authSvc),
		VoteLimiter:    voteLimiter,
		Logger:         log,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		MediaDir:       files.Root(),
	})

	server := &stdhttp.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
