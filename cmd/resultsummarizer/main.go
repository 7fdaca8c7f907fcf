package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/polls/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/polls/internal/config"
	"github.com/vncsmyrnk/polls/internal/core/services"
	"github.com/vncsmyrnk/polls/internal/logger"
)

func main() {
	log := logger.SetupDefault(os.Stdout, slog.LevelInfo)

	config.LoadDotEnv()
	databaseURL, err := config.DatabaseURL()
	if err != nil {
		log.Error("database is not configured", "error", err)
		os.Exit(1)
	}

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	summaryService := services.NewSummaryService(postgres.NewResultRepository(db))

	log.Info("starting result summarization job")

	written, err := summaryService.SummarizeClosedQuestions(ctx, time.Now())
	if err != nil {
		log.Error("error summarizing results", "error", err, "written", written)
		os.Exit(1)
	}

	log.Info("result summarization completed", "written", written)
}
