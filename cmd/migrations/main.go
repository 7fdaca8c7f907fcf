package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/vncsmyrnk/polls/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/polls/internal/config"
	"github.com/vncsmyrnk/polls/internal/logger"
)

// Usage: migrations [-steps N] up|down|version
func main() {
	steps := flag.Int("steps", 0, "number of migrations to apply or roll back; 0 means all")
	flag.Parse()

	log := logger.SetupDefault(os.Stdout, slog.LevelInfo)

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	config.LoadDotEnv()
	databaseURL, err := config.DatabaseURL()
	if err != nil {
		log.Error("database is not configured", "error", err)
		os.Exit(1)
	}

	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		log.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	switch command {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Error("failed to read version", "error", verr)
			os.Exit(1)
		}
		log.Info("migration version", "version", version, "dirty", dirty)
		return
	default:
		log.Error("unknown command", "command", command)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}

	log.Info("migrations executed successfully", "command", command)
}
