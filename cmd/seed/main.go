// Package main provides a tool to seed the database from a YAML fixture.
//
// Relative times in the fixture (-1d, +2m) are resolved against the
// current clock, or against -now when given.
//
// Usage:
//
//	go run ./cmd/seed -fixture testdata/fixtures/demo.yaml
//	go run ./cmd/seed -fixture demo.yaml -db-driver badger -data-path /tmp/recall
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/listenupapp/recall-server/internal/config"
	"github.com/listenupapp/recall-server/internal/di/providers"
	"github.com/listenupapp/recall-server/internal/fixture"
	"github.com/listenupapp/recall-server/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fixturePath := fs.String("fixture", "testdata/fixtures/demo.yaml", "YAML fixture to load")
	nowFlag := fs.String("now", "", "Reference time for relative fixture times (RFC 3339, default: now)")
	dbDriver := fs.String("db-driver", "", "Storage driver (sqlite, badger)")
	dataPath := fs.String("data-path", "", "Directory for database files")
	envFile := fs.String("env-file", ".env", "Path to .env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgArgs := []string{"--env-file", *envFile}
	if *dbDriver != "" {
		cfgArgs = append(cfgArgs, "--db-driver", *dbDriver)
	}
	if *dataPath != "" {
		cfgArgs = append(cfgArgs, "--data-path", *dataPath)
	}
	cfg, err := config.Load(cfgArgs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if *nowFlag != "" {
		now, err = time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return fmt.Errorf("-now: %w", err)
		}
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	f, err := fixture.Load(*fixturePath)
	if err != nil {
		return err
	}

	st, err := providers.OpenStore(cfg.Database, log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := f.Apply(context.Background(), st, now)
	if err != nil {
		return err
	}

	log.WithField("fixture", *fixturePath).Info("Fixture loaded",
		"driver", cfg.Database.Driver,
		"path", cfg.Database.StorePath(),
		"users", stats.Users,
		"tags", stats.Tags,
		"edges", stats.Edges,
		"questions", stats.Questions,
		"links", stats.Links,
		"schedules", stats.Schedules,
	)
	return nil
}
