package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-report-api/migrations"
	"github.com/noah-isme/lms-report-api/pkg/config"
	"github.com/noah-isme/lms-report-api/pkg/database"
	"github.com/noah-isme/lms-report-api/pkg/logger"
)

const usage = `usage: migrate <command> [args]

commands:
  up                 apply every pending migration
  up-to VERSION      apply migrations up to VERSION
  down               roll back the latest migration
  down-to VERSION    roll back to VERSION
  redo               roll back and re-apply the latest migration
  status             print the status of every migration
  version            print the current schema version
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	command, args := flag.Arg(0), flag.Args()[1:]
	if err := migrations.Run(ctx, db.DB, command, args...); err != nil {
		logr.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	logr.Info("migration finished", zap.String("command", command))
}
