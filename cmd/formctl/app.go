package main

import (
	"context"
	"fmt"

	formapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/cache"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// app holds the lazily opened service graph shared by subcommands
type app struct {
	output   string
	logLevel string

	log     *zap.Logger
	db      *persistence.Database
	counter cache.ConfirmationCounter
	admin   *formapp.AdminService
}

func (a *app) open(ctx context.Context) error {
	if a.admin != nil {
		return nil
	}
	if _, err := formatterFor(a.output); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{Level: a.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	a.log = log

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(a.logLevel)))
	if err != nil {
		return err
	}
	a.db = db
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("create sqlite schema: %w", err)
		}
	}

	counter, err := cache.NewCounterFactory(cfg.Redis, cache.WithLogger(log)).CreateCounter()
	if err != nil {
		return err
	}
	a.counter = counter

	records := persistence.NewGormFormRecordRepository(db.DB)
	a.admin = formapp.NewAdminService(formapp.AdminServiceConfig{
		Records:             records,
		Activity:            persistence.NewGormActivityRepository(db.DB),
		Counter:             counter,
		Logger:              log,
		DeleteConfirmations: cfg.Wizard.DeleteConfirmations,
		DeleteWindow:        cfg.Wizard.DeleteWindow,
		AuditLogLimit:       cfg.Wizard.AuditLogLimit,
	})
	return ctx.Err()
}

func (a *app) close() {
	if a.counter != nil {
		_ = a.counter.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
