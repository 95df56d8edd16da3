package appbootstrap

import (
	"context"

	"saker-rro/api"
	"saker-rro/config"
	"saker-rro/core/housekeeping"
	"saker-rro/core/register"
	"saker-rro/core/store"
	"saker-rro/core/utils"
)

// App wires the database, domain service, HTTP server and background
// workers together.
type App struct {
	Cfg       *config.AppConfig
	DB        *store.DB
	Service   *register.Service
	Server    *api.Server
	Retention *housekeeping.Retention
	Logger    *utils.Logger
}

func Compose(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*App, error) {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	versions := store.NewVersionsStore()
	audits := store.NewAuditStore()
	svc := register.NewService(
		db,
		store.NewRegistersStore(),
		store.NewStepsStore(),
		versions,
		audits,
		store.NewCategoriesStore(),
		logger,
	)

	return &App{
		Cfg:       cfg,
		DB:        db,
		Service:   svc,
		Server:    api.NewServer(cfg, svc, logger),
		Retention: housekeeping.NewRetention(cfg.Retention, db, versions, audits, logger),
		Logger:    logger,
	}, nil
}

func (a *App) Start() error {
	if err := a.Retention.Start(); err != nil {
		return err
	}
	return a.Server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Errorf("shutdown: http server: %v", err)
	}
	if err := a.Retention.Stop(ctx); err != nil {
		a.Logger.Errorf("shutdown: retention: %v", err)
	}
	return a.DB.Close()
}
