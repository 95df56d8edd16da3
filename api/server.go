package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"saker-rro/api/handlers"
	"saker-rro/api/routegroups"
	"saker-rro/config"
	"saker-rro/core/register"
	"saker-rro/core/utils"
)

type Server struct {
	cfg     *config.AppConfig
	svc     *register.Service
	logger  *utils.Logger
	metrics *apiMetrics
	httpSrv *http.Server
}

func NewServer(cfg *config.AppConfig, svc *register.Service, logger *utils.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		logger:  logger,
		metrics: newAPIMetrics(),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)

	registersHandler := handlers.NewRegistersHandler(s.svc, s.cfg.Registers.ListLimit, s.logger)
	stepsHandler := handlers.NewStepsHandler(s.svc, s.logger)
	categoriesHandler := handlers.NewCategoriesHandler(s.svc)

	r.Route("/api", func(apiRouter chi.Router) {
		routegroups.RegisterRegisters(apiRouter, registersHandler, stepsHandler)
		routegroups.RegisterCategories(apiRouter, categoriesHandler)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method("GET", "/metrics", s.metrics.handler())
	return r
}

func (s *Server) Start() error {
	s.logger.Printf("listening on %s", s.cfg.ListenAddr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
