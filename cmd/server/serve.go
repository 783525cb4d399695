package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/config"
	"task-workflow-api/internal/database"
	"task-workflow-api/internal/events"
	"task-workflow-api/internal/handlers"
	"task-workflow-api/internal/log"
	loglogrus "task-workflow-api/internal/log/logrus"
	"task-workflow-api/internal/metrics"
	"task-workflow-api/internal/realtime"
	"task-workflow-api/internal/routes"
	"task-workflow-api/internal/service"
	"task-workflow-api/internal/storage/sqlite"
)

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := loglogrus.New(cfg.Log).WithValues(log.Kv{"version": Version})
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	repo, err := sqlite.NewRepository(sqlite.RepositoryConfig{DB: db, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	hub := realtime.NewHub(logger)
	publishers := []events.Publisher{hub}
	if cfg.Events.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(events.NATSConfig{
			URL:           cfg.Events.NATSURL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := natsPub.Close(); err != nil {
				logger.Warningf("could not drain NATS connection: %v", err)
			}
		}()
		publishers = append(publishers, natsPub)
		logger.Infof("publishing task events to NATS at %s", cfg.Events.NATSURL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	svc, err := service.NewService(service.Config{
		Repo:            repo,
		Logger:          logger,
		Reminder:        &cfg.Reminder,
		ExtensionPolicy: &cfg.ExtensionPolicy,
		Publisher:       events.NewMulti(logger, publishers...),
		Metrics:         recorder,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	tokens, err := auth.NewTokens(cfg.Auth)
	if err != nil {
		return err
	}
	h, err := handlers.NewHandler(handlers.HandlerConfig{Service: svc, Tokens: tokens, Hub: hub, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create handlers: %w", err)
	}
	router, err := routes.SetupRoutes(routes.Config{
		Handler:        h,
		Tokens:         tokens,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        metrics.Handler(reg),
	})
	if err != nil {
		return fmt.Errorf("could not set up routes: %w", err)
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Infof("termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// HTTP server.
	{
		srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}

		g.Add(
			func() error {
				logger.Infof("server listening on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("could not shut down http server: %v", err)
				}
			},
		)
	}

	return g.Run()
}

func seed(configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	users := database.DemoUsers()
	if err := database.Seed(db, users, 0); err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d users into %s\n", len(users), cfg.Database.Path)
	return nil
}
