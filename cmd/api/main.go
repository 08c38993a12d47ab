package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/config"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/router"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/pkg/database"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/pkg/utilities"
)

func main() {
	// best-effort: without a .env the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}
	sugar.Infow("starting", "project", cfg.ProjectName, "version", cfg.Version)

	dbCfg := database.ConfigFromEnv()
	dbCfg.URL = cfg.DatabaseURL
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svcs, err := router.NewServices(cfg, db, nil, sugar, reg)
	if err != nil {
		sugar.Fatalf("wire services: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svcs.EnsureSchema(ctx); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}
	created, err := svcs.Auth.EnsureSuperuser(ctx, cfg.FirstSuperuser, cfg.FirstSuperuserPassword)
	if err != nil {
		sugar.Fatalf("ensure superuser: %v", err)
	}
	if created {
		sugar.Infow("created first superuser", "email", cfg.FirstSuperuser)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.RegisterRoutes(cfg, sugar, reg, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
