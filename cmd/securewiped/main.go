package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"securewipe/internal/auth"
	"securewipe/internal/blob"
	"securewipe/internal/compute"
	"securewipe/internal/config"
	"securewipe/internal/domain"
	"securewipe/internal/observability/logging"
	"securewipe/internal/observability/metrics"
	"securewipe/internal/service"
	"securewipe/internal/store"
	httptransport "securewipe/internal/transport/http"
	"securewipe/pkg/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "securewipe",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	metrics.MustRegister()

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		log.Fatalf("gorm open: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.User{}, &domain.Device{}, &domain.Certificate{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	st := store.New(gdb)

	computeClient := compute.NewClient(compute.Config{
		BaseURL:         cfg.ComputeBaseURL,
		WipeTimeout:     cfg.WipeTimeout,
		ArtifactTimeout: cfg.ArtifactTimeout,
		ServiceToken:    cfg.ServiceToken,
	})
	uploader := blob.NewClient(blob.Config{
		BaseURL: cfg.BlobBaseURL,
		Token:   cfg.BlobToken,
	})

	tokens := auth.NewTokens(auth.TokenConfig{
		SigningKey: []byte(cfg.JWTSecret),
		TTL:        cfg.TokenTTL,
	})
	authSvc := auth.NewService(st, tokens)
	svc := service.New(st, computeClient, uploader)

	router := httptransport.NewRouter(svc, authSvc, tokens, httptransport.RouterConfig{
		CORSOrigins: strings.Split(cfg.CORSOrigins, ","),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("securewipe listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	// Let in-flight artifact pipelines reach a terminal status before exit.
	svc.Drain()
}
