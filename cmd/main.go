/*
RetroIM server entry point.

Startup order: configuration, logger, database pool (with migrations), storage
client, then the hub and HTTP server. Shutdown drains the HTTP server first so
no new connections arrive while the hub closes the live ones.
*/
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

	"retroim/internal/app/db"
	"retroim/internal/app/forward"
	"retroim/internal/app/im"
	"retroim/internal/app/storage"
	"retroim/internal/app/store"
	"retroim/internal/configs"
	"retroim/internal/handler"
	"retroim/internal/pkg/logx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")

	logx.Info("Starting RetroIM server", "environment", cfg.Environment, "port", cfg.Port)

	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	pg := store.New(pool)
	hub := im.NewHub(pg, forward.New(pg))

	deps := &handler.AppDeps{
		Hub:            hub,
		DB:             pg,
		StorageService: storageService,
		Config:         cfg,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		logx.Info("HTTP server listening", "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logx.Info("Shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logx.Error(err, "HTTP server shutdown error")
	}

	hub.Shutdown()

	logx.Info("Server stopped")
}
