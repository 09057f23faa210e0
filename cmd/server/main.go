package main

import (
	"context"

	"openaigateway/internal/config"
	logpkg "openaigateway/internal/log"
	"openaigateway/internal/server"
	"openaigateway/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	dotenvErr := godotenv.Load()

	logger := logpkg.CreateLogger()
	defer func() {
		if appLog, ok := logger.(*logpkg.AppLogger); ok {
			_ = appLog.Close()
		}
	}()

	if dotenvErr != nil {
		logger.Warn("No .env file found, using system environment variables")
	}
	logger.Info("Logger initialized")

	cfg, err := config.LoadServerConfigFromEnv(logger)
	if err != nil {
		logger.Fatal("Failed to load server configuration: %v", err)
	}

	storageInstance := storage.InitStorage(storage.Options{
		RedisURL:     cfg.RedisURL,
		StatsFile:    cfg.StatsFile,
		SettingsFile: cfg.SettingsFile,
	}, logger)
	defer func() { _ = storageInstance.Close() }()

	cfg.Storage = storageInstance
	cfg.Logger = logger

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to create server: %v", err)
	}
	defer func() { _ = srv.Close() }()

	preloadCtx, cancel := context.WithTimeout(context.Background(), cfg.ModelListTimeout*2)
	srv.Preload(preloadCtx)
	cancel()

	logger.Info("Starting server on port %s", cfg.Port)
	if err := srv.Run(); err != nil {
		logger.Fatal("Server error: %v", err)
	}
}
