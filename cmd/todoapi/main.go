package main

import (
	"log"

	"go.uber.org/zap"

	"main/internal/config"
	"main/internal/database"
	"main/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if !cfg.Production {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	defer srv.Close()

	logger.Info("Starting server", zap.String("addr", cfg.Addr))
	if err := srv.Run(cfg.Addr); err != nil {
		logger.Fatal("Failed to run server", zap.Error(err))
	}
}
