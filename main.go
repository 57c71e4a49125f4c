package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"projector-server/confs"
	"projector-server/db"
	"projector-server/repositories"
	"projector-server/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg confs.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// load config
	cfg, err := confs.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.Enabled && !cfg.Auth.IsProductionReady() {
		logger.Warn("auth enabled with a weak or development JWT secret")
	}

	var store repositories.Store
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		store = repositories.NewMemoryStore()
	default:
		database, err := db.Connect(cfg.Database, logger.Named("db"))
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() { _ = db.Close(database) }()
		store = repositories.NewPgStore(database)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, store, logger)
	if err := srv.Bootstrap(ctx); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	if err := srv.Start(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
