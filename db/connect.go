package db

import (
	"fmt"
	"strings"

	"projector-server/confs"
	"projector-server/entities"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Connect opens the postgres pool described by cfg and migrates the schema.
func Connect(cfg confs.DatabaseConfig, log *zap.Logger) (Database, error) {
	log.Info("connecting to database", zap.String("target", cfg.Redacted()))

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	database := &GormDatabase{DB: gdb}
	if err := Migrate(database); err != nil {
		return nil, err
	}
	log.Info("database ready",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))
	return database, nil
}

func Migrate(database Database) error {
	err := database.GetDB().AutoMigrate(
		&entities.Projector{},
		&entities.Command{},
		&entities.ServerEvent{},
		&entities.User{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(database Database) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
