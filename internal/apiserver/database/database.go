package database

import (
	"context"
	"fmt"
	"time"

	"github.com/amoylab/cleanbill/internal/common/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseType represents the supported database types
type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	MySQL      DatabaseType = "mysql"
	SQLite     DatabaseType = "sqlite"
)

// Store is the gorm-backed persistence layer shared by every service.
// Every method resolves its connection from the context so calls made
// inside Transaction join the surrounding transaction.
type Store struct {
	logger *zap.Logger
	db     *gorm.DB
}

// Open connects to the configured database. It does not migrate.
func Open(cfg *config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch DatabaseType(cfg.Type) {
	case PostgreSQL:
		dialector = postgres.Open(cfg.GetDSN())
	case MySQL:
		dialector = mysql.Open(cfg.GetDSN())
	case SQLite:
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if DatabaseType(cfg.Type) == SQLite {
		// one connection serializes writers; sqlite has no row locks
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db, logger), nil
}

// New wraps an already opened gorm connection
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		logger: logger.Named("apiserver.database"),
		db:     db,
	}
}

// Migrate creates or updates every table and the indexes gorm tags cannot express
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	switch DatabaseType(db.Dialector.Name()) {
	case PostgreSQL, SQLite:
		// at most one live assignment per pair; mysql relies on the row lock in Assign
		if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_property_service_types_live
			ON property_service_types (property_id, service_type_id) WHERE deleted_at IS NULL`).Error; err != nil {
			return fmt.Errorf("failed to create assignment index: %w", err)
		}
	}
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dialect returns the dialector name, e.g. "sqlite"
func (s *Store) Dialect() string {
	return s.db.Dialector.Name()
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// DB exposes the context's connection for queries outside the store API
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.conn(ctx)
}
