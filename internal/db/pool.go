package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/prompttranslate/internal/config"
)

var ErrNoRows = sql.ErrNoRows

const (
	defaultMaxConns = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Pool is the history store: translation records and client preferences in
// the prompttranslate schema. Queries are raw SQL run through gorm.
type Pool struct {
	gdb   *gorm.DB
	sqlDB *sql.DB
}

// NewPool connects to DATABASE_URL, sizes the connection pool for a
// single-host service and migrates the schema.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if !cfg.HistoryEnabled() {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(resolveGormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get history sql db: %w", err)
	}
	maxOpen, maxIdle := connLimits(cfg.DBMinConns, cfg.DBMaxConns)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	pool := &Pool{gdb: gdb, sqlDB: sqlDB}
	if err := pool.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := pool.autoMigrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate history schema: %w", err)
	}
	return pool, nil
}

// connLimits turns DB_MIN_CONNS/DB_MAX_CONNS into open and idle limits.
func connLimits(minConns, maxConns int32) (int, int) {
	maxOpen := int(maxConns)
	if maxOpen <= 0 {
		maxOpen = defaultMaxConns
	}
	return maxOpen, max(1, min(int(minConns), maxOpen))
}

// Ping checks that the history database answers.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.ready(); err != nil {
		return err
	}
	if err := p.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history database: %w", err)
	}
	return nil
}

func (p *Pool) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

func (p *Pool) ready() error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("history database is not initialized")
	}
	return nil
}

func (p *Pool) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.gdb.WithContext(ctx).Raw(query, args...).Row()
}

func (p *Pool) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.gdb.WithContext(ctx).Raw(query, args...).Rows()
}

// exec runs a statement and reports the number of rows it touched.
func (p *Pool) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := p.gdb.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

func resolveGormLogLevel(appLogLevel, environment string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	}
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return logger.Warn
	}
	return logger.Error
}

func isNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
