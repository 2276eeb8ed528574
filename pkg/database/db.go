package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dbehnke/mavtrap/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Use modernc.org/sqlite (pure Go, no CGO)
	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"
)

// DB wraps the GORM database connection
type DB struct {
	db        *gorm.DB
	logger    *logger.Logger
	retention time.Duration
}

// DefaultPath is used when no database path is configured
const DefaultPath = "mavtrap.db"

const memoryPath = ":memory:"

// Config holds database configuration
type Config struct {
	Path      string        // Path to SQLite database file, ":memory:" for tests
	Retention time.Duration // Events older than this are pruned; 0 keeps everything
}

// NewDB creates a new database connection
func NewDB(cfg Config, log *logger.Logger) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if cfg.Path != memoryPath && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Configure GORM logger to use our logger
	gormLog := gormlogger.New(
		&gormLogAdapter{log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        cfg.Path,
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Path == memoryPath {
		// Every pooled connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	// Events are written by the dispatcher while the web API reads
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database initialized", logger.String("path", cfg.Path))

	return &DB{
		db:        db,
		logger:    log,
		retention: cfg.Retention,
	}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the underlying GORM database instance
func (d *DB) GetDB() *gorm.DB {
	return d.db
}

// Events returns a repository over the event table
func (d *DB) Events() *EventRepository {
	return NewEventRepository(d.db)
}

// RunPruner deletes events older than the configured retention every
// interval until ctx is cancelled. It returns immediately when retention is
// disabled.
func (d *DB) RunPruner(ctx context.Context, interval time.Duration) {
	if d.retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}

	repo := d.Events()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteOlderThan(now.Add(-d.retention))
			if err != nil {
				d.logger.Error("Failed to prune events", logger.Error(err))
				continue
			}
			if n > 0 {
				d.logger.Info("Pruned old events", logger.Int64("deleted", n))
			}
		}
	}
}

// gormLogAdapter adapts our logger to GORM's logger interface
type gormLogAdapter struct {
	log *logger.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}
