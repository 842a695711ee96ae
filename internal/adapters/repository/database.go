package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/okian/fantabrigade/pkg/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Connection pool limits for the SQLite handle.
const (
	dbMaxOpenConns    = 4
	dbMaxIdleConns    = 4
	dbConnMaxLifetime = time.Hour
	dbConnMaxIdleTime = 10 * time.Minute
)

// openDatabase opens path, tunes the connection and applies migrations.
func openDatabase(ctx context.Context, path string, log logger.Logger) (*sql.DB, error) {
	log.Info(ctx, "connecting to database", logger.String("path", path))

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)
	db.SetConnMaxIdleTime(dbConnMaxIdleTime)

	if err := optimizeSQLite(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to optimize SQLite: %w", err)
	}
	if err := runMigrations(db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info(ctx, "database connection established")
	return db, nil
}

func runMigrations(db *sql.DB, log logger.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	log.Info(context.Background(), "migrations completed")
	return nil
}

// dsn appends the pragmas every pooled connection must carry.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_synchronous=NORMAL"
}

// optimizeSQLite applies database-wide pragmas.
func optimizeSQLite(ctx context.Context, db *sql.DB, log logger.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"cache_size", "-16000"},
		{"temp_store", "MEMORY"},
	}

	for _, p := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := db.ExecContext(ctx, query); err != nil {
			log.Warn(ctx, "failed to set pragma",
				logger.String("pragma", p.name),
				logger.String("value", p.value),
				logger.Error(err),
			)
			return fmt.Errorf("failed to set PRAGMA %s: %w", p.name, err)
		}
		log.Debug(ctx, "SQLite pragma set", logger.String("pragma", p.name), logger.String("value", p.value))
	}
	return nil
}
