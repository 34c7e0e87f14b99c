// Package database provides the shared SQL connection, dialect
// placeholder conversion, and schema migrations for the SLA engine.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config holds the connection settings for the shared database handle.
type Config struct {
	Driver          string // postgres, mysql, sqlite3
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var (
	driverMu      sync.RWMutex
	currentDriver = "postgres"
)

// SetDriver records the active driver for dialect-sensitive helpers.
// Connect calls this; tests may call it directly.
func SetDriver(driver string) {
	driverMu.Lock()
	currentDriver = strings.ToLower(driver)
	driverMu.Unlock()
}

// Driver returns the active driver name.
func Driver() string {
	driverMu.RLock()
	defer driverMu.RUnlock()
	return currentDriver
}

// IsMySQL returns true if using MySQL/MariaDB.
func IsMySQL() bool {
	d := Driver()
	return d == "mysql" || d == "mariadb"
}

// IsPostgreSQL returns true if using PostgreSQL.
func IsPostgreSQL() bool {
	return Driver() == "postgres"
}

// IsSQLite returns true if using SQLite.
func IsSQLite() bool {
	return Driver() == "sqlite3"
}

// Connect opens and verifies the database connection described by cfg.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = "postgres"
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	SetDriver(cfg.Driver)
	return db, nil
}
