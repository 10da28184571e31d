// Package db opens the relational store the vcs core persists to.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the database backend and its connection string.
type Config struct {
	// Type is one of sqlite, postgres, mysql. Defaults to sqlite.
	Type string
	// DSN is the driver connection string. For sqlite it is the database
	// file path; ":memory:" gives an in-memory database.
	DSN string
	// Verbose enables SQL statement logging.
	Verbose bool
}

// Connect opens a gorm handle for the configured backend.
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "gitlite.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres requires a DSN")
		}
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql requires a DSN")
		}
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type %q (sqlite, postgres, mysql)", cfg.Type)
	}

	logMode := logger.Silent
	if cfg.Verbose {
		logMode = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}
	return db, nil
}
