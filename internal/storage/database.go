package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"visionchat/internal/config"
)

// ErrDisabled is returned by Open when the ledger database is turned off.
var ErrDisabled = errors.New("database disabled")

// Open connects to the configured ledger database.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return nil, ErrDisabled
	case "sqlite", "sqlite3":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// one connection keeps :memory: databases and writes consistent
		db.SetMaxOpenConns(1)
	case "mysql":
		dsn, derr := mysqlDSN(cfg)
		if derr != nil {
			return nil, derr
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func mysqlDSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	if cfg.Params != "" {
		values, err := url.ParseQuery(cfg.Params)
		if err != nil {
			return "", fmt.Errorf("parse mysql params: %w", err)
		}
		mc.Params = make(map[string]string, len(values))
		for k := range values {
			mc.Params[k] = values.Get(k)
		}
	}
	return mc.FormatDSN(), nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS request_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL,
				app TEXT NOT NULL,
				has_text INTEGER NOT NULL DEFAULT 0,
				has_image INTEGER NOT NULL DEFAULT 0,
				streamed INTEGER NOT NULL DEFAULT 0,
				outcome TEXT NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				duration_ms INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_request_log_app ON request_log(app, outcome)`,
			`CREATE INDEX IF NOT EXISTS idx_request_log_created_at ON request_log(created_at DESC)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS request_log (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				session_id VARCHAR(64) NOT NULL,
				app VARCHAR(32) NOT NULL,
				has_text TINYINT(1) NOT NULL DEFAULT 0,
				has_image TINYINT(1) NOT NULL DEFAULT 0,
				streamed TINYINT(1) NOT NULL DEFAULT 0,
				outcome VARCHAR(16) NOT NULL,
				error TEXT NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at DATETIME(3) NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_request_log_app (app, outcome),
				INDEX idx_request_log_created_at (created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
