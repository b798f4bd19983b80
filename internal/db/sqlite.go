package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tabrown76/Aramark-Scripts/internal/db/migrations"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
)

// pragmas applied to every connection. foreign_keys makes run_units follow
// their run on replace.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func dsn(path string) string {
	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(params, "&")
}

// NewSQLite opens the run history at path, creating the directory and
// applying migrations.
func NewSQLite(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Runs are written one at a time; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if err := setup(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Infof("Run history at %s", path)
	return NewStore(conn), nil
}

func setup(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if err := migrations.Run(conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
