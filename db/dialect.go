// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/danielhkuo/quickly-match/models"
)

// Dialect captures the few places where PostgreSQL and SQLite differ.
type Dialect struct {
	Name   string
	driver string

	jsonType  string
	scoreType string

	// Appended to the session read inside CastVote so a concurrent
	// transition waits for the vote to commit.
	lockShare string
}

var (
	Postgres = Dialect{
		Name:      "postgres",
		driver:    "postgres",
		jsonType:  "JSONB",
		scoreType: "NUMERIC(5,2)",
		lockShare: " FOR SHARE",
	}
	SQLite = Dialect{
		Name:      "sqlite",
		driver:    "sqlite",
		jsonType:  "TEXT",
		scoreType: "REAL",
	}
)

// DialectFor maps a DATABASE_TYPE value to a Dialect.
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(dbType) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database type %q", dbType)
}

// Open connects to the database, verifies the connection and creates the schema.
func Open(ctx context.Context, d Dialect, databaseURL string) (*Store, error) {
	dsn := databaseURL
	if d.Name == SQLite.Name {
		dsn = sqliteDSN(databaseURL)
	}

	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.Name == SQLite.Name {
		// One writer at a time; transactions never interleave in-process.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := CreateSchema(ctx, conn, d); err != nil {
		_ = conn.Close()
		return nil, err
	}

	slog.Info("database ready", "dialect", d.Name)
	return New(conn, d), nil
}

func sqliteDSN(path string) string {
	path = strings.TrimPrefix(path, "file:")
	if path != ":memory:" && !strings.Contains(path, "?") {
		path = filepath.Clean(path)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// isUnavailable reports whether err is a transient connectivity or
// contention failure rather than a problem with the statement itself.
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08", // connection exception
			pqErr.Code.Class() == "53", // insufficient resources
			pqErr.Code == "57P01",      // admin shutdown
			pqErr.Code == "40001",      // serialization failure
			pqErr.Code == "40P01":      // deadlock detected
			return true
		}
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// wrapErr classifies a driver error. Transient failures wrap
// models.ErrStoreUnavailable so callers can decide whether to retry.
func wrapErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%w: failed to %s: %v", models.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
