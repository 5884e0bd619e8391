// Package postgres stores sightings in a PostgreSQL database through the
// pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Descriptor addresses a PostgreSQL database.
type Descriptor struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the descriptor as a postgres:// URL.
func (d Descriptor) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	q.Set("application_name", "agrovision")
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted is DSN with the password masked, for logging.
func (d Descriptor) Redacted() string {
	if d.Password != "" {
		d.Password = "xxxxx"
	}
	return d.DSN()
}

// DB wraps the pooled PostgreSQL connection.
type DB struct {
	conn *sql.DB
}

// New opens a pool, verifies connectivity and creates the schema.
func New(ctx context.Context, d Descriptor) (*DB, error) {
	conn, err := sql.Open("pgx", d.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", d.Redacted(), err)
	}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sightings (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		marker_id INTEGER NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL,
		snapshot BYTEA,
		snapshot_size BIGINT DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_sightings_marker_id ON sightings(marker_id);
	CREATE INDEX IF NOT EXISTS idx_sightings_detected_at ON sightings(detected_at);
	`

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying pool for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
