// Package mariadb provides a MariaDB/MySQL alternative to the PostgreSQL
// roster store. MySQL has no vector type, so embeddings travel as packed
// little-endian float32 blobs.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	// created_at scans into time.Time, which requires parseTime.
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Migrate creates the roster and attendance tables if missing.
func (p *Pool) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id              BIGINT AUTO_INCREMENT PRIMARY KEY,
			student_id      VARCHAR(64) NOT NULL UNIQUE,
			name            VARCHAR(255) NOT NULL,
			normalized_name VARCHAR(255) NOT NULL,
			embedding       MEDIUMBLOB NOT NULL,
			dim             INT NOT NULL,
			model           VARCHAR(255) NOT NULL,
			created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_students_normalized_name (normalized_name)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			session_uid VARCHAR(64) NOT NULL,
			student_id  VARCHAR(64) NOT NULL,
			name        VARCHAR(255) NOT NULL,
			marked_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_attendance (session_uid, student_id),
			INDEX idx_attendance_session (session_uid)
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply MariaDB migration: %w", err)
		}
	}
	return nil
}
