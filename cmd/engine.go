package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/mariadb"
	"github.com/kozaktomas/rollcall/internal/database/postgres"
	"github.com/kozaktomas/rollcall/internal/embedding"
	"github.com/kozaktomas/rollcall/internal/recognize"
	"github.com/kozaktomas/rollcall/internal/roster"
)

// engine bundles the components shared by the CLI commands: the storage
// backend, the embedding client, the gallery and the enrollment service.
type engine struct {
	cfg        *config.Config
	store      database.RosterWriter
	attendance database.AttendanceWriter
	extractor  *embedding.Client
	gallery    *recognize.Gallery
	service    *roster.Service
	closeFn    func()
}

func (e *engine) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// tolerance returns the calibrated match tolerance for the configured
// embedding model, falling back to the built-in default.
func (e *engine) tolerance() float64 {
	if t := e.cfg.ToleranceFor(e.cfg.Embedding.Model); t > 0 {
		return t
	}
	return recognize.MatchTolerance
}

// buildEngine connects the configured storage backend, runs migrations and
// loads the gallery from the roster. MariaDB is used when MARIADB_DSN is set,
// PostgreSQL otherwise.
func buildEngine(ctx context.Context) (*engine, error) {
	cfg := config.Load()

	var (
		store      database.RosterWriter
		attendance database.AttendanceWriter
		closeFn    func()
	)

	switch {
	case cfg.Database.MariaDBDSN != "":
		pool, err := mariadb.NewPool(cfg.Database.MariaDBDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to MariaDB: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating MariaDB schema: %w", err)
		}
		store = mariadb.NewStudentRepository(pool)
		attendance = mariadb.NewAttendanceRepository(pool)
		closeFn = func() { pool.Close() }
		fmt.Println("Using MariaDB backend")

	case cfg.Database.URL != "":
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating PostgreSQL schema: %w", err)
		}
		store = postgres.NewStudentRepository(pool)
		attendance = postgres.NewAttendanceRepository(pool)
		closeFn = func() { pool.Close() }
		fmt.Println("Using PostgreSQL backend")

	default:
		return nil, errors.New("DATABASE_URL or MARIADB_DSN environment variable is required")
	}

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.MaxFrameSize)
	gallery := recognize.NewGallery()
	service := roster.NewService(store, extractor, gallery, cfg.Embedding.Model)

	if err := service.ReloadGallery(ctx); err != nil {
		closeFn()
		return nil, fmt.Errorf("loading gallery from roster: %w", err)
	}
	fmt.Printf("Gallery loaded with %d enrolled students\n", gallery.Len())

	return &engine{
		cfg:        cfg,
		store:      store,
		attendance: attendance,
		extractor:  extractor,
		gallery:    gallery,
		service:    service,
		closeFn:    closeFn,
	}, nil
}
