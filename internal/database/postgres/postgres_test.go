//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(dim int) []float32 {
	embedding := make([]float32, dim)
	for i := range embedding {
		embedding[i] = float32(i) / float32(dim)
	}
	return embedding
}

func TestStudentRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewStudentRepository(pool)

	t.Run("SaveAndGet", func(t *testing.T) {
		rec := &database.StudentRecord{
			StudentID:      "S1",
			Name:           "Jana Nováková",
			NormalizedName: "jana novakova",
			Embedding:      testEmbedding(128),
			Dim:            128,
			Model:          "dlib-resnet",
		}
		if err := repo.SaveStudent(ctx, rec); err != nil {
			t.Fatalf("Failed to save student: %v", err)
		}
		if rec.ID == 0 {
			t.Error("Expected generated ID")
		}

		got, err := repo.GetStudent(ctx, "S1")
		if err != nil {
			t.Fatalf("Failed to get student: %v", err)
		}
		if got.Name != "Jana Nováková" {
			t.Errorf("Expected name 'Jana Nováková', got '%s'", got.Name)
		}
		if len(got.Embedding) != 128 {
			t.Errorf("Expected 128-d embedding, got %d", len(got.Embedding))
		}
	})

	t.Run("DuplicateStudentID", func(t *testing.T) {
		rec := &database.StudentRecord{
			StudentID:      "S1",
			Name:           "Someone Else",
			NormalizedName: "someone else",
			Embedding:      testEmbedding(128),
			Dim:            128,
			Model:          "dlib-resnet",
		}
		err := repo.SaveStudent(ctx, rec)
		if !errors.Is(err, database.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("SearchByNormalizedName", func(t *testing.T) {
		got, err := repo.SearchStudents(ctx, "novakova")
		if err != nil {
			t.Fatalf("Failed to search students: %v", err)
		}
		if len(got) != 1 || got[0].StudentID != "S1" {
			t.Errorf("Expected to find S1 by normalized name, got %v", got)
		}
	})

	t.Run("ListAndCount", func(t *testing.T) {
		students, err := repo.ListStudents(ctx)
		if err != nil {
			t.Fatalf("Failed to list students: %v", err)
		}
		if len(students) != 1 {
			t.Errorf("Expected 1 student, got %d", len(students))
		}

		count, err := repo.CountStudents(ctx)
		if err != nil {
			t.Fatalf("Failed to count students: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected count 1, got %d", count)
		}
	})

	t.Run("DeleteStudent", func(t *testing.T) {
		if err := repo.DeleteStudent(ctx, "S1"); err != nil {
			t.Fatalf("Failed to delete student: %v", err)
		}
		_, err := repo.GetStudent(ctx, "S1")
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteStudent(ctx, "S1"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAttendanceRepository(pool)

	t.Run("MarkPresentIdempotent", func(t *testing.T) {
		rec := &database.AttendanceRecord{SessionUID: "sess-1", StudentID: "S1", Name: "Jana"}
		if err := repo.MarkPresent(ctx, rec); err != nil {
			t.Fatalf("Failed to mark present: %v", err)
		}
		// Second mark within the same session must be a no-op.
		if err := repo.MarkPresent(ctx, rec); err != nil {
			t.Fatalf("Failed to re-mark present: %v", err)
		}

		records, err := repo.ListPresent(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Failed to list present: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("Expected 1 attendance record, got %d", len(records))
		}
	})

	t.Run("SessionsAreIsolated", func(t *testing.T) {
		rec := &database.AttendanceRecord{SessionUID: "sess-2", StudentID: "S1", Name: "Jana"}
		if err := repo.MarkPresent(ctx, rec); err != nil {
			t.Fatalf("Failed to mark present: %v", err)
		}
		records, err := repo.ListPresent(ctx, "sess-2")
		if err != nil {
			t.Fatalf("Failed to list present: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("Expected 1 record in sess-2, got %d", len(records))
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := repo.ClearAttendance(ctx); err != nil {
			t.Fatalf("Failed to clear attendance: %v", err)
		}
		records, err := repo.ListPresent(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Failed to list present: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Expected no records after clear, got %d", len(records))
		}
	})
}
