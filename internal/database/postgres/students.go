package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// StudentRepository provides PostgreSQL-backed roster storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = "id, student_id, name, normalized_name, embedding, dim, model, created_at"

// scanStudent scans one student row including its embedding vector.
func scanStudent(row interface{ Scan(...any) error }) (*database.StudentRecord, error) {
	var rec database.StudentRecord
	var vec pgvector.Vector
	if err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.Name,
		&rec.NormalizedName,
		&vec,
		&rec.Dim,
		&rec.Model,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Embedding = vec.Slice()
	return &rec, nil
}

func scanStudents(rows *sql.Rows) ([]database.StudentRecord, error) {
	var students []database.StudentRecord
	for rows.Next() {
		rec, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// SaveStudent stores a new student. Returns database.ErrDuplicate when the
// student ID is already enrolled.
func (r *StudentRepository) SaveStudent(ctx context.Context, rec *database.StudentRecord) error {
	query := `
		INSERT INTO students (student_id, name, normalized_name, embedding, dim, model)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		rec.StudentID, rec.Name, rec.NormalizedName,
		pgvector.NewVector(rec.Embedding), rec.Dim, rec.Model,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("student %s: %w", rec.StudentID, database.ErrDuplicate)
		}
		return fmt.Errorf("save student: %w", err)
	}
	return nil
}

// GetStudent retrieves a student by their student ID.
func (r *StudentRepository) GetStudent(ctx context.Context, studentID string) (*database.StudentRecord, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE student_id = $1"

	rec, err := scanStudent(r.pool.QueryRow(ctx, query, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return rec, nil
}

// ListStudents returns all students ordered by student ID, embeddings included.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]database.StudentRecord, error) {
	query := "SELECT " + studentColumns + " FROM students ORDER BY student_id"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// SearchStudents returns students whose normalized name contains the query.
func (r *StudentRepository) SearchStudents(ctx context.Context, normalizedQuery string) ([]database.StudentRecord, error) {
	query := "SELECT " + studentColumns + ` FROM students
		WHERE normalized_name LIKE '%' || $1 || '%'
		ORDER BY student_id`

	rows, err := r.pool.Query(ctx, query, normalizedQuery)
	if err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// CountStudents returns the number of enrolled students.
func (r *StudentRepository) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// DeleteStudent removes a student from the roster.
func (r *StudentRepository) DeleteStudent(ctx context.Context, studentID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE student_id = $1", studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	return nil
}
