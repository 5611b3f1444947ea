package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// MarkPresent records a student as present for a session. Re-marking the same
// student within one session is a no-op (unique constraint, DO NOTHING).
func (r *AttendanceRepository) MarkPresent(ctx context.Context, rec *database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (session_uid, student_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_uid, student_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, rec.SessionUID, rec.StudentID, rec.Name); err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	return nil
}

// ClearAttendance removes all attendance records.
func (r *AttendanceRepository) ClearAttendance(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM attendance"); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	return nil
}

// ListPresent returns attendance records for a session ordered by marked_at.
func (r *AttendanceRepository) ListPresent(ctx context.Context, sessionUID string) ([]database.AttendanceRecord, error) {
	query := `
		SELECT id, session_uid, student_id, name, marked_at
		FROM attendance
		WHERE session_uid = $1
		ORDER BY marked_at
	`

	rows, err := r.pool.Query(ctx, query, sessionUID)
	if err != nil {
		return nil, fmt.Errorf("list present: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.SessionUID, &rec.StudentID, &rec.Name, &rec.MarkedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
