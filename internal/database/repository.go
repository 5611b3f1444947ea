package database

import (
	"context"
)

// RosterReader provides read-only access to enrolled students.
type RosterReader interface {
	// GetStudent retrieves a student by their student ID.
	// Returns ErrNotFound if the student is not enrolled.
	GetStudent(ctx context.Context, studentID string) (*StudentRecord, error)
	// ListStudents returns all enrolled students ordered by student ID,
	// including their reference embeddings.
	ListStudents(ctx context.Context) ([]StudentRecord, error)
	// SearchStudents returns students whose normalized name contains the
	// normalized query, ordered by student ID.
	SearchStudents(ctx context.Context, normalizedQuery string) ([]StudentRecord, error)
	// CountStudents returns the number of enrolled students.
	CountStudents(ctx context.Context) (int, error)
}

// RosterWriter provides write access to the roster.
type RosterWriter interface {
	RosterReader

	// SaveStudent stores a new student. Returns ErrDuplicate if the
	// student ID is already enrolled.
	SaveStudent(ctx context.Context, rec *StudentRecord) error
	// DeleteStudent removes a student from the roster.
	// Returns ErrNotFound if the student is not enrolled.
	DeleteStudent(ctx context.Context, studentID string) error
}

// AttendanceWriter persists present-set commits. The in-memory session stays
// the source of truth for live queries; this store is the durable record.
type AttendanceWriter interface {
	// MarkPresent records a student as present. Marking the same student
	// twice within one session is a no-op.
	MarkPresent(ctx context.Context, rec *AttendanceRecord) error
	// ClearAttendance removes all attendance records. Called when a new
	// session starts.
	ClearAttendance(ctx context.Context) error
	// ListPresent returns attendance records for a session ordered by
	// marked_at.
	ListPresent(ctx context.Context, sessionUID string) ([]AttendanceRecord, error)
}
