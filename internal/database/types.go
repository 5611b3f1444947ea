package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint is violated,
// typically enrolling an already-known student ID.
var ErrDuplicate = errors.New("record already exists")

// StudentRecord is a roster entry: one enrolled student and their
// reference face embedding.
type StudentRecord struct {
	ID             int64
	StudentID      string
	Name           string
	NormalizedName string // lowercase, no diacritics; used for roster search
	Embedding      []float32
	Dim            int
	Model          string
	CreatedAt      time.Time
}

// AttendanceRecord is one durable "marked present" event. SessionUID groups
// records belonging to the same live attendance window.
type AttendanceRecord struct {
	ID         int64
	SessionUID string
	StudentID  string
	Name       string
	MarkedAt   time.Time
}
