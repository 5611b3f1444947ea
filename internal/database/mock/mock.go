// Package mock provides in-memory implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

// MockRoster is an in-memory implementation of database.RosterWriter.
type MockRoster struct {
	mu       sync.RWMutex
	students map[string]*database.StudentRecord
	nextID   int64

	// Error injection
	SaveError   error
	GetError    error
	ListError   error
	SearchError error
	CountError  error
	DeleteError error
}

// NewMockRoster creates a new empty mock roster.
func NewMockRoster() *MockRoster {
	return &MockRoster{students: make(map[string]*database.StudentRecord)}
}

// SaveStudent stores a new student.
func (m *MockRoster) SaveStudent(ctx context.Context, rec *database.StudentRecord) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[rec.StudentID]; ok {
		return fmt.Errorf("student %s: %w", rec.StudentID, database.ErrDuplicate)
	}
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	clone := *rec
	m.students[rec.StudentID] = &clone
	return nil
}

// GetStudent retrieves a student by their student ID.
func (m *MockRoster) GetStudent(ctx context.Context, studentID string) (*database.StudentRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.students[studentID]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	clone := *rec
	return &clone, nil
}

// ListStudents returns all students ordered by student ID.
func (m *MockRoster) ListStudents(ctx context.Context) ([]database.StudentRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(func(*database.StudentRecord) bool { return true }), nil
}

// SearchStudents returns students whose normalized name contains the query.
func (m *MockRoster) SearchStudents(ctx context.Context, normalizedQuery string) ([]database.StudentRecord, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(func(rec *database.StudentRecord) bool {
		return strings.Contains(rec.NormalizedName, normalizedQuery)
	}), nil
}

// CountStudents returns the number of enrolled students.
func (m *MockRoster) CountStudents(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// DeleteStudent removes a student from the roster.
func (m *MockRoster) DeleteStudent(ctx context.Context, studentID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[studentID]; !ok {
		return fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	delete(m.students, studentID)
	return nil
}

func (m *MockRoster) sortedLocked(keep func(*database.StudentRecord) bool) []database.StudentRecord {
	var students []database.StudentRecord
	for _, rec := range m.students {
		if keep(rec) {
			students = append(students, *rec)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		return students[i].StudentID < students[j].StudentID
	})
	return students
}

// MockAttendance is an in-memory implementation of database.AttendanceWriter.
type MockAttendance struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	nextID  int64

	// Error injection
	MarkError  error
	ClearError error
	ListError  error
}

// NewMockAttendance creates a new empty mock attendance store.
func NewMockAttendance() *MockAttendance {
	return &MockAttendance{}
}

// MarkPresent records a student as present; re-marking within a session is a no-op.
func (m *MockAttendance) MarkPresent(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.MarkError != nil {
		return m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.SessionUID == rec.SessionUID && existing.StudentID == rec.StudentID {
			return nil
		}
	}
	m.nextID++
	stored := *rec
	stored.ID = m.nextID
	if stored.MarkedAt.IsZero() {
		stored.MarkedAt = time.Now()
	}
	m.records = append(m.records, stored)
	return nil
}

// ClearAttendance removes all attendance records.
func (m *MockAttendance) ClearAttendance(ctx context.Context) error {
	if m.ClearError != nil {
		return m.ClearError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// ListPresent returns attendance records for a session in insertion order.
func (m *MockAttendance) ListPresent(ctx context.Context, sessionUID string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []database.AttendanceRecord
	for _, rec := range m.records {
		if rec.SessionUID == sessionUID {
			records = append(records, rec)
		}
	}
	return records, nil
}
