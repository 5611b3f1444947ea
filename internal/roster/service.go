// Package roster manages student enrollment and keeps the in-memory
// gallery in sync with the durable store.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/recognize"
)

var (
	// ErrNoFaceFound is returned when an enrollment photo contains no detectable face.
	ErrNoFaceFound = errors.New("no face found in photo")
	// ErrMultipleFaces is returned when an enrollment photo contains more than one face.
	ErrMultipleFaces = errors.New("multiple faces found in photo")
	// ErrDuplicateStudent is returned when the student ID is already enrolled.
	ErrDuplicateStudent = errors.New("student already enrolled")
	// ErrInvalidStudent is returned when the student ID or name is empty.
	ErrInvalidStudent = errors.New("student id and name are required")
)

// Service wires the embedding extractor, the roster store and the gallery together.
type Service struct {
	store     database.RosterWriter
	extractor recognize.Extractor
	gallery   *recognize.Gallery
	model     string
}

// NewService creates an enrollment service. The gallery is rebuilt from the
// store on every roster mutation so matching always sees the current roster.
func NewService(store database.RosterWriter, extractor recognize.Extractor, gallery *recognize.Gallery, model string) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		gallery:   gallery,
		model:     model,
	}
}

// Enroll extracts the embedding from a student photo and stores it. The photo
// must contain exactly one face. A failed enrollment leaves both the store and
// the gallery untouched.
func (s *Service) Enroll(ctx context.Context, studentID, name string, photo []byte) (*database.StudentRecord, error) {
	studentID = strings.TrimSpace(studentID)
	name = strings.TrimSpace(name)
	if studentID == "" || name == "" {
		return nil, ErrInvalidStudent
	}

	detections, err := s.extractor.Extract(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("extracting face: %w", err)
	}
	switch len(detections) {
	case 0:
		return nil, ErrNoFaceFound
	case 1:
		// exactly one face, proceed
	default:
		return nil, fmt.Errorf("%w: got %d", ErrMultipleFaces, len(detections))
	}

	det := detections[0]
	rec := &database.StudentRecord{
		StudentID:      studentID,
		Name:           name,
		NormalizedName: NormalizeStudentName(name),
		Embedding:      det.Embedding,
		Dim:            det.Dim,
		Model:          s.model,
	}
	if err := s.store.SaveStudent(ctx, rec); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("student %s: %w", studentID, ErrDuplicateStudent)
		}
		return nil, fmt.Errorf("saving student %s: %w", studentID, err)
	}

	if err := s.ReloadGallery(ctx); err != nil {
		return nil, fmt.Errorf("rebuilding gallery: %w", err)
	}
	return rec, nil
}

// Remove deletes a student and rebuilds the gallery without them.
// Returns database.ErrNotFound when the student does not exist.
func (s *Service) Remove(ctx context.Context, studentID string) error {
	if err := s.store.DeleteStudent(ctx, studentID); err != nil {
		return err
	}
	return s.ReloadGallery(ctx)
}

// Get returns a single student by student ID.
func (s *Service) Get(ctx context.Context, studentID string) (*database.StudentRecord, error) {
	return s.store.GetStudent(ctx, studentID)
}

// List returns the roster ordered by student ID. When query is non-empty it is
// normalized and matched as a substring against the normalized names, so
// "novakova" finds "Jana Nováková".
func (s *Service) List(ctx context.Context, query string) ([]database.StudentRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.store.ListStudents(ctx)
	}
	return s.store.SearchStudents(ctx, NormalizeStudentName(query))
}

// Count returns the number of enrolled students.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountStudents(ctx)
}

// ReloadGallery rebuilds the in-memory gallery from the store. Frames keep
// matching against the previous snapshot until the new one is published.
func (s *Service) ReloadGallery(ctx context.Context) error {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	s.gallery.Rebuild(students)
	return nil
}
