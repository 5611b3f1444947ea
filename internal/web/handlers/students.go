package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/embedding"
	"github.com/kozaktomas/rollcall/internal/roster"
)

// StudentsHandler manages roster enrollment over HTTP.
type StudentsHandler struct {
	roster *roster.Service
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(svc *roster.Service) *StudentsHandler {
	return &StudentsHandler{roster: svc}
}

// studentJSON is the roster representation without the embedding payload.
type studentJSON struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toStudentJSON(rec *database.StudentRecord) studentJSON {
	s := studentJSON{
		StudentID: rec.StudentID,
		Name:      rec.Name,
		Model:     rec.Model,
	}
	if !rec.CreatedAt.IsZero() {
		s.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	return s
}

// Enroll registers a student from a multipart form with fields student_id,
// name and file (a photo with exactly one face).
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	photo, err := readMultipartImage(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	studentID := r.FormValue("student_id")
	name := r.FormValue("name")

	rec, err := h.roster.Enroll(r.Context(), studentID, name, photo)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrInvalidStudent):
			respondError(w, http.StatusBadRequest, "student_id and name are required")
		case errors.Is(err, embedding.ErrDecode):
			respondError(w, http.StatusBadRequest, "photo is not a decodable image")
		case errors.Is(err, roster.ErrNoFaceFound):
			respondError(w, http.StatusUnprocessableEntity, "no face found in photo")
		case errors.Is(err, roster.ErrMultipleFaces):
			respondError(w, http.StatusUnprocessableEntity, "photo must contain exactly one face")
		case errors.Is(err, roster.ErrDuplicateStudent):
			respondError(w, http.StatusConflict, "student already enrolled")
		default:
			log.Printf("enrollment of %s failed: %v", sanitizeForLog(studentID), err)
			respondError(w, http.StatusInternalServerError, "enrollment failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toStudentJSON(rec))
}

// List returns the roster ordered by student ID. The optional q parameter
// searches names ignoring case and diacritics.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.roster.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Printf("listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	out := make([]studentJSON, 0, len(students))
	for i := range students {
		out = append(out, toStudentJSON(&students[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": out,
		"count":    len(out),
	})
}

// Delete removes a student from the roster and the gallery.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	if err := h.roster.Remove(r.Context(), studentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		log.Printf("removing student %s failed: %v", sanitizeForLog(studentID), err)
		respondError(w, http.StatusInternalServerError, "failed to remove student")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"deleted": studentID,
	})
}
