package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/recognize"
)

// SessionHandler controls the attendance session lifecycle.
type SessionHandler struct {
	session    *recognize.Session
	gallery    *recognize.Gallery
	attendance database.AttendanceWriter
}

// NewSessionHandler creates a new session handler. The attendance writer may
// be nil when no durable store is configured.
func NewSessionHandler(session *recognize.Session, gallery *recognize.Gallery, attendance database.AttendanceWriter) *SessionHandler {
	return &SessionHandler{
		session:    session,
		gallery:    gallery,
		attendance: attendance,
	}
}

// Start opens a new attendance window. Any previous present set is discarded
// and the durable attendance table is cleared for the fresh run.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.attendance != nil {
		if err := h.attendance.ClearAttendance(r.Context()); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to clear attendance")
			return
		}
	}

	uid := h.session.Start()
	log.Printf("session %s started", uid)

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      string(h.session.Status()),
		"session_uid": uid,
		"started_at":  h.session.StartedAt().Format(time.RFC3339),
	})
}

// Stop closes the attendance window. The present set stays queryable.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()

	respondJSON(w, http.StatusOK, map[string]any{
		"status":        string(h.session.Status()),
		"present_count": h.session.PresentCount(),
	})
}

// Status reports the current session state.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":        string(h.session.Status()),
		"present_count": h.session.PresentCount(),
	}
	if uid := h.session.UID(); uid != "" {
		resp["session_uid"] = uid
		resp["started_at"] = h.session.StartedAt().Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}

// presentStudent is one row of the attendance listing.
type presentStudent struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name,omitempty"`
}

// Attendance lists the students marked present in the current window. Names
// are resolved against the current gallery; a student removed mid-session
// keeps their ID in the list.
func (h *SessionHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	names := make(map[string]string)
	for _, entry := range h.gallery.Entries() {
		names[entry.StudentID] = entry.Name
	}

	ids := h.session.PresentIDs()
	present := make([]presentStudent, 0, len(ids))
	for _, id := range ids {
		present = append(present, presentStudent{StudentID: id, Name: names[id]})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"present": present,
		"count":   len(present),
	})
}
