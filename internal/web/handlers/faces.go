package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kozaktomas/rollcall/internal/embedding"
	"github.com/kozaktomas/rollcall/internal/recognize"
)

// defaultSimilarK is how many candidates Similar returns when k is not given.
const defaultSimilarK = 5

// FacesHandler serves gallery diagnostics.
type FacesHandler struct {
	extractor recognize.Extractor
	gallery   *recognize.Gallery
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(extractor recognize.Extractor, gallery *recognize.Gallery) *FacesHandler {
	return &FacesHandler{
		extractor: extractor,
		gallery:   gallery,
	}
}

// Similar returns the top-k enrolled students closest to the face in the
// uploaded probe photo, regardless of tolerance. Useful for checking why a
// student fails to match during a session.
func (h *FacesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	photo, err := readMultipartImage(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}

	k := defaultSimilarK
	if v := r.FormValue("k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = parsed
	}

	detections, err := h.extractor.Extract(r.Context(), photo)
	if err != nil {
		if errors.Is(err, embedding.ErrDecode) {
			respondError(w, http.StatusBadRequest, "photo is not a decodable image")
			return
		}
		respondError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}
	if len(detections) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no face found in photo")
		return
	}

	// Probe with the first detected face.
	neighbors := h.gallery.Snapshot().Nearest(detections[0].Embedding, k)
	if neighbors == nil {
		neighbors = []recognize.Neighbor{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"candidates": neighbors,
	})
}
