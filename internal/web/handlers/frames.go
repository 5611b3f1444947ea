package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/rollcall/internal/embedding"
	"github.com/kozaktomas/rollcall/internal/recognize"
)

// FramesHandler ingests camera frames.
type FramesHandler struct {
	pipeline *recognize.Pipeline
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(pipeline *recognize.Pipeline) *FramesHandler {
	return &FramesHandler{pipeline: pipeline}
}

// Ingest accepts one frame as multipart field "file", runs it through the
// recognition pipeline and returns the detected faces. A frame that cannot be
// decoded as an image is a 400; an unreachable embedding service is a 502.
// Frames arriving outside a live session are still processed for the response
// but mark nobody present.
func (h *FramesHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	frame, err := readMultipartImage(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}

	faces, err := h.pipeline.Process(r.Context(), frame)
	if err != nil {
		if errors.Is(err, embedding.ErrDecode) {
			respondError(w, http.StatusBadRequest, "frame is not a decodable image")
			return
		}
		log.Printf("frame processing failed: %v", err)
		respondError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}

	if faces == nil {
		faces = []recognize.DetectedFace{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"detected": faces,
	})
}
