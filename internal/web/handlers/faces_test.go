package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFacesHandler_Similar(t *testing.T) {
	ts := newTestStack()
	ts.enrollDirect(t, "S1", "Jana", []float32{1, 0, 0})
	ts.enrollDirect(t, "S2", "Petr", []float32{0, 1, 0})
	ts.extractor.detections = singleFace([]float32{0.9, 0.1, 0})
	h := NewFacesHandler(ts.extractor, ts.gallery)

	req := multipartRequest(t, http.MethodPost, "/api/v1/faces/similar", nil, "file", []byte("photo"))
	rec := httptest.NewRecorder()
	h.Similar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	candidates := body["candidates"].([]any)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	nearest := candidates[0].(map[string]any)
	if nearest["student_id"] != "S1" {
		t.Errorf("nearest candidate = %v, want S1", nearest)
	}
}

func TestFacesHandler_SimilarRespectsK(t *testing.T) {
	ts := newTestStack()
	ts.enrollDirect(t, "S1", "Jana", []float32{1, 0, 0})
	ts.enrollDirect(t, "S2", "Petr", []float32{0, 1, 0})
	ts.extractor.detections = singleFace([]float32{1, 0, 0})
	h := NewFacesHandler(ts.extractor, ts.gallery)

	req := multipartRequest(t, http.MethodPost, "/api/v1/faces/similar",
		map[string]string{"k": "1"}, "file", []byte("photo"))
	rec := httptest.NewRecorder()
	h.Similar(rec, req)

	body := decodeJSON(t, rec)
	if candidates := body["candidates"].([]any); len(candidates) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(candidates))
	}
}

func TestFacesHandler_SimilarInvalidK(t *testing.T) {
	ts := newTestStack()
	ts.extractor.detections = singleFace([]float32{1, 0, 0})
	h := NewFacesHandler(ts.extractor, ts.gallery)

	req := multipartRequest(t, http.MethodPost, "/api/v1/faces/similar",
		map[string]string{"k": "zero"}, "file", []byte("photo"))
	rec := httptest.NewRecorder()
	h.Similar(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFacesHandler_SimilarNoFace(t *testing.T) {
	ts := newTestStack()
	h := NewFacesHandler(ts.extractor, ts.gallery)

	req := multipartRequest(t, http.MethodPost, "/api/v1/faces/similar", nil, "file", []byte("photo"))
	rec := httptest.NewRecorder()
	h.Similar(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestFacesHandler_SimilarEmptyGallery(t *testing.T) {
	ts := newTestStack()
	ts.extractor.detections = singleFace([]float32{1, 0, 0})
	h := NewFacesHandler(ts.extractor, ts.gallery)

	req := multipartRequest(t, http.MethodPost, "/api/v1/faces/similar", nil, "file", []byte("photo"))
	rec := httptest.NewRecorder()
	h.Similar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeJSON(t, rec)
	if candidates := body["candidates"].([]any); len(candidates) != 0 {
		t.Errorf("expected no candidates, got %v", candidates)
	}
}
