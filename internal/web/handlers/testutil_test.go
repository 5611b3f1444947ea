package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/mock"
	"github.com/kozaktomas/rollcall/internal/embedding"
	"github.com/kozaktomas/rollcall/internal/recognize"
	"github.com/kozaktomas/rollcall/internal/roster"
)

// fakeExtractor returns canned detections so handler tests need no embedding server.
type fakeExtractor struct {
	detections []embedding.Detection
	err        error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) ([]embedding.Detection, error) {
	return f.detections, f.err
}

func singleFace(emb []float32) []embedding.Detection {
	return []embedding.Detection{{
		FaceIndex: 0,
		Dim:       len(emb),
		Embedding: emb,
		BBox:      []float64{10, 20, 110, 120},
	}}
}

// testStack bundles everything a handler test needs.
type testStack struct {
	extractor  *fakeExtractor
	store      *mock.MockRoster
	attendance *mock.MockAttendance
	gallery    *recognize.Gallery
	session    *recognize.Session
	pipeline   *recognize.Pipeline
	roster     *roster.Service
}

func newTestStack() *testStack {
	ext := &fakeExtractor{}
	store := mock.NewMockRoster()
	attendance := mock.NewMockAttendance()
	gallery := recognize.NewGallery()
	session := recognize.NewSession()
	pipeline := recognize.NewPipeline(ext, gallery, session,
		recognize.WithAttendanceWriter(attendance))
	rosterSvc := roster.NewService(store, ext, gallery, "dlib-resnet")

	return &testStack{
		extractor:  ext,
		store:      store,
		attendance: attendance,
		gallery:    gallery,
		session:    session,
		pipeline:   pipeline,
		roster:     rosterSvc,
	}
}

// enrollDirect seeds the store and gallery without going through the extractor.
func (ts *testStack) enrollDirect(t *testing.T, studentID, name string, emb []float32) {
	t.Helper()
	err := ts.store.SaveStudent(context.Background(), &database.StudentRecord{
		StudentID:      studentID,
		Name:           name,
		NormalizedName: roster.NormalizeStudentName(name),
		Embedding:      emb,
		Dim:            len(emb),
		Model:          "dlib-resnet",
	})
	if err != nil {
		t.Fatalf("seeding student %s: %v", studentID, err)
	}
	if err := ts.roster.ReloadGallery(context.Background()); err != nil {
		t.Fatalf("reloading gallery: %v", err)
	}
}

// multipartRequest builds a multipart request with optional form fields and one file part.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileField string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("writing field %s: %v", key, err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, "photo.jpg")
		if err != nil {
			t.Fatalf("creating file part: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeJSON decodes a response body into a generic map.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}
