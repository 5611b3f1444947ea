package recognize

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/mock"
	"github.com/kozaktomas/rollcall/internal/embedding"
)

// fakeExtractor returns canned detections without an embedding server.
type fakeExtractor struct {
	detections []embedding.Detection
	err        error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) ([]embedding.Detection, error) {
	return f.detections, f.err
}

func detectionAt(emb []float32) embedding.Detection {
	return embedding.Detection{
		FaceIndex: 0,
		Dim:       len(emb),
		Embedding: emb,
		BBox:      []float64{10, 20, 110, 120},
	}
}

func TestPipeline_ExactMatchMarksPresent(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{
		student("S1", "Jana", []float32{1, 0, 0}),
		student("S2", "Petr", []float32{0, 1, 0}),
	})
	session := NewSession()
	session.Start()

	ext := &fakeExtractor{detections: []embedding.Detection{detectionAt([]float32{1, 0, 0})}}
	p := NewPipeline(ext, gallery, session)

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected one face, got %d", len(faces))
	}

	face := faces[0]
	if face.StudentID != "S1" || face.Name != "Jana" {
		t.Errorf("expected S1/Jana, got %s/%s", face.StudentID, face.Name)
	}
	if face.Distance == nil || *face.Distance != 0 {
		t.Errorf("expected distance 0, got %v", face.Distance)
	}
	if face.Box.Left != 10 || face.Box.Top != 20 || face.Box.Right != 110 || face.Box.Bottom != 120 {
		t.Errorf("unexpected bounding box %+v", face.Box)
	}
	if !session.IsPresent("S1") {
		t.Error("expected S1 marked present")
	}
}

func TestPipeline_EmptyGalleryYieldsUnknown(t *testing.T) {
	gallery := NewGallery()
	session := NewSession()
	session.Start()

	ext := &fakeExtractor{detections: []embedding.Detection{detectionAt([]float32{1, 0, 0})}}
	p := NewPipeline(ext, gallery, session)

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected one face, got %d", len(faces))
	}
	if faces[0].Name != Unknown || faces[0].StudentID != "" {
		t.Errorf("expected unknown face, got %+v", faces[0])
	}
	if faces[0].Distance != nil {
		t.Errorf("expected nil distance against an empty gallery, got %v", *faces[0].Distance)
	}
	if session.PresentCount() != 0 {
		t.Error("unknown faces must not change the present set")
	}
}

func TestPipeline_NoFacesInFrame(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{student("S1", "Jana", []float32{1, 0, 0})})
	session := NewSession()
	session.Start()

	p := NewPipeline(&fakeExtractor{}, gallery, session)

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected no faces, got %d", len(faces))
	}
	if session.PresentCount() != 0 {
		t.Error("present set must be untouched")
	}
}

func TestPipeline_ExtractorFailureLeavesSessionUntouched(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{student("S1", "Jana", []float32{1, 0, 0})})
	session := NewSession()
	session.Start()

	ext := &fakeExtractor{err: embedding.ErrDecode}
	p := NewPipeline(ext, gallery, session)

	_, err := p.Process(context.Background(), []byte("not an image"))
	if !errors.Is(err, embedding.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if session.PresentCount() != 0 {
		t.Error("a failed frame must not mutate the present set")
	}
}

func TestPipeline_LateFrameAfterStop(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{student("S1", "Jana", []float32{1, 0, 0})})
	session := NewSession()
	session.Start()
	session.Stop()

	ext := &fakeExtractor{detections: []embedding.Detection{detectionAt([]float32{1, 0, 0})}}
	p := NewPipeline(ext, gallery, session)

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	// The face is still identified for the response.
	if len(faces) != 1 || faces[0].StudentID != "S1" {
		t.Fatalf("expected identified face, got %+v", faces)
	}
	if session.PresentCount() != 0 {
		t.Error("late frames must not mark anyone present")
	}
}

func TestPipeline_MultipleFacesSingleCommit(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{
		student("S1", "Jana", []float32{1, 0, 0}),
		student("S2", "Petr", []float32{0, 1, 0}),
	})
	session := NewSession()
	session.Start()

	ext := &fakeExtractor{detections: []embedding.Detection{
		detectionAt([]float32{1, 0, 0}),
		detectionAt([]float32{0, 1, 0}),
		detectionAt([]float32{0, 0, 1}),
	}}
	p := NewPipeline(ext, gallery, session)

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(faces) != 3 {
		t.Fatalf("expected three faces, got %d", len(faces))
	}
	if session.PresentCount() != 2 {
		t.Errorf("expected S1 and S2 present, got %v", session.PresentIDs())
	}
}

func TestPipeline_AttendanceWrittenOncePerStudent(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{student("S1", "Jana", []float32{1, 0, 0})})
	session := NewSession()
	uid := session.Start()

	att := mock.NewMockAttendance()
	ext := &fakeExtractor{detections: []embedding.Detection{detectionAt([]float32{1, 0, 0})}}
	p := NewPipeline(ext, gallery, session, WithAttendanceWriter(att))

	for i := 0; i < 3; i++ {
		if _, err := p.Process(context.Background(), []byte("frame")); err != nil {
			t.Fatalf("process failed: %v", err)
		}
	}

	records, err := att.ListPresent(context.Background(), uid)
	if err != nil {
		t.Fatalf("listing attendance: %v", err)
	}
	if len(records) != 1 || records[0].StudentID != "S1" {
		t.Errorf("expected one attendance row for S1, got %+v", records)
	}
}

func TestPipeline_AttendanceFailureDoesNotFailFrame(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{student("S1", "Jana", []float32{1, 0, 0})})
	session := NewSession()
	session.Start()

	att := mock.NewMockAttendance()
	att.MarkError = errors.New("connection reset")
	ext := &fakeExtractor{detections: []embedding.Detection{detectionAt([]float32{1, 0, 0})}}
	p := NewPipeline(ext, gallery, session, WithAttendanceWriter(att))

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("frame must succeed despite the write-behind failure: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected one face, got %d", len(faces))
	}
	if !session.IsPresent("S1") {
		t.Error("in-memory present set is authoritative")
	}
}

func TestPipeline_CustomTolerance(t *testing.T) {
	gallery := NewGallery()
	gallery.Rebuild([]database.StudentRecord{student("S1", "Jana", []float32{1, 0, 0})})
	session := NewSession()
	session.Start()

	// Distance between the probe and S1 is 1.0, above a 0.5 tolerance.
	ext := &fakeExtractor{detections: []embedding.Detection{detectionAt([]float32{0, 1, 0})}}
	p := NewPipeline(ext, gallery, session, WithTolerance(0.5))

	faces, err := p.Process(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if faces[0].Name != Unknown {
		t.Errorf("expected unknown above tolerance, got %+v", faces[0])
	}
}
