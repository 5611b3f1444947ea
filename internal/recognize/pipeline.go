package recognize

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/embedding"
)

// Extractor detects faces in a frame and computes their embeddings.
type Extractor interface {
	Extract(ctx context.Context, frame []byte) ([]embedding.Detection, error)
}

// Pipeline drives one frame through extraction, matching and the session.
// Frames arrive sequentially from the capture loop; the pipeline itself is
// safe under concurrent submission because the gallery publishes immutable
// snapshots and the session serializes its own state. Processing is
// synchronous on the caller: there is no internal frame queue to grow without
// bound, the submitting client is the backpressure.
type Pipeline struct {
	extractor  Extractor
	gallery    *Gallery
	session    *Session
	attendance database.AttendanceWriter // optional durable mirror of present-set commits
	tolerance  float64
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTolerance overrides the default match tolerance, typically with the
// calibrated value for the configured embedding model.
func WithTolerance(tolerance float64) PipelineOption {
	return func(p *Pipeline) {
		if tolerance > 0 {
			p.tolerance = tolerance
		}
	}
}

// WithAttendanceWriter mirrors newly-present students to a durable store.
// Writes are best-effort: a storage failure is logged and never un-marks a
// student from the in-memory present set.
func WithAttendanceWriter(w database.AttendanceWriter) PipelineOption {
	return func(p *Pipeline) {
		p.attendance = w
	}
}

// NewPipeline creates a frame pipeline over the given collaborators.
func NewPipeline(extractor Extractor, gallery *Gallery, session *Session, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		gallery:   gallery,
		session:   session,
		tolerance: MatchTolerance,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the session this pipeline feeds.
func (p *Pipeline) Session() *Session {
	return p.session
}

// Extractor returns the embedding extractor the pipeline uses.
func (p *Pipeline) Extractor() Extractor {
	return p.extractor
}

// Process runs one frame: extract faces, match each against a single gallery
// snapshot, commit all matched identities to the session in one step, and
// return one annotation per detection. A decode failure aborts the frame with
// no session mutation. A face that cannot be scored degrades to Unknown
// instead of failing the frame.
func (p *Pipeline) Process(ctx context.Context, frame []byte) ([]DetectedFace, error) {
	detections, err := p.extractor.Extract(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("extracting faces: %w", err)
	}

	snap := p.gallery.Snapshot()

	faces := make([]DetectedFace, 0, len(detections))
	var matched []string
	for _, det := range detections {
		m := MatchAgainst(det.Embedding, snap, p.tolerance)
		faces = append(faces, DetectedFace{
			Box:       boxFromBBox(det.BBox),
			StudentID: studentIDOrEmpty(m),
			Name:      m.Name,
			Distance:  m.Distance,
		})
		if m.StudentID != Unknown {
			matched = append(matched, m.StudentID)
		}
	}

	// One commit per frame: all matched identities observe together, so a
	// session stopped mid-frame sees none of them.
	newly := p.session.ObserveAll(matched)
	p.recordAttendance(ctx, newly)

	return faces, nil
}

// recordAttendance mirrors newly-present students to the durable store.
func (p *Pipeline) recordAttendance(ctx context.Context, newly []string) {
	if p.attendance == nil || len(newly) == 0 {
		return
	}

	sessionUID := p.session.UID()
	names := galleryNames(p.gallery.Snapshot())
	for _, id := range newly {
		rec := &database.AttendanceRecord{
			SessionUID: sessionUID,
			StudentID:  id,
			Name:       names[id],
		}
		if err := p.attendance.MarkPresent(ctx, rec); err != nil {
			log.Printf("failed to persist attendance for %s: %v", id, err)
		}
	}
}

func galleryNames(snap *Snapshot) map[string]string {
	names := make(map[string]string, len(snap.entries))
	for i := range snap.entries {
		names[snap.entries[i].StudentID] = snap.entries[i].Name
	}
	return names
}

func studentIDOrEmpty(m Match) string {
	if m.StudentID == Unknown {
		return ""
	}
	return m.StudentID
}

// boxFromBBox converts an [x1, y1, x2, y2] pixel box to the annotation shape.
func boxFromBBox(bbox []float64) BoundingBox {
	if len(bbox) != 4 {
		return BoundingBox{}
	}
	return BoundingBox{
		Top:    int(math.Round(bbox[1])),
		Left:   int(math.Round(bbox[0])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
	}
}
