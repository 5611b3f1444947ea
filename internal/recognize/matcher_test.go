package recognize

import (
	"math"
	"testing"

	"github.com/kozaktomas/rollcall/internal/database"
)

func snapshotOf(students ...database.StudentRecord) *Snapshot {
	return buildSnapshot(students)
}

func student(id, name string, embedding []float32) database.StudentRecord {
	return database.StudentRecord{
		StudentID: id,
		Name:      name,
		Embedding: embedding,
		Dim:       len(embedding),
		Model:     "dlib-resnet",
	}
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"pythagorean", []float32{0, 0}, []float32{3, 4}, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EuclideanDistance(tc.a, tc.b); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEuclideanDistance_InvalidInput(t *testing.T) {
	if !math.IsInf(EuclideanDistance([]float32{1}, []float32{1, 2}), 1) {
		t.Error("expected +Inf for mismatched lengths")
	}
	if !math.IsInf(EuclideanDistance(nil, nil), 1) {
		t.Error("expected +Inf for empty vectors")
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	m := MatchEmbedding([]float32{1, 2, 3}, snapshotOf())

	if m.StudentID != Unknown {
		t.Errorf("expected Unknown, got %s", m.StudentID)
	}
	if m.Distance != nil {
		t.Errorf("expected nil distance for empty gallery, got %v", *m.Distance)
	}
}

func TestMatch_ExactMatch(t *testing.T) {
	e1 := []float32{0.1, 0.2, 0.3}
	snap := snapshotOf(student("S1", "Jana", e1))

	m := MatchEmbedding(e1, snap)

	if m.StudentID != "S1" {
		t.Errorf("expected S1, got %s", m.StudentID)
	}
	if m.Distance == nil || *m.Distance != 0 {
		t.Errorf("expected distance 0, got %v", m.Distance)
	}
}

func TestMatch_PicksMinimum(t *testing.T) {
	snap := snapshotOf(
		student("S1", "Jana", []float32{0, 0}),
		student("S2", "Petr", []float32{0.3, 0}),
	)

	m := MatchEmbedding([]float32{0.25, 0}, snap)

	if m.StudentID != "S2" {
		t.Errorf("expected nearest student S2, got %s", m.StudentID)
	}
}

func TestMatch_AboveToleranceIsUnknownWithDistance(t *testing.T) {
	snap := snapshotOf(student("S1", "Jana", []float32{0, 0}))

	m := MatchEmbedding([]float32{10, 0}, snap)

	if m.StudentID != Unknown {
		t.Errorf("expected Unknown, got %s", m.StudentID)
	}
	if m.Distance == nil || *m.Distance != 10 {
		t.Errorf("expected best distance 10 still reported, got %v", m.Distance)
	}
}

func TestMatch_ToleranceBoundaryIsInclusive(t *testing.T) {
	snap := snapshotOf(student("S1", "Jana", []float32{0, 0}))

	// Distance exactly equal to the tolerance classifies as a match.
	m := MatchAgainst([]float32{0.5, 0}, snap, 0.5)
	if m.StudentID != "S1" {
		t.Errorf("expected boundary distance to match, got %s", m.StudentID)
	}

	m = MatchAgainst([]float32{0.5000001, 0}, snap, 0.5)
	if m.StudentID != Unknown {
		t.Errorf("expected distance just above tolerance to be Unknown, got %s", m.StudentID)
	}
}

func TestMatch_TieBreaksToLowestStudentID(t *testing.T) {
	// Two students equidistant from the query; snapshot order is sorted by
	// student ID, so S1 must win on every call.
	snap := snapshotOf(
		student("S1", "Jana", []float32{0.1, 0}),
		student("S2", "Petr", []float32{0.1, 0}),
	)

	for i := 0; i < 10; i++ {
		m := MatchEmbedding([]float32{0, 0}, snap)
		if m.StudentID != "S1" {
			t.Fatalf("expected deterministic tie-break to S1, got %s on call %d", m.StudentID, i)
		}
	}
}

func TestMatch_Deterministic(t *testing.T) {
	snap := snapshotOf(
		student("S1", "Jana", []float32{0.1, 0.2, 0.3}),
		student("S2", "Petr", []float32{0.4, 0.5, 0.6}),
	)
	query := []float32{0.15, 0.25, 0.35}

	first := MatchEmbedding(query, snap)
	for i := 0; i < 20; i++ {
		m := MatchEmbedding(query, snap)
		if m.StudentID != first.StudentID || *m.Distance != *first.Distance {
			t.Fatalf("match not deterministic: (%s, %v) vs (%s, %v)",
				first.StudentID, *first.Distance, m.StudentID, *m.Distance)
		}
	}
}

func TestMatch_DimensionMismatchSkipped(t *testing.T) {
	snap := snapshotOf(
		student("S1", "Jana", []float32{0, 0, 0}), // wrong dimensionality for the query
		student("S2", "Petr", []float32{0.1, 0}),
	)

	m := MatchEmbedding([]float32{0, 0}, snap)

	if m.StudentID != "S2" {
		t.Errorf("expected mismatched reference to be skipped, got %s", m.StudentID)
	}
}
