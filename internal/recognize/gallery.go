package recognize

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/rollcall/internal/database"
)

// HNSW graph parameters for face embedding search.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16
)

// Snapshot is one immutable, fully-built gallery generation. Matches hold a
// snapshot for the duration of a frame, so a concurrent rebuild can never be
// observed half-applied.
type Snapshot struct {
	entries  []GalleryEntry
	graph    *hnsw.Graph[int]
	graphDim int            // dimensionality the graph was built over
	refs     map[string]int // student ID -> reference count
}

// Gallery is the in-memory index of enrolled reference embeddings. Rebuilds
// construct a complete new snapshot and publish it with a pointer swap.
type Gallery struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewGallery creates an empty gallery.
func NewGallery() *Gallery {
	return &Gallery{snap: buildSnapshot(nil)}
}

// buildSnapshot flattens roster records into ordered gallery entries and an
// HNSW graph. Entries are sorted by (student ID, original record order) so
// the matcher's tie-break order holds regardless of how the caller ordered
// the records. The graph requires a single vector dimensionality, so it is
// built over the roster's dominant dimension only; a roster mixing embedding
// models keeps every entry in the flat scan list.
func buildSnapshot(students []database.StudentRecord) *Snapshot {
	snap := &Snapshot{
		refs: make(map[string]int, len(students)),
	}

	for i := range students {
		rec := &students[i]
		if len(rec.Embedding) == 0 {
			continue
		}
		snap.entries = append(snap.entries, GalleryEntry{
			StudentID: rec.StudentID,
			Name:      rec.Name,
			Embedding: rec.Embedding,
		})
	}
	sort.SliceStable(snap.entries, func(i, j int) bool {
		return snap.entries[i].StudentID < snap.entries[j].StudentID
	})
	for i := range snap.entries {
		e := &snap.entries[i]
		e.RefIndex = snap.refs[e.StudentID]
		snap.refs[e.StudentID]++
	}

	if len(snap.entries) == 0 {
		return snap
	}

	counts := make(map[int]int)
	for i := range snap.entries {
		counts[len(snap.entries[i].Embedding)]++
	}
	for i := range snap.entries {
		if d := len(snap.entries[i].Embedding); counts[d] > counts[snap.graphDim] {
			snap.graphDim = d
		}
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance

	for i := range snap.entries {
		if len(snap.entries[i].Embedding) == snap.graphDim {
			g.Add(hnsw.MakeNode(i, snap.entries[i].Embedding))
		}
	}
	snap.graph = g

	return snap
}

// Rebuild replaces the entire index atomically. The new snapshot is fully
// built before being published; readers either see the old generation or the
// new one, never a mix.
func (g *Gallery) Rebuild(students []database.StudentRecord) {
	snap := buildSnapshot(students)

	g.mu.Lock()
	g.snap = snap
	g.mu.Unlock()
}

// Snapshot returns the current gallery generation.
func (g *Gallery) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

// Entries flattens the current generation into (student, embedding) pairs.
func (g *Gallery) Entries() []GalleryEntry {
	return g.Snapshot().entries
}

// Len returns the number of reference embeddings in the current generation.
func (g *Gallery) Len() int {
	return len(g.Snapshot().entries)
}

// References returns how many reference embeddings a student has.
func (g *Gallery) References(studentID string) int {
	return g.Snapshot().refs[studentID]
}

// Len returns the number of reference embeddings in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns the snapshot's ordered reference embeddings.
func (s *Snapshot) Entries() []GalleryEntry {
	return s.entries
}

// Nearest finds the k nearest reference embeddings to the query using the
// HNSW graph, recomputing exact Euclidean distances for the returned
// candidates. Used for top-k diagnostics, not for attendance matching. A
// query whose dimensionality differs from the indexed one has no meaningful
// neighbors and returns nil.
func (s *Snapshot) Nearest(query []float32, k int) []Neighbor {
	if s.graph == nil || k <= 0 || len(query) != s.graphDim {
		return nil
	}

	nodes := s.graph.Search(query, k)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		entry := s.entries[n.Key]
		neighbors = append(neighbors, Neighbor{
			StudentID: entry.StudentID,
			Name:      entry.Name,
			Distance:  EuclideanDistance(query, n.Value),
		})
	}
	return neighbors
}
