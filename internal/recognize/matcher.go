package recognize

import "math"

// MatchTolerance is the maximum Euclidean distance at which a query embedding
// is accepted as a gallery match. The boundary is inclusive: a distance
// exactly equal to the tolerance matches. 0.55 comes from calibrating 128-d
// dlib ResNet encodings on classroom enrollment photos (the upstream library
// suggests 0.6; tightening to 0.55 roughly halved false accepts without
// measurable extra misses). Other models get their tolerance from the
// embedded calibration table in internal/config.
const MatchTolerance = 0.55

// Match is the identity decision for one query embedding.
type Match struct {
	StudentID string
	Name      string
	Distance  *float64
}

// EuclideanDistance computes the Euclidean distance between two vectors.
// Returns +Inf for vectors of different or zero length.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// MatchAgainst resolves a query embedding against a gallery snapshot with the
// given tolerance. It scans every reference exactly; the minimum distance
// wins. Ties resolve to the first entry in snapshot order, which is sorted by
// (student ID, reference index), so the result is deterministic for identical
// inputs. An empty gallery yields Unknown with a nil distance; a best
// distance above the tolerance yields Unknown with that distance reported.
func MatchAgainst(query []float32, snap *Snapshot, tolerance float64) Match {
	best := -1
	bestDist := math.Inf(1)
	for i := range snap.entries {
		d := EuclideanDistance(query, snap.entries[i].Embedding)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 || math.IsInf(bestDist, 1) {
		return Match{StudentID: Unknown, Name: Unknown}
	}

	dist := bestDist
	if bestDist > tolerance {
		return Match{StudentID: Unknown, Name: Unknown, Distance: &dist}
	}

	entry := snap.entries[best]
	return Match{StudentID: entry.StudentID, Name: entry.Name, Distance: &dist}
}

// MatchEmbedding resolves a query embedding with the default tolerance.
func MatchEmbedding(query []float32, snap *Snapshot) Match {
	return MatchAgainst(query, snap, MatchTolerance)
}
