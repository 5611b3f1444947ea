// Package recognize holds the attendance engine: the gallery of enrolled
// reference embeddings, the nearest-reference matcher, the live session state
// machine and the per-frame pipeline tying them together.
package recognize

// Unknown is the identity reported for a face that matched no enrolled student.
const Unknown = "Unknown"

// BoundingBox locates a face in pixel coordinates of the original frame.
type BoundingBox struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// DetectedFace is the per-frame result for one face: where it is and who it
// resolved to. Distance is nil when the gallery was empty or the face could
// not be scored.
type DetectedFace struct {
	Box       BoundingBox `json:"bounding_box"`
	StudentID string      `json:"student_id,omitempty"`
	Name      string      `json:"name"`
	Distance  *float64    `json:"distance"`
}

// GalleryEntry is one reference embedding inside a gallery snapshot.
type GalleryEntry struct {
	StudentID string
	Name      string
	RefIndex  int
	Embedding []float32
}

// Neighbor is one candidate from a top-k gallery lookup.
type Neighbor struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Distance  float64 `json:"distance"`
}
