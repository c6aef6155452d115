package types

import "fmt"

// BoundingBox is a face region in pixel coordinates of the source frame (top-left origin).
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns width * height.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Valid reports whether the box is non-negative with a positive extent.
func (b BoundingBox) Valid() bool {
	return b.X >= 0 && b.Y >= 0 && b.Width > 0 && b.Height > 0
}

// Candidate is a face region proposed by a detector for one frame.
// Confidence is 0 when the detector does not report one.
type Candidate struct {
	Box        BoundingBox
	Confidence float64
}

// FaceTrack holds one entry per decoded frame, indexed by frame number.
// A nil entry means no face was found in that frame and serializes as JSON null.
type FaceTrack []*BoundingBox

// TrackStats summarises a FaceTrack.
type TrackStats struct {
	Frames   int
	WithFace int
}

// Stats counts frames and frames with a located face.
func (t FaceTrack) Stats() TrackStats {
	s := TrackStats{Frames: len(t)}
	for _, b := range t {
		if b != nil {
			s.WithFace++
		}
	}
	return s
}

// Coverage is the fraction of frames that have a face, 0 for an empty track.
func (s TrackStats) Coverage() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.WithFace) / float64(s.Frames)
}

// SelectionPolicy decides which candidate represents a frame.
type SelectionPolicy string

const (
	// FirstFound takes candidate 0 in whatever order the detector emits.
	FirstFound SelectionPolicy = "first"
	// LargestArea takes the candidate with the biggest box, earliest on ties.
	LargestArea SelectionPolicy = "largest"
	// HighestConfidence takes the most confident candidate, earliest on ties.
	HighestConfidence SelectionPolicy = "confidence"
)

// ParseSelectionPolicy validates a policy name.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch p := SelectionPolicy(s); p {
	case FirstFound, LargestArea, HighestConfidence:
		return p, nil
	}
	return "", fmt.Errorf("unknown selection policy %q (want first, largest or confidence)", s)
}
