// Package detect locates a single face per frame using a pluggable detector.
package detect

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/andresmejia3/facetrack/internal/types"
)

// ErrDetector wraps every failure raised by a detector backend.
var ErrDetector = errors.New("face detector failed")

// Params are the multi-scale detector tunables.
type Params struct {
	ScaleFactor  float64 // step between successive scales, > 1
	MinNeighbors int     // neighbouring hits needed to keep a candidate
	MinSize      int     // smallest box side in pixels
}

// Detector proposes candidate face boxes for an intensity image.
// Candidate order is backend-defined.
type Detector interface {
	Detect(gray *image.Gray) ([]types.Candidate, error)
}

// Locator reduces a frame to at most one face box.
type Locator struct {
	detector Detector
	policy   types.SelectionPolicy
}

// NewLocator builds a Locator. An empty policy means FirstFound.
func NewLocator(d Detector, policy types.SelectionPolicy) *Locator {
	if policy == "" {
		policy = types.FirstFound
	}
	return &Locator{detector: d, policy: policy}
}

// Locate returns the selected face box for img, or nil when no face was found.
func (l *Locator) Locate(img image.Image) (*types.BoundingBox, error) {
	candidates, err := l.detector.Detect(Grayscale(img))
	if err != nil {
		if errors.Is(err, ErrDetector) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDetector, err)
	}

	c, ok := Select(candidates, l.policy)
	if !ok {
		return nil, nil
	}
	box := c.Box
	return &box, nil
}

// Select applies policy to candidates. Ties resolve to the earliest candidate.
func Select(candidates []types.Candidate, policy types.SelectionPolicy) (types.Candidate, bool) {
	if len(candidates) == 0 {
		return types.Candidate{}, false
	}

	best := 0
	switch policy {
	case types.LargestArea:
		for i := 1; i < len(candidates); i++ {
			if candidates[i].Box.Area() > candidates[best].Box.Area() {
				best = i
			}
		}
	case types.HighestConfidence:
		for i := 1; i < len(candidates); i++ {
			if candidates[i].Confidence > candidates[best].Confidence {
				best = i
			}
		}
	}
	return candidates[best], true
}

// Grayscale projects img onto a single luminance channel with a zero origin,
// so detector coordinates line up with frame pixels.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
