package cv

import (
	"fmt"
	"image"
	"os"

	"github.com/andresmejia3/facetrack/internal/detect"
	"github.com/andresmejia3/facetrack/internal/types"
	"gocv.io/x/gocv"
)

// Cascade is a Haar cascade face detector.
type Cascade struct {
	classifier gocv.CascadeClassifier
	params     detect.Params
}

// NewCascade loads the cascade XML at path.
func NewCascade(path string, params detect.Params) (*Cascade, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: cascade file: %v", detect.ErrDetector, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: could not load cascade %s", detect.ErrDetector, path)
	}
	return &Cascade{classifier: classifier, params: params}, nil
}

// Detect runs detectMultiScale on gray. Candidates keep OpenCV's order.
func (c *Cascade) Detect(gray *image.Gray) ([]types.Candidate, error) {
	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrDetector, err)
	}
	defer mat.Close()

	minSize := image.Pt(c.params.MinSize, c.params.MinSize)
	rects := c.classifier.DetectMultiScaleWithParams(mat, c.params.ScaleFactor, c.params.MinNeighbors, 0, minSize, image.Point{})

	candidates := make([]types.Candidate, 0, len(rects))
	for _, r := range rects {
		candidates = append(candidates, types.Candidate{
			Box: types.BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()},
		})
	}
	return candidates, nil
}

// Close frees the classifier.
func (c *Cascade) Close() error {
	return c.classifier.Close()
}
