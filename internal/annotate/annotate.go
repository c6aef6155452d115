// Package annotate writes debug frames with the located face box drawn on them.
package annotate

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// Writer saves annotated frames into a directory.
type Writer struct {
	dir       string
	lineWidth float64
}

// New creates dir if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create debug frame dir: %w", err)
	}
	return &Writer{dir: dir, lineWidth: 3}, nil
}

// Path is where frame index is written.
func (w *Writer) Path(index int) string {
	return filepath.Join(w.dir, fmt.Sprintf("frame_%06d.jpg", index))
}

// Save strokes box onto a copy of img and writes it as JPEG.
func (w *Writer) Save(index int, img image.Image, box types.BoundingBox) error {
	dc := gg.NewContextForImage(img)
	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(w.lineWidth)
	dc.DrawRectangle(float64(box.X), float64(box.Y), float64(box.Width), float64(box.Height))
	dc.Stroke()

	if err := imaging.Save(dc.Image(), w.Path(index), imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("save debug frame %d: %w", index, err)
	}
	return nil
}

// Remove deletes the frame written for index, if any.
func (w *Writer) Remove(index int) error {
	if err := os.Remove(w.Path(index)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove debug frame %d: %w", index, err)
	}
	return nil
}
