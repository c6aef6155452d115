package detect

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	candidates []types.Candidate
	err        error
	seen       *image.Gray
}

func (f *fakeDetector) Detect(gray *image.Gray) ([]types.Candidate, error) {
	f.seen = gray
	return f.candidates, f.err
}

func box(x, y, w, h int) types.BoundingBox {
	return types.BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func TestLocateFirstFound(t *testing.T) {
	d := &fakeDetector{candidates: []types.Candidate{
		{Box: box(50, 60, 80, 80), Confidence: 0.2},
		{Box: box(10, 10, 200, 200), Confidence: 0.9},
	}}
	l := NewLocator(d, "")

	got, err := l.Locate(imaging.New(320, 240, color.White))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, box(50, 60, 80, 80), *got)

	require.NotNil(t, d.seen)
	assert.Equal(t, image.Rect(0, 0, 320, 240), d.seen.Bounds())
}

func TestLocateNoFace(t *testing.T) {
	l := NewLocator(&fakeDetector{}, types.FirstFound)

	got, err := l.Locate(imaging.New(64, 64, color.Black))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocateWrapsDetectorErrors(t *testing.T) {
	l := NewLocator(&fakeDetector{err: errors.New("cascade exploded")}, types.FirstFound)

	_, err := l.Locate(imaging.New(8, 8, color.Black))
	assert.ErrorIs(t, err, ErrDetector)
	assert.Contains(t, err.Error(), "cascade exploded")
}

func TestSelect(t *testing.T) {
	candidates := []types.Candidate{
		{Box: box(0, 0, 40, 40), Confidence: 0.5},
		{Box: box(5, 5, 90, 90), Confidence: 0.7},
		{Box: box(9, 9, 90, 90), Confidence: 0.7},
		{Box: box(1, 1, 30, 30), Confidence: 0.1},
	}

	tests := []struct {
		name   string
		policy types.SelectionPolicy
		want   types.BoundingBox
	}{
		{"first found ignores size and confidence", types.FirstFound, box(0, 0, 40, 40)},
		{"largest area takes earliest on ties", types.LargestArea, box(5, 5, 90, 90)},
		{"highest confidence takes earliest on ties", types.HighestConfidence, box(5, 5, 90, 90)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(candidates, tt.policy)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Box)
		})
	}

	_, ok := Select(nil, types.LargestArea)
	assert.False(t, ok)
}

func TestGrayscale(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 20, 14, 22))
	for y := 20; y < 22; y++ {
		for x := 10; x < 14; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	gray := Grayscale(img)
	assert.Equal(t, image.Rect(0, 0, 4, 2), gray.Bounds())
	// ITU-R 601 luma of pure red
	assert.Equal(t, uint8(76), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(76), gray.GrayAt(3, 1).Y)

	already := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.Same(t, already, Grayscale(already))
}
