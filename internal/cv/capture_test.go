package cv

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/facetrack/internal/config"
	"github.com/andresmejia3/facetrack/internal/detect"
	"github.com/andresmejia3/facetrack/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var testParams = detect.Params{ScaleFactor: 1.1, MinNeighbors: 5, MinSize: 30}

// writeClip encodes n solid frames to an MJPEG AVI and returns its path.
func writeClip(t *testing.T, n, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")

	vw, err := gocv.VideoWriterFile(path, "MJPG", 10, width, height, true)
	if err != nil || !vw.IsOpened() {
		t.Skipf("opencv cannot write MJPG video: %v", err)
	}
	for i := 0; i < n; i++ {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(20*i), 80, 160, 0), height, width, gocv.MatTypeCV8UC3)
		require.NoError(t, vw.Write(mat))
		mat.Close()
	}
	require.NoError(t, vw.Close())
	return path
}

func cascadePath(t *testing.T) string {
	t.Helper()
	path := config.ForDir(t.TempDir()).Detector.CascadePath
	if _, err := os.Stat(path); err != nil {
		t.Skipf("haar cascade not installed: %v", err)
	}
	return path
}

func TestOpenCaptureErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.mp4")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a video container"), 0644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "missing", path: filepath.Join(dir, "missing.mp4"), want: video.ErrNotFound},
		{name: "directory", path: dir, want: video.ErrOpenFailure},
		{name: "garbage", path: garbage, want: video.ErrOpenFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenCapture(t.Context(), tt.path)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, src)
		})
	}
}

func TestCaptureReadsFramesInOrder(t *testing.T) {
	const frames = 5
	path := writeClip(t, frames, 64, 48)

	src, err := OpenCapture(t.Context(), path)
	require.NoError(t, err)

	for i := 0; i < frames; i++ {
		f, err := src.Next()
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, i, f.Index)
		assert.Equal(t, image.Rect(0, 0, 64, 48), f.Image.Bounds())
	}

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)

	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())
}

func TestNewCascadeErrors(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.xml")
	require.NoError(t, os.WriteFile(invalid, []byte("<?xml version=\"1.0\"?>\n<opencv_storage>\n</opencv_storage>\n"), 0644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing", path: filepath.Join(dir, "missing.xml")},
		{name: "not a cascade", path: invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCascade(tt.path, testParams)
			assert.ErrorIs(t, err, detect.ErrDetector)
			assert.Nil(t, c)
		})
	}
}

func TestCascadeBlankFrame(t *testing.T) {
	c, err := NewCascade(cascadePath(t), testParams)
	require.NoError(t, err)
	defer c.Close()

	candidates, err := c.Detect(image.NewGray(image.Rect(0, 0, 320, 240)))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
