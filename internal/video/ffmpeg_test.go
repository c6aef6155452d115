package video

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFrames(t *testing.T, n int, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		img := imaging.New(w, h, color.NRGBA{R: uint8(40 * i), G: 90, B: 200, A: 255})
		require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	}
	return buf.Bytes()
}

func TestStreamSourceYieldsFramesInOrder(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(encodeFrames(t, 3, 64, 48)))
	defer src.Close()

	for i := 0; i < 3; i++ {
		f, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, i, f.Index)
		assert.Equal(t, image.Rect(0, 0, 64, 48), f.Image.Bounds())
	}

	_, err := src.Next()
	assert.ErrorIs(t, err, io.EOF)

	// Exhausted sources stay exhausted
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamSourceEmpty(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(nil))
	defer src.Close()

	_, err := src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, src.FrameCount())
}

func TestStreamSourceCorruptFrame(t *testing.T) {
	stream := encodeFrames(t, 1, 32, 32)
	stream = append(stream, 0xFF, 0xD8, 0x00, 0x01, 0x02, 0xFF, 0xD9)

	src := NewStreamSource(bytes.NewReader(stream))
	defer src.Close()

	_, err := src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	assert.ErrorIs(t, err, ErrDecode)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCheckPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(file, []byte("not really a video"), 0644))

	assert.NoError(t, CheckPath(file))
	assert.ErrorIs(t, CheckPath(filepath.Join(dir, "missing.mp4")), ErrNotFound)
	assert.ErrorIs(t, CheckPath(dir), ErrOpenFailure)
}

func TestOpenFFmpegMissingFile(t *testing.T) {
	_, err := OpenFFmpeg(t.Context(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, ErrNotFound)
}
