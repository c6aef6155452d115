package track

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalLayout(t *testing.T) {
	data, err := Marshal(types.FaceTrack{
		{X: 50, Y: 60, Width: 80, Height: 80},
		nil,
	})
	require.NoError(t, err)

	want := `[
  {
    "x": 50,
    "y": 60,
    "width": 80,
    "height": 80
  },
  null
]`
	assert.Equal(t, want, string(data))
}

func TestMarshalEmpty(t *testing.T) {
	for _, tr := range []types.FaceTrack{nil, {}} {
		data, err := Marshal(tr)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	}
}

func TestSaveOverwritesAndLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video-head-data.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new track"), 0644))

	want := types.FaceTrack{nil, {X: 1, Y: 2, Width: 3, Height: 4}, nil}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Only the output file remains, no temp leftovers
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveMissingDirectory(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "nope", "out.json"), types.FaceTrack{})
	assert.Error(t, err)
}

func TestLoadRejectsInvalidBoxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"x":1,"y":1,"width":0,"height":5}]`), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "frame 0")
}
