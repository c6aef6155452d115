package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andresmejia3/facetrack/internal/store"
	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVideoID(t *testing.T) {
	tracks := []store.TrackSummary{
		{VideoID: "ab12cd34ef56"},
		{VideoID: "ab12ff000000"},
		{VideoID: "9f8e7d6c5b4a"},
	}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr string
	}{
		{name: "full id", prefix: "9f8e7d6c5b4a", want: "9f8e7d6c5b4a"},
		{name: "unique prefix", prefix: "ab12c", want: "ab12cd34ef56"},
		{name: "ambiguous", prefix: "ab12", wantErr: "matches 2 videos"},
		{name: "unknown", prefix: "zz", wantErr: "no stored video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveVideoID(tracks, tt.prefix)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintFrames(t *testing.T) {
	var out bytes.Buffer
	printFrames(&out, types.FaceTrack{
		{X: 50, Y: 60, Width: 80, Height: 81},
		nil,
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"0", "50", "60", "80", "81"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"1", "-", "-", "-", "-"}, strings.Fields(lines[3]))
}
