// Package track reads and writes the FaceTrack JSON file.
package track

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresmejia3/facetrack/internal/types"
)

// Marshal renders t as a 2-space indented JSON array. An empty track is "[]".
func Marshal(t types.FaceTrack) ([]byte, error) {
	if t == nil {
		t = types.FaceTrack{}
	}
	return json.MarshalIndent(t, "", "  ")
}

// Save writes t to path, replacing any existing file. The data goes to a
// temporary file in the same directory first so readers never see a partial track.
func Save(path string, t types.FaceTrack) error {
	data, err := Marshal(t)
	if err != nil {
		return fmt.Errorf("encode face track: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".facetrack-*.json")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write face track: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod face track: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close face track: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Load reads a FaceTrack written by Save.
func Load(path string) (types.FaceTrack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t types.FaceTrack
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode face track %s: %w", path, err)
	}
	if t == nil {
		t = types.FaceTrack{}
	}
	for i, b := range t {
		if b != nil && !b.Valid() {
			return nil, fmt.Errorf("decode face track %s: frame %d has invalid box %+v", path, i, *b)
		}
	}
	return t, nil
}
