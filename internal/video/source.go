// Package video turns a video file into an ordered stream of decoded frames.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
)

var (
	// ErrNotFound means the configured video path does not exist.
	ErrNotFound = errors.New("video not found")
	// ErrOpenFailure means the decoder could not initialise the resource.
	ErrOpenFailure = errors.New("video could not be opened")
	// ErrDecode means the decoder failed after streaming started.
	ErrDecode = errors.New("video decode failed")
)

// Frame is one decoded raster image. Index is 0-based in decode order.
type Frame struct {
	Index int
	Image image.Image
}

// FrameSource yields frames in strict decode order.
// Next returns io.EOF once the stream is exhausted; Close must be called on every exit path.
type FrameSource interface {
	Next() (Frame, error)
	Close() error
}

// FrameCounter is implemented by sources that can estimate their length up front.
// The estimate only drives progress output. It returns 0 when unknown.
type FrameCounter interface {
	FrameCount() int
}

// Opener opens a FrameSource for a path.
type Opener func(ctx context.Context, path string) (FrameSource, error)

// CheckPath classifies a path before any decoder touches it.
func CheckPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrOpenFailure, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrOpenFailure, path)
	}
	return nil
}
