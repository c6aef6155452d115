// Package cv binds the frame source and face detector to OpenCV through gocv.
package cv

import (
	"context"
	"fmt"
	"io"

	"github.com/andresmejia3/facetrack/internal/video"
	"gocv.io/x/gocv"
)

// Capture reads frames through cv::VideoCapture.
type Capture struct {
	vc    *gocv.VideoCapture
	mat   gocv.Mat
	next  int
	total int
	done  bool
}

// OpenCapture opens path with OpenCV. It satisfies video.Opener.
func OpenCapture(_ context.Context, path string) (video.FrameSource, error) {
	if err := video.CheckPath(path); err != nil {
		return nil, err
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrOpenFailure, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: opencv could not open %s", video.ErrOpenFailure, path)
	}

	return &Capture{
		vc:    vc,
		mat:   gocv.NewMat(),
		total: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

// Next decodes the next frame. OpenCV reports end of stream and mid-stream
// decode failures the same way, so both end the stream with io.EOF.
func (c *Capture) Next() (video.Frame, error) {
	if c.done {
		return video.Frame{}, io.EOF
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		c.done = true
		return video.Frame{}, io.EOF
	}

	img, err := c.mat.ToImage()
	if err != nil {
		c.done = true
		return video.Frame{}, fmt.Errorf("%w: frame %d: %v", video.ErrDecode, c.next, err)
	}

	f := video.Frame{Index: c.next, Image: img}
	c.next++
	return f, nil
}

// FrameCount is the container's frame count estimate, 0 when unknown.
func (c *Capture) FrameCount() int {
	if c.total < 0 {
		return 0
	}
	return c.total
}

// Close releases the capture handle and the scratch Mat.
func (c *Capture) Close() error {
	c.done = true
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.mat.Close()
	c.vc = nil
	return err
}
