package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"os/exec"
	"strings"

	"github.com/andresmejia3/facetrack/internal/utils"
)

const megabyte = 1024 * 1024

// StreamSource decodes a byte stream of concatenated JPEG frames,
// typically the stdout of `ffmpeg -f image2pipe -vcodec mjpeg`.
type StreamSource struct {
	scanner *bufio.Scanner
	cmd     *utils.SafeCommand
	total   int
	next    int
	done    bool
	waited  bool
}

// NewStreamSource reads JPEG frames from r until EOF.
func NewStreamSource(r io.Reader) *StreamSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)
	return &StreamSource{scanner: scanner}
}

// OpenFFmpeg starts an FFmpeg decoder for path and streams its frames.
func OpenFFmpeg(ctx context.Context, path string) (*StreamSource, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailure, err)
	}

	cmd := utils.NewFFmpegCmd(ctx, path)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stdout pipe: %v", ErrOpenFailure, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrOpenFailure, err)
	}

	s := NewStreamSource(out)
	s.cmd = cmd
	s.total = utils.GetTotalFrames(ctx, path)
	return s, nil
}

// Next returns the next frame, or io.EOF when the stream is exhausted.
func (s *StreamSource) Next() (Frame, error) {
	if s.done {
		return Frame{}, io.EOF
	}

	if !s.scanner.Scan() {
		s.done = true
		if err := s.scanner.Err(); err != nil {
			return Frame{}, fmt.Errorf("%w: frame %d: %v", ErrDecode, s.next, err)
		}
		if err := s.wait(); err != nil {
			// FFmpeg that never produced a frame failed to open the input
			if s.next == 0 {
				return Frame{}, fmt.Errorf("%w: %v", ErrOpenFailure, err)
			}
			return Frame{}, fmt.Errorf("%w: after frame %d: %v", ErrDecode, s.next-1, err)
		}
		return Frame{}, io.EOF
	}

	img, err := jpeg.Decode(bytes.NewReader(s.scanner.Bytes()))
	if err != nil {
		s.done = true
		return Frame{}, fmt.Errorf("%w: frame %d: %v", ErrDecode, s.next, err)
	}

	f := Frame{Index: s.next, Image: img}
	s.next++
	return f, nil
}

// FrameCount is the ffprobe estimate, 0 when unknown.
func (s *StreamSource) FrameCount() int {
	return s.total
}

// Close releases the decoder. A still-running FFmpeg is killed.
func (s *StreamSource) Close() error {
	s.done = true
	if s.cmd == nil || s.waited {
		return nil
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.waited = true
	_ = s.cmd.Wait()
	return nil
}

func (s *StreamSource) wait() error {
	if s.cmd == nil || s.waited {
		return nil
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		if logs := strings.TrimSpace(s.cmd.Stderr.String()); logs != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, logs)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
