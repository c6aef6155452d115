// Package worker runs an external face detector process and speaks a
// length-prefixed binary protocol with it.
//
// Request (stdin):  [u32 len][PNG-encoded grayscale frame]
// Response (FD 3):  [u32 len][payload]
//
// Payload: 0x00 [u32 n] n × ([4]i32 x,y,w,h  f32 confidence)
//
//	0x01 [u32 len][message]
package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strconv"

	"github.com/andresmejia3/facetrack/internal/detect"
	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/andresmejia3/facetrack/internal/utils"
)

const (
	statusOK    = 0
	statusError = 1

	// candidateSize is [4]int32 + float32 on the wire.
	candidateSize = 20
	// maxResponse bounds a single reply from the worker.
	maxResponse = 16 << 20
)

// ProcessWorker is a detect.Detector backed by a child process.
type ProcessWorker struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
	enc      png.Encoder
	buf      bytes.Buffer
}

// NewProcessWorker starts command with the detector tunables appended as flags.
func NewProcessWorker(ctx context.Context, command []string, params detect.Params) (*ProcessWorker, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty worker command", detect.ErrDetector)
	}

	args := append(append([]string{}, command[1:]...),
		"--scale-factor", strconv.FormatFloat(params.ScaleFactor, 'f', -1, 64),
		"--min-neighbors", strconv.Itoa(params.MinNeighbors),
		"--min-size", strconv.Itoa(params.MinSize),
	)
	proc := utils.NewSafeCommand(ctx, command[0], args...)

	// Side-channel pipe (FD 3) keeps results apart from anything the child prints
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pipe: %v", detect.ErrDetector, err)
	}
	proc.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := proc.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("%w: failed to create stdin pipe: %v", detect.ErrDetector, err)
	}

	if err := proc.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("%w: worker failed to start: %v", detect.ErrDetector, err)
	}

	// Only the child holds the write end now
	w.Close()

	return &ProcessWorker{
		Cmd:      proc,
		Stdin:    stdin,
		DataPipe: r,
		enc:      png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

// Detect sends one frame and decodes the candidate list.
func (w *ProcessWorker) Detect(gray *image.Gray) ([]types.Candidate, error) {
	w.buf.Reset()
	if err := w.enc.Encode(&w.buf, gray); err != nil {
		return nil, fmt.Errorf("%w: encode frame: %v", detect.ErrDetector, err)
	}

	resp, err := w.communicate(w.buf.Bytes())
	if err != nil {
		return nil, w.withLogs(err)
	}
	return parseResponse(resp)
}

func (w *ProcessWorker) communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("response of %d bytes exceeds %d", respLen, maxResponse)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

func parseResponse(resp []byte) ([]types.Candidate, error) {
	r := bufio.NewReader(bytes.NewReader(resp))

	status, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: empty response", detect.ErrDetector)
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: truncated response: %v", detect.ErrDetector, err)
	}

	remaining := uint64(len(resp) - 5)
	switch status {
	case statusOK:
		if uint64(n)*candidateSize > remaining {
			return nil, fmt.Errorf("%w: response claims %d candidates but carries %d bytes", detect.ErrDetector, n, remaining)
		}
	case statusError:
		if uint64(n) > remaining {
			return nil, fmt.Errorf("%w: error message claims %d bytes but carries %d", detect.ErrDetector, n, remaining)
		}
		msg := make([]byte, n)
		if _, err := io.ReadFull(r, msg); err != nil {
			return nil, fmt.Errorf("%w: truncated error message: %v", detect.ErrDetector, err)
		}
		return nil, fmt.Errorf("%w: detector worker error: %s", detect.ErrDetector, msg)
	default:
		return nil, fmt.Errorf("%w: unknown status byte %d", detect.ErrDetector, status)
	}

	candidates := make([]types.Candidate, 0, n)
	for i := uint32(0); i < n; i++ {
		var rec struct {
			Box        [4]int32
			Confidence float32
		}
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: truncated candidate %d: %v", detect.ErrDetector, i, err)
		}
		candidates = append(candidates, types.Candidate{
			Box: types.BoundingBox{
				X:      int(rec.Box[0]),
				Y:      int(rec.Box[1]),
				Width:  int(rec.Box[2]),
				Height: int(rec.Box[3]),
			},
			Confidence: float64(rec.Confidence),
		})
	}
	return candidates, nil
}

func (w *ProcessWorker) withLogs(err error) error {
	if w.Cmd != nil && w.Cmd.Stderr.Len() > 0 {
		return fmt.Errorf("%w: %v: %s", detect.ErrDetector, err, bytes.TrimSpace(w.Cmd.Stderr.Bytes()))
	}
	return fmt.Errorf("%w: %v", detect.ErrDetector, err)
}

// Close shuts the worker down and waits for it to exit.
func (w *ProcessWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		return w.Cmd.Wait()
	}
	return nil
}
