// Package pipeline drives a video through the face locator and persists the FaceTrack.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/andresmejia3/facetrack/internal/track"
	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/andresmejia3/facetrack/internal/video"
	"go.uber.org/zap"
)

// State is the orchestration phase.
type State int

const (
	Init State = iota
	Streaming
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Locator finds at most one face in a frame.
type Locator interface {
	Locate(img image.Image) (*types.BoundingBox, error)
}

// Annotator receives every frame that produced a box. Frames saved by a run
// that fails are removed again.
type Annotator interface {
	Save(index int, img image.Image, box types.BoundingBox) error
	Remove(index int) error
}

// Reporter observes progress. Start receives the estimated total (0 when unknown).
type Reporter interface {
	Start(total int)
	Frame(processed int)
	Finish()
}

// Runner runs Init → Streaming → Done for one video.
type Runner struct {
	Open          video.Opener
	Locator       Locator
	Annotator     Annotator // optional
	Reporter      Reporter  // optional
	Logger        *zap.Logger
	ProgressEvery int

	state     State
	annotated []int
}

// State reports where the last Run stopped.
func (r *Runner) State() State {
	return r.state
}

// Run processes videoPath and writes the track to outputPath.
// Any error is fatal and leaves outputPath untouched.
func (r *Runner) Run(ctx context.Context, videoPath, outputPath string) (types.FaceTrack, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("video", videoPath))

	r.annotated = r.annotated[:0]
	r.transition(log, Init)
	if err := video.CheckPath(videoPath); err != nil {
		r.fail(log)
		return nil, err
	}
	src, err := r.Open(ctx, videoPath)
	if err != nil {
		r.fail(log)
		return nil, err
	}
	defer src.Close()

	log.Info("starting face detection")
	r.transition(log, Streaming)
	faces, err := r.stream(ctx, log, src)
	if err != nil {
		r.fail(log)
		return nil, err
	}

	log.Info("face detection complete, saving data", zap.Int("frames", len(faces)))
	if err := track.Save(outputPath, faces); err != nil {
		r.fail(log)
		return nil, err
	}
	r.transition(log, Done)

	stats := faces.Stats()
	log.Info("face track saved",
		zap.String("output", outputPath),
		zap.Int("frames", stats.Frames),
		zap.Int("frames_with_face", stats.WithFace),
		zap.Float64("coverage", stats.Coverage()),
	)
	return faces, nil
}

func (r *Runner) stream(ctx context.Context, log *zap.Logger, src video.FrameSource) (types.FaceTrack, error) {
	every := r.ProgressEvery
	if every < 1 {
		every = 1
	}

	if r.Reporter != nil {
		total := 0
		if c, ok := src.(video.FrameCounter); ok {
			total = c.FrameCount()
		}
		r.Reporter.Start(total)
		defer r.Reporter.Finish()
	}

	faces := types.FaceTrack{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return faces, nil
		}
		if err != nil {
			return nil, err
		}

		box, err := r.Locator.Locate(frame.Image)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
		}
		if box != nil && r.Annotator != nil {
			if err := r.Annotator.Save(frame.Index, frame.Image, *box); err != nil {
				return nil, err
			}
			r.annotated = append(r.annotated, frame.Index)
		}
		faces = append(faces, box)

		if r.Reporter != nil {
			r.Reporter.Frame(len(faces))
		}
		if len(faces)%every == 0 {
			log.Info("processed frames", zap.Int("frames", len(faces)))
		}
	}
}

// fail moves to Failed and removes the debug frames this run wrote.
func (r *Runner) fail(log *zap.Logger) {
	r.transition(log, Failed)
	for _, index := range r.annotated {
		if err := r.Annotator.Remove(index); err != nil {
			log.Warn("could not remove debug frame", zap.Int("frame", index), zap.Error(err))
		}
	}
	r.annotated = r.annotated[:0]
}

func (r *Runner) transition(log *zap.Logger, s State) {
	log.Debug("pipeline state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
}
