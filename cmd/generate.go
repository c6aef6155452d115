package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/facetrack/internal/annotate"
	"github.com/andresmejia3/facetrack/internal/config"
	"github.com/andresmejia3/facetrack/internal/cv"
	"github.com/andresmejia3/facetrack/internal/detect"
	"github.com/andresmejia3/facetrack/internal/pipeline"
	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/andresmejia3/facetrack/internal/video"
	"github.com/andresmejia3/facetrack/internal/worker"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const progressThrottle = 65 * time.Millisecond

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Detect faces frame by frame and write the face track JSON",
	Long: `Reads thoppi.mp4 next to the executable and writes video-head-data.json beside it.
Detector tunables are fixed (scaleFactor=1.1, minNeighbors=5, minSize=30x30).
Annotated frames are written when a debug_frames directory exists next to the executable.
Detection runs in detector/worker.py instead of the Haar cascade when that script exists,
and a "selection" file may name the policy (first, largest or confidence).
Videos OpenCV cannot open are retried with ffmpeg.`,
	Args: cobra.NoArgs,
	RunE: runGenerateCmd,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Default()
	if err != nil {
		return report("Failed to resolve configuration", err)
	}
	return runGenerate(cmd.Context(), cfg, log)
}

// runGenerate validates cfg, wires the decoder, detector and reporters, and runs the pipeline.
func runGenerate(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return report("Configuration Error", err)
	}

	// A missing video is reported before the detector is loaded
	if err := video.CheckPath(cfg.VideoPath); err != nil {
		return report(describeFailure(err), err)
	}

	locator, closeDetector, err := newLocator(ctx, cfg)
	if err != nil {
		return report(describeFailure(err), err)
	}
	defer closeDetector()

	runner := &pipeline.Runner{
		Open:          openerFor(cfg.Decoder, log),
		Locator:       locator,
		Reporter:      &barReporter{},
		Logger:        log,
		ProgressEvery: cfg.ProgressEvery,
	}

	if cfg.DebugDir != "" {
		w, err := annotate.New(cfg.DebugDir)
		if err != nil {
			return report("Failed to prepare debug frames", err)
		}
		runner.Annotator = w
		log.Info("writing debug frames", zap.String("dir", cfg.DebugDir))
	}
	if cfg.Detector.Backend == config.BackendWorker {
		log.Info("using detector worker", zap.Strings("command", cfg.Detector.WorkerCommand))
	}
	if cfg.Selection != types.FirstFound {
		log.Info("selection policy", zap.String("policy", string(cfg.Selection)))
	}

	if _, err := runner.Run(ctx, cfg.VideoPath, cfg.OutputPath); err != nil {
		return report(describeFailure(err), err)
	}
	return nil
}

func newLocator(ctx context.Context, cfg config.Config) (*detect.Locator, func(), error) {
	switch cfg.Detector.Backend {
	case config.BackendWorker:
		w, err := worker.NewProcessWorker(ctx, cfg.Detector.WorkerCommand, cfg.Detector.Params)
		if err != nil {
			return nil, nil, err
		}
		return detect.NewLocator(w, cfg.Selection), func() { _ = w.Close() }, nil
	default:
		c, err := cv.NewCascade(cfg.Detector.CascadePath, cfg.Detector.Params)
		if err != nil {
			return nil, nil, err
		}
		return detect.NewLocator(c, cfg.Selection), func() { _ = c.Close() }, nil
	}
}

func openerFor(decoder string, log *zap.Logger) video.Opener {
	if decoder == config.DecoderFFmpeg {
		return openFFmpeg
	}
	return withFallback(cv.OpenCapture, openFFmpeg, log)
}

func openFFmpeg(ctx context.Context, path string) (video.FrameSource, error) {
	s, err := video.OpenFFmpeg(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// withFallback retries with fallback when primary cannot initialise a decoder.
// Any other failure, such as a missing file, is returned as is.
func withFallback(primary, fallback video.Opener, log *zap.Logger) video.Opener {
	return func(ctx context.Context, path string) (video.FrameSource, error) {
		src, err := primary(ctx, path)
		if err == nil || !errors.Is(err, video.ErrOpenFailure) {
			return src, err
		}

		log.Warn("opencv could not open the video, trying ffmpeg", zap.Error(err))
		src, ffErr := fallback(ctx, path)
		if ffErr != nil {
			return nil, fmt.Errorf("%w (ffmpeg: %v)", err, ffErr)
		}
		return src, nil
	}
}

// describeFailure turns a pipeline error into the headline of the error box.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, video.ErrNotFound):
		return "Video file not found"
	case errors.Is(err, video.ErrOpenFailure):
		return "Could not open video file"
	case errors.Is(err, video.ErrDecode):
		return "Video decoding failed"
	case errors.Is(err, detect.ErrDetector):
		return "Face detection failed"
	case errors.Is(err, context.Canceled):
		return "Interrupted, no output written"
	default:
		return "Face track generation failed"
	}
}

// barReporter draws per-frame progress on stderr.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func (b *barReporter) Start(total int) {
	if total <= 0 {
		total = -1 // spinner when the length is unknown
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🔍 Detecting faces"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(progressThrottle),
	)
}

func (b *barReporter) Frame(processed int) {
	if b.bar != nil {
		_ = b.bar.Set(processed)
	}
}

func (b *barReporter) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}
