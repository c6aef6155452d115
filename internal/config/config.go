// Package config holds the pipeline configuration and the database settings
// used by the storage commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/facetrack/internal/detect"
	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/caarlos0/env/v11"
)

const (
	// DefaultVideoName is looked up next to the executable.
	DefaultVideoName = "thoppi.mp4"
	// DefaultOutputName is written next to the executable.
	DefaultOutputName = "video-head-data.json"
	// DefaultCascadeName is the OpenCV frontal face Haar cascade.
	DefaultCascadeName = "haarcascade_frontalface_default.xml"
	// DefaultProgressEvery is the frame interval between progress notices.
	DefaultProgressEvery = 100
	// DebugDirName enables annotated debug frames when it exists next to the executable.
	DebugDirName = "debug_frames"
	// SelectionFileName holds a selection policy name when it exists next to the executable.
	SelectionFileName = "selection"
)

// WorkerScript switches detection to the external worker when it exists under the executable's directory.
var WorkerScript = filepath.Join("detector", "worker.py")

// Decoder backends.
const (
	DecoderOpenCV = "opencv"
	DecoderFFmpeg = "ffmpeg"
)

// Detector backends.
const (
	BackendCascade = "cascade"
	BackendWorker  = "worker"
)

// cascadeDirs are searched when the cascade is not shipped next to the executable.
var cascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// Detector configures the face detector backend.
type Detector struct {
	Backend       string
	CascadePath   string
	WorkerCommand []string
	detect.Params
}

// Config drives one generate run.
type Config struct {
	VideoPath     string
	OutputPath    string
	Decoder       string
	Detector      Detector
	Selection     types.SelectionPolicy
	ProgressEvery int
	// DebugDir receives annotated frames when non-empty.
	DebugDir string
}

// Default resolves the standard layout against the executable's directory:
// the video and cascade sit next to the binary and the track is written beside them.
// Detector tunables are fixed at scaleFactor=1.1, minNeighbors=5, minSize=30x30.
// Optional files next to the binary switch features on: debug_frames/ for
// annotated frames, detector/worker.py for the worker backend and a
// "selection" file naming the selection policy.
func Default() (Config, error) {
	base, err := ExecutableDir()
	if err != nil {
		return Config{}, err
	}
	return ForDir(base), nil
}

// ForDir is Default with an explicit base directory.
func ForDir(base string) Config {
	cfg := Config{
		VideoPath:  filepath.Join(base, DefaultVideoName),
		OutputPath: filepath.Join(base, DefaultOutputName),
		Decoder:    DecoderOpenCV,
		Detector: Detector{
			Backend:       BackendCascade,
			CascadePath:   findCascade(base),
			WorkerCommand: []string{"python3", "-u", filepath.Join(base, WorkerScript)},
			Params: detect.Params{
				ScaleFactor:  1.1,
				MinNeighbors: 5,
				MinSize:      30,
			},
		},
		Selection:     types.FirstFound,
		ProgressEvery: DefaultProgressEvery,
	}
	if info, err := os.Stat(filepath.Join(base, DebugDirName)); err == nil && info.IsDir() {
		cfg.DebugDir = filepath.Join(base, DebugDirName)
	}
	if info, err := os.Stat(filepath.Join(base, WorkerScript)); err == nil && !info.IsDir() {
		cfg.Detector.Backend = BackendWorker
	}
	// An unknown policy name is left for Validate to report
	if data, err := os.ReadFile(filepath.Join(base, SelectionFileName)); err == nil {
		cfg.Selection = types.SelectionPolicy(strings.TrimSpace(string(data)))
	}
	return cfg
}

// Validate checks the configuration before any heavy work starts and fills
// in defaults for zero values.
func (c *Config) Validate() error {
	if c.VideoPath == "" {
		return fmt.Errorf("video path is empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is empty")
	}
	inAbs, err := filepath.Abs(c.VideoPath)
	if err != nil {
		return fmt.Errorf("resolve video path: %w", err)
	}
	outAbs, err := filepath.Abs(c.OutputPath)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if inAbs == outAbs {
		return fmt.Errorf("video and output paths must be different")
	}
	if info, err := os.Stat(c.OutputPath); err == nil && info.IsDir() {
		return fmt.Errorf("output path %s is a directory", c.OutputPath)
	}
	if info, err := os.Stat(filepath.Dir(c.OutputPath)); err != nil || !info.IsDir() {
		return fmt.Errorf("output directory %s does not exist", filepath.Dir(c.OutputPath))
	}

	switch c.Decoder {
	case "":
		c.Decoder = DecoderOpenCV
	case DecoderOpenCV, DecoderFFmpeg:
	default:
		return fmt.Errorf("unknown decoder %q (want %s or %s)", c.Decoder, DecoderOpenCV, DecoderFFmpeg)
	}

	switch c.Detector.Backend {
	case "":
		c.Detector.Backend = BackendCascade
	case BackendCascade, BackendWorker:
	default:
		return fmt.Errorf("unknown detector backend %q (want %s or %s)", c.Detector.Backend, BackendCascade, BackendWorker)
	}
	if c.Detector.Backend == BackendWorker && len(c.Detector.WorkerCommand) == 0 {
		return fmt.Errorf("worker backend needs a command")
	}

	if c.Detector.ScaleFactor <= 1 {
		return fmt.Errorf("scale factor must be > 1, got %v", c.Detector.ScaleFactor)
	}
	if c.Detector.MinNeighbors < 0 {
		return fmt.Errorf("min neighbors must be >= 0, got %d", c.Detector.MinNeighbors)
	}
	if c.Detector.MinSize < 1 {
		return fmt.Errorf("min size must be >= 1, got %d", c.Detector.MinSize)
	}

	if c.Selection == "" {
		c.Selection = types.FirstFound
	}
	policy, err := types.ParseSelectionPolicy(string(c.Selection))
	if err != nil {
		return err
	}
	c.Selection = policy

	if c.ProgressEvery < 1 {
		c.ProgressEvery = DefaultProgressEvery
	}
	return nil
}

// ExecutableDir is the directory of the running binary with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func findCascade(base string) string {
	local := filepath.Join(base, DefaultCascadeName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	for _, dir := range cascadeDirs {
		p := filepath.Join(dir, DefaultCascadeName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return local
}

// DBConfig is read from the environment by the store, list and reset commands.
type DBConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"POSTGRES_HOST"`
	Port     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB"       envDefault:"facetrack"`
}

// LoadDB parses the database settings from the environment.
func LoadDB() (DBConfig, error) {
	var cfg DBConfig
	if err := env.Parse(&cfg); err != nil {
		return DBConfig{}, fmt.Errorf("parse database env: %w", err)
	}
	return cfg, nil
}

// ConnString prefers DATABASE_URL, then the POSTGRES_* parts, then a local default.
func (c DBConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.Name)
	}
	return "postgres://localhost:5432/facetrack"
}
