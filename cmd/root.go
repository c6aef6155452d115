package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facetrack/internal/config"
	"github.com/andresmejia3/facetrack/internal/logger"
	"github.com/andresmejia3/facetrack/internal/store"
	"github.com/andresmejia3/facetrack/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the application version.
const Version = "0.1.0"

// log is the shared logger, built before any subcommand runs.
var log = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "facetrack",
	Short: "Per-frame face bounding boxes for a video",
	Long: `facetrack reads the video next to the executable frame by frame, runs a Haar
cascade face detector on each frame and writes the first detected face (or null)
per frame to a JSON array. Running it without a subcommand is the same as "generate".`,
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New("info")
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
	RunE: runGenerateCmd,
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Errors from our commands were already shown in the error box
		var boxed reportedError
		if !errors.As(err, &boxed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// reportedError is an error already printed with utils.ShowError.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// report prints err in the error box and marks it as shown.
func report(headline string, err error) error {
	utils.ShowError(headline, err, nil)
	return reportedError{err}
}

// openStore connects to PostgreSQL using the environment settings.
func openStore(ctx context.Context) (*store.Store, error) {
	dbCfg, err := config.LoadDB()
	if err != nil {
		return nil, err
	}
	db, err := store.New(ctx, dbCfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
