package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/facetrack/internal/config"
	"github.com/andresmejia3/facetrack/internal/track"
	"github.com/andresmejia3/facetrack/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Persist the generated face track to PostgreSQL",
	Long: `Loads video-head-data.json next to the executable and stores it under the video's ID.
The connection comes from DATABASE_URL or POSTGRES_HOST/PORT/USER/PASSWORD/DB.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := config.Default()
		if err != nil {
			return report("Failed to resolve configuration", err)
		}
		return runStore(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
}

func runStore(ctx context.Context, cfg config.Config) error {
	faces, err := track.Load(cfg.OutputPath)
	if err != nil {
		return report("Failed to read face track (run generate first)", err)
	}

	videoID, err := utils.GenerateVideoID(cfg.VideoPath)
	if err != nil {
		return report("Failed to generate video ID", err)
	}

	db, err := openStore(ctx)
	if err != nil {
		return report("Database unavailable", err)
	}
	// Background: ctx may already be cancelled and we still want to close cleanly
	defer db.Close(context.Background())

	if err := db.SaveTrack(ctx, videoID, cfg.VideoPath, faces); err != nil {
		return report("Failed to store face track", err)
	}

	stats := faces.Stats()
	log.Info("face track stored",
		zap.String("video_id", videoID[:12]),
		zap.Int("frames", stats.Frames),
		zap.Int("frames_with_face", stats.WithFace),
	)
	fmt.Fprintf(os.Stderr, "📼 Stored Video ID: %s\n", videoID[:12])
	return nil
}
