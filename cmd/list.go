package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/facetrack/internal/store"
	"github.com/andresmejia3/facetrack/internal/types"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [video-id]",
	Short: "List face tracks stored in the database",
	Long: `Without arguments, lists every stored face track with its coverage.
Given a video ID (or a unique prefix of one), prints that track frame by frame.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return runList(cmd.Context(), prefix)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context, prefix string) error {
	db, err := openStore(ctx)
	if err != nil {
		return report("Database unavailable", err)
	}
	defer db.Close(context.Background())

	tracks, err := db.ListTracks(ctx)
	if err != nil {
		return report("Failed to list face tracks", err)
	}

	if len(tracks) == 0 {
		fmt.Println("No face tracks found in database.")
		return nil
	}

	if prefix == "" {
		printTracks(tracks)
		return nil
	}

	videoID, err := resolveVideoID(tracks, prefix)
	if err != nil {
		return report("Unknown video", err)
	}
	faces, err := db.GetTrack(ctx, videoID)
	if err != nil {
		return report("Failed to load face track", err)
	}
	printFrames(os.Stdout, faces)
	return nil
}

// resolveVideoID expands prefix to the one stored video ID it starts.
func resolveVideoID(tracks []store.TrackSummary, prefix string) (string, error) {
	var matches []string
	for _, t := range tracks {
		if strings.HasPrefix(t.VideoID, prefix) {
			matches = append(matches, t.VideoID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no stored video matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d videos, use a longer prefix", prefix, len(matches))
	}
}

func printFrames(out io.Writer, faces types.FaceTrack) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FRAME\tX\tY\tWIDTH\tHEIGHT")
	fmt.Fprintln(w, "-----\t-\t-\t-----\t------")

	for i, b := range faces {
		if b == nil {
			fmt.Fprintf(w, "%d\t-\t-\t-\t-\n", i)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", i, b.X, b.Y, b.Width, b.Height)
	}
	w.Flush()
}

func printTracks(tracks []store.TrackSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "VIDEO ID\tFILE\tFRAMES\tWITH FACE\tCOVERAGE\tSTORED")
	fmt.Fprintln(w, "--------\t----\t------\t---------\t--------\t------")

	for _, t := range tracks {
		id := t.VideoID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f%%\t%s\n",
			id,
			filepath.Base(t.Path),
			t.Frames,
			t.WithFace,
			t.Coverage()*100,
			t.IndexedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
}
