package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/facetrack/internal/config"
	"github.com/spf13/cobra"
)

var (
	resetDB     bool
	resetOutput bool
	resetDebug  bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Database, Face Track, Debug Frames)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetOutput && !resetDebug {
			resetDB = true
			resetOutput = true
			resetDebug = true
		}

		base, err := config.ExecutableDir()
		if err != nil {
			return report("Failed to resolve configuration", err)
		}
		cfg := config.ForDir(base)

		reader := bufio.NewReader(os.Stdin)

		if resetDB {
			if confirm(reader, "⚠️  Are you sure you want to DROP all database tables?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := dropTables(cmd.Context()); err != nil {
					return report("Failed to reset database", err)
				}
			}
		}

		if resetOutput {
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete %s?", cfg.OutputPath)) {
				fmt.Println("🗑️  Clearing Face Track...")
				removePath(cfg.OutputPath)
			}
		}

		if resetDebug && cfg.DebugDir != "" {
			if confirm(reader, "⚠️  Are you sure you want to delete all debug frames?") {
				fmt.Println("🗑️  Clearing Debug Frames...")
				clearDir(cfg.DebugDir)
			}
		}

		fmt.Println("✨ System Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "db", false, "Clear PostgreSQL database")
	resetCmd.Flags().BoolVar(&resetOutput, "output", false, "Delete the generated face track JSON")
	resetCmd.Flags().BoolVar(&resetDebug, "debug", false, "Clear debug frames")
	rootCmd.AddCommand(resetCmd)
}

func dropTables(ctx context.Context) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())
	return db.Reset(ctx)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removePath(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}

// clearDir empties dir but keeps it, so debug frames stay enabled.
func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to read %s: %v\n", dir, err)
		return
	}
	for _, e := range entries {
		removePath(filepath.Join(dir, e.Name()))
	}
}
