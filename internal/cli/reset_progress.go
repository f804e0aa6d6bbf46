package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/curator/internal/control"
)

var resetProgressCmd = &cobra.Command{
	Use:   "reset-progress",
	Short: "Discard the persisted batch checkpoint so the next run starts fresh",
	Run:   runResetProgress,
}

func init() {
	rootCmd.AddCommand(resetProgressCmd)
}

func runResetProgress(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	app, err := control.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize curator", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.ResetProgress(context.Background()); err != nil {
		slog.Error("Failed to reset progress", "error", err)
		os.Exit(1)
	}

	fmt.Println("Batch progress reset")
}
