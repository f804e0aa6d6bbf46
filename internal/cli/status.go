package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/curator/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processing status and the latest run summary",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	printSnapshot(context.Background(), app)
}
