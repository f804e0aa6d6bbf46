package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/curator/internal/control"
)

var (
	limit      int
	sector     string
	dryRun     bool
	failedOnly bool
	noResume   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch over the company universe",
	Run:   runBatch,
}

func init() {
	runCmd.Flags().IntVar(&limit, "limit", 0, "process at most N companies (0 = all)")
	runCmd.Flags().StringVar(&sector, "sector", "", "only process companies in this GICS sector")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print processing status and exit without fetching")
	runCmd.Flags().BoolVar(&failedOnly, "failed-only", false, "only reprocess symbols in the failed-item queue")
	runCmd.Flags().BoolVar(&noResume, "no-resume", false, "ignore the persisted checkpoint and start fresh")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if dryRun {
		printSnapshot(ctx, app)
		return
	}

	summary, err := app.Run(ctx, control.RunOptions{
		Limit:      limit,
		Sector:     sector,
		FailedOnly: failedOnly,
		NoResume:   noResume,
	})
	if err != nil {
		slog.Error("Batch run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Batch complete",
		"run_id", summary.RunID,
		"success", summary.SuccessCount,
		"errors", summary.ErrorCount,
		"skipped", summary.SkippedCount,
		"success_rate", summary.SuccessRate(),
		"avg_completeness", summary.AvgCompleteness)

	if summary.Aborted {
		slog.Error("Run aborted", "reason", summary.AbortReason)
		os.Exit(1)
	}
}

func printSnapshot(ctx context.Context, app *control.Curator) {
	snapshot, err := app.Snapshot(ctx)
	if err != nil {
		slog.Error("Failed to build status", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(snapshot)
}
