package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue requests and resume stuck reassignments once, then exit",
	RunE:  sweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func sweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := config.New()
	svc, err := build(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.close(context.Background())

	res, err := svc.scheduler.RunOnce(ctx)
	if err != nil {
		return err
	}
	if res.Skipped {
		zap.S().Info("another instance holds the sweep lock")
	}
	return nil
}
