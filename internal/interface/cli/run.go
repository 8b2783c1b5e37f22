package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/service"
	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

func newRunCmd(a *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform today's clock-in once",
		Long: `Evaluate today's schedule and, when allowed, wait a random delay inside
the configured window, drive the portal and clock in. The outcome is
delivered to every configured notification channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runOnce(ctx)
		},
	}
}

// runOnce builds a runner and executes a single daily run
func (a *commandEnv) runOnce(ctx context.Context) error {
	runner, err := a.buildRunner(ctx)
	if err != nil {
		return err
	}
	rep, err := runner.Run(ctx)
	a.printReport(rep)
	return err
}

func (a *commandEnv) printReport(rep service.Report) {
	if !rep.Acquired {
		fmt.Fprintln(a.out, "Another run is in progress; nothing done.")
		return
	}
	o := rep.Outcome
	switch o.Kind {
	case outcome.KindSucceeded:
		fmt.Fprintf(a.out, "Clocked in (run %s, %d screenshots)\n", o.RunID, len(o.Evidence))
	case outcome.KindSkipped:
		fmt.Fprintf(a.out, "Skipped: %s\n", o.Reason)
	case outcome.KindFailed:
		fmt.Fprintf(a.out, "Clock-in failed (run %s, %d screenshots)\n", o.RunID, len(o.Evidence))
	}
}
