package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/schedule"
)

// ErrRunInProgress is returned when a command must not race an active run
var ErrRunInProgress = errors.New("a clock-in run is in progress, try again later")

func newSkipCmd(a *commandEnv) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "skip DATE...",
		Short: "Skip (or un-skip) clock-in on the given dates",
		Example: `  clockin skip 2024-12-24 2024-12-31
  clockin skip --remove 2024-12-24`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateSkipDates(args, remove)
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the dates from the skip list")

	return cmd
}

func (a *commandEnv) updateSkipDates(dates []string, remove bool) error {
	loc := a.settings.Location()
	for _, d := range dates {
		if _, err := schedule.ParseDate(d, loc); err != nil {
			return err
		}
	}

	guard := a.runGuard()
	acquired, err := guard.Acquire()
	if err != nil {
		return fmt.Errorf("failed to acquire run guard: %w", err)
	}
	if !acquired {
		return ErrRunInProgress
	}
	defer func() {
		if err := guard.Release(); err != nil {
			a.log.WithError(err).Error("failed to release run guard")
		}
	}()

	store := a.configStore()
	cfg, err := store.Load()
	if err != nil {
		return err
	}

	changed := 0
	for _, d := range dates {
		var ok bool
		if remove {
			ok = cfg.RemoveSkipDate(d)
		} else {
			ok = cfg.AddSkipDate(d)
		}
		if ok {
			changed++
		}
	}
	if changed == 0 {
		fmt.Fprintln(a.out, "Skip list unchanged")
		return nil
	}
	if err := store.Save(cfg); err != nil {
		return err
	}

	verb := "Added"
	if remove {
		verb = "Removed"
	}
	fmt.Fprintf(a.out, "%s %d date(s); skip list: %v\n", verb, changed, cfg.SkipDates)
	return nil
}
