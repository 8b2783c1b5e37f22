package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/schedule"
)

type StatusOutput struct {
	Ts              string `json:"ts"`
	Date            string `json:"date"`
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason"`
	ClockedIn       bool   `json:"already_clocked_today"`
	LastRunDate     string `json:"last_run_date"`
	RunInProgress   bool   `json:"run_in_progress"`
	RunOwnerPID     int    `json:"run_owner_pid,omitempty"`
	WindowMinutes   [2]int `json:"random_time_window_minutes"`
	RetentionDays   int    `json:"screenshot_retention_days"`
	SettingsSource  string `json:"settings_source"`
	ConfigPath      string `json:"config_path"`
	ScreenshotsPath string `json:"screenshots_path"`
	LastOutcome     string `json:"last_outcome,omitempty"`
	LastOutcomeAt   string `json:"last_outcome_at,omitempty"`
	LastError       string `json:"last_error,omitempty"`
}

func newStatusCmd(a *commandEnv) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether today's run would proceed",
		Long:  "Evaluate the schedule for today without changing any state or starting a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.status(time.Now())
			if err != nil {
				return err
			}

			if jsonOutput {
				b, err := json.Marshal(st)
				if err != nil {
					return fmt.Errorf("marshal json: %w", err)
				}
				fmt.Fprintln(a.out, string(b))
				return nil
			}

			verdict := "will run"
			if !st.Allowed {
				verdict = "will skip (" + st.Reason + ")"
			}
			fmt.Fprintf(a.out, "Date      : %s\n", st.Date)
			fmt.Fprintf(a.out, "Today     : %s\n", verdict)
			fmt.Fprintf(a.out, "Last run  : %s\n", st.LastRunDate)
			fmt.Fprintf(a.out, "Window    : %d-%d min\n", st.WindowMinutes[0], st.WindowMinutes[1])
			if st.LastOutcome != "" {
				fmt.Fprintf(a.out, "Outcome   : %s at %s\n", st.LastOutcome, st.LastOutcomeAt)
			}
			if st.LastError != "" {
				fmt.Fprintf(a.out, "Error     : %s\n", st.LastError)
			}
			if st.RunInProgress {
				fmt.Fprintf(a.out, "Running   : yes (pid %d)\n", st.RunOwnerPID)
			} else {
				fmt.Fprintln(a.out, "Running   : no")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status in JSON format")

	return cmd
}

// status evaluates the gate on an in-memory copy; nothing is saved
func (a *commandEnv) status(now time.Time) (StatusOutput, error) {
	now = now.In(a.settings.Location())
	store := a.configStore()
	cfg, err := store.Load()
	if err != nil {
		return StatusOutput{}, err
	}
	schedule.Rollover(&cfg, now)
	decision := schedule.Evaluate(cfg, now)

	out := StatusOutput{
		Ts:              now.Format(time.RFC3339Nano),
		Date:            schedule.FormatDate(now),
		Allowed:         decision.Allowed,
		Reason:          decision.Reason,
		ClockedIn:       cfg.AlreadyClockedToday,
		LastRunDate:     cfg.LastRunDate,
		WindowMinutes:   cfg.RandomWindowMinutes,
		RetentionDays:   cfg.RetentionDays,
		SettingsSource:  a.settings.ConfigSource,
		ConfigPath:      store.Path(),
		ScreenshotsPath: a.settings.Resolve(a.settings.ScreenshotDir),
	}

	if last, ok, err := a.journal().Last(); err != nil {
		a.log.WithError(err).Warn("run journal unreadable")
	} else if ok {
		out.LastOutcome = last.Kind
		out.LastOutcomeAt = last.Ts
		out.LastError = last.Error
		if last.Reason != "" {
			out.LastOutcome += ": " + last.Reason
		}
	}

	marker, err := a.runGuard().ReadMarker()
	switch {
	case err == nil:
		out.RunInProgress = true
		out.RunOwnerPID = marker.PID
	case !errors.Is(err, iofs.ErrNotExist):
		a.log.WithError(err).Warn("run marker unreadable")
		out.RunInProgress = true
	}
	return out, nil
}
