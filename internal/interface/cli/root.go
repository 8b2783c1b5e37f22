package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Jairedddy/ClockIn-Automation/internal/app/config"
	infraConfig "github.com/Jairedddy/ClockIn-Automation/internal/infra/config"
	"github.com/Jairedddy/ClockIn-Automation/internal/interface/cli/version"
)

const (
	// HomeEnv overrides the default home directory
	HomeEnv     = "CLOCKIN_HOME"
	defaultHome = ".clockin"
)

// commandEnv is the state shared by every command once the persistent pre-run loaded it
type commandEnv struct {
	fs       afero.Fs
	home     string
	settings config.Settings
	log      *logrus.Logger
	out      io.Writer
}

func NewRoot() *cobra.Command {
	return newRoot(afero.NewOsFs())
}

func newRoot(fs afero.Fs) *cobra.Command {
	a := &commandEnv{fs: fs}
	cmd := &cobra.Command{
		Use:           "clockin",
		Short:         "Daily HR portal clock-in automation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Priority: --home > CLOCKIN_HOME > .clockin
			return a.load(cmd)
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&a.home, "home", "", "home directory holding config.json, secrets.yaml and setting.json (default $"+HomeEnv+" or "+defaultHome+")")

	versionCmd := version.NewCommand()
	versionCmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	cmd.AddCommand(newInitCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newSkipCmd(a))
	cmd.AddCommand(newDaemonCmd(a))
	cmd.AddCommand(versionCmd)
	return cmd
}

func (a *commandEnv) load(cmd *cobra.Command) error {
	if a.home == "" {
		a.home = os.Getenv(HomeEnv)
	}
	if a.home == "" {
		a.home = defaultHome
	}

	settings, err := infraConfig.LoadSettings(a.fs, a.home)
	if err != nil {
		return err
	}
	a.settings = settings
	a.out = cmd.OutOrStdout()
	a.log = NewLogger(settings.LogLevel, cmd.ErrOrStderr())
	a.log.WithFields(logrus.Fields{
		"home":   a.home,
		"source": settings.ConfigSource,
	}).Debug("settings loaded")
	return nil
}

// Execute runs the root command and reports the error on stderr
func Execute() int {
	root := NewRoot()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}
