package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	infraConfig "github.com/Jairedddy/ClockIn-Automation/internal/infra/config"
)

const secretsTemplate = `# Credentials and targets for clockin. Keep this file private.
portal_url: ""
account_identifier: ""
browser_path: ""
profile_dir: ""
profile_name: Default

email:
  smtp_host: ""
  smtp_port: 587
  use_ssl: false
  username: ""
  password: ""
  from: ""
  to: []

telegram:
  bot_token: ""
  chat_id: ""

archive:
  bucket: ""
  prefix: clockin
  region: ""
`

func newInitCmd(a *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the home directory with default configuration files",
		Long:  "Write config.json, setting.json and a secrets.yaml template. Existing files are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.initHome()
		},
	}
}

func (a *commandEnv) initHome() error {
	if err := a.fs.MkdirAll(a.home, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", a.home, err)
	}

	store := a.configStore()
	created, err := store.Init()
	if err != nil {
		return err
	}
	a.report(store.Path(), created)

	files := []struct {
		path string
		data []byte
		perm os.FileMode
	}{
		{a.settings.Resolve(infraConfig.SettingFile), infraConfig.CreateDefaultSettings(), 0o644},
		{a.settings.Resolve(a.settings.SecretsPath), []byte(secretsTemplate), 0o600},
	}
	for _, f := range files {
		exists, err := afero.Exists(a.fs, f.path)
		if err != nil {
			return err
		}
		if exists {
			a.report(f.path, false)
			continue
		}
		if err := afero.WriteFile(a.fs, f.path, f.data, f.perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		a.report(f.path, true)
	}
	return nil
}

func (a *commandEnv) report(path string, created bool) {
	if created {
		fmt.Fprintf(a.out, "created %s\n", path)
		return
	}
	fmt.Fprintf(a.out, "exists  %s\n", path)
}
