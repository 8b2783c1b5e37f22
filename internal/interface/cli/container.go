package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Jairedddy/ClockIn-Automation/internal/adapter/gateway/browser"
	"github.com/Jairedddy/ClockIn-Automation/internal/adapter/gateway/notify"
	"github.com/Jairedddy/ClockIn-Automation/internal/adapter/gateway/storage"
	"github.com/Jairedddy/ClockIn-Automation/internal/app"
	"github.com/Jairedddy/ClockIn-Automation/internal/app/config"
	"github.com/Jairedddy/ClockIn-Automation/internal/application/port/output"
	"github.com/Jairedddy/ClockIn-Automation/internal/application/service"
	"github.com/Jairedddy/ClockIn-Automation/internal/application/workflow"
	infraConfig "github.com/Jairedddy/ClockIn-Automation/internal/infra/config"
	"github.com/Jairedddy/ClockIn-Automation/internal/infra/evidence"
	"github.com/Jairedddy/ClockIn-Automation/internal/infra/fs"
	"github.com/Jairedddy/ClockIn-Automation/internal/infra/persistence/file"
)

func (a *commandEnv) configStore() *file.ConfigStore {
	return file.NewConfigStore(a.fs, a.settings.Resolve(a.settings.ConfigPath))
}

func (a *commandEnv) journal() *app.JournalWriter {
	return app.NewJournalWriter(a.fs, a.settings.Resolve(a.settings.JournalPath), a.log)
}

func (a *commandEnv) runGuard() *fs.RunGuard {
	return fs.NewRunGuard(a.fs, a.settings.Resolve(a.settings.LockPath),
		fs.WithStaleAfter(a.settings.StaleLockAfter()),
		fs.WithLogger(a.log),
	)
}

// buildRunner wires the daily runner. Secrets are read once here.
func (a *commandEnv) buildRunner(ctx context.Context) (*service.DailyRunner, error) {
	s := a.settings
	secrets, err := infraConfig.LoadSecrets(a.fs, s.Resolve(s.SecretsPath))
	if err != nil {
		return nil, err
	}

	accountSelector, err := browser.AccountSelector(s.AccountSelectorTemplate, secrets.AccountIdentifier)
	if err != nil {
		return nil, err
	}

	notifier, err := a.buildNotifier(ctx, secrets)
	if err != nil {
		return nil, err
	}

	loc := s.Location()
	recorder := evidence.NewRecorder(a.fs, s.Resolve(s.ScreenshotDir), zoneClock(loc), a.log)
	launchOpts := browser.LaunchOptions{
		ExecPath:    secrets.BrowserPath,
		ProfileDir:  secrets.ProfileDir,
		ProfileName: secrets.ProfileName,
		Headless:    s.Headless,
	}

	return service.NewDailyRunner(service.DailyRunnerConfig{
		Guard:    a.runGuard(),
		Store:    a.configStore(),
		Pruner:   recorder,
		Recorder: recorder,
		Launch: func(ctx context.Context) (output.Browser, error) {
			lctx, cancel := context.WithTimeout(ctx, s.NavigationTimeout())
			defer cancel()
			session, err := browser.Launch(lctx, launchOpts, a.log)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		Profile:  browser.NewProfileGuard(nil, secrets.BrowserPath, secrets.ProfileDir, s.BrowserShutdownGrace(), a.log),
		Notifier: notifier,
		Flow: workflow.Options{
			PortalURL:         secrets.PortalURL,
			SSOSelector:       s.SSOSelector,
			AccountSelector:   accountSelector,
			MoodSelector:      s.MoodSelector,
			ClockInSelector:   s.ClockInSelector,
			NavigationTimeout: s.NavigationTimeout(),
			SettleDelay:       s.SettleDelay(),
			StepSettle:        s.StepSettle(),
			ElementTimeout:    s.ElementTimeout(),
			OptionalTimeout:   s.OptionalTimeout(),
			ClockInTimeout:    s.ClockInTimeout(),
			ClockInAttempts:   s.ClockInAttempts,
		},
		BrowserShutdown: s.BrowserShutdownGrace(),
		Location:        loc,
		Log:             a.log,
	})
}

// zoneClock reads the wall clock in loc so evidence folders follow the same
// calendar as rollover and retention
func zoneClock(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}

// buildNotifier fans out to every channel configured in secrets
func (a *commandEnv) buildNotifier(ctx context.Context, secrets config.Secrets) (*notify.Multi, error) {
	notifiers := []output.Notifier{a.journal()}

	if secrets.Email.Enabled() {
		e := secrets.Email
		notifiers = append(notifiers, notify.NewEmail(notify.EmailConfig{
			Host:     e.Host,
			Port:     e.Port,
			UseSSL:   e.UseSSL,
			Username: e.Username,
			Password: e.Password,
			From:     e.From,
			To:       e.To,
		}, a.fs, a.log))
	}
	if secrets.Telegram.Enabled() {
		tg := secrets.Telegram
		notifiers = append(notifiers, notify.NewTelegram(notify.TelegramConfig{
			BotToken: tg.BotToken,
			ChatID:   tg.ChatID,
			APIBase:  tg.APIBase,
		}, a.fs, http.DefaultClient, a.log))
	}
	if secrets.Archive.Enabled() {
		ar := secrets.Archive
		archive, err := storage.NewEvidenceArchive(ctx, storage.S3Config{
			BucketName: ar.Bucket,
			Prefix:     ar.Prefix,
			Region:     ar.Region,
		}, a.fs, a.log)
		if err != nil {
			return nil, fmt.Errorf("evidence archive: %w", err)
		}
		notifiers = append(notifiers, archive)
	}

	m := notify.NewMulti(a.log, notifiers...)
	if m.Len() == 1 {
		a.log.Warn("no notification channel configured")
	}
	return m, nil
}
