package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

const (
	DefaultTelegramAPI = "https://api.telegram.org"

	messageTimeout = 10 * time.Second
	photoTimeout   = 20 * time.Second
)

// TelegramConfig identifies the bot and the chat it posts to
type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIBase  string
}

// Telegram posts a Markdown summary followed by one photo per evidence file
type Telegram struct {
	cfg    TelegramConfig
	fs     afero.Fs
	client *http.Client
	log    logrus.FieldLogger
}

// NewTelegram creates a chat notifier. A nil client uses http.DefaultClient.
func NewTelegram(cfg TelegramConfig, fs afero.Fs, client *http.Client, log logrus.FieldLogger) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Telegram{cfg: cfg, fs: fs, client: client, log: log}
}

// Name implements output.Notifier
func (t *Telegram) Name() string { return "telegram" }

// Notify sends the summary, then every photo. A failed photo does not stop
// the ones after it; all failures are returned together.
func (t *Telegram) Notify(ctx context.Context, o outcome.Outcome) error {
	var errs []error

	text := fmt.Sprintf("*%s*\n\n%s", escapeMarkdown(o.Subject()), escapeMarkdown(o.Body()))
	if err := t.SendMessage(ctx, text); err != nil {
		errs = append(errs, err)
	}

	for _, p := range o.Evidence {
		if err := t.SendPhoto(ctx, p, filepath.Base(p)); err != nil {
			t.log.WithError(err).WithField("path", p).Warn("photo not delivered")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendMessage posts a Markdown text message
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.cfg.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, messageTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, "sendMessage")
}

// SendPhoto uploads the PNG at path with caption
func (t *Telegram) SendPhoto(ctx context.Context, path, caption string) error {
	data, err := afero.ReadFile(t.fs, path)
	if err != nil {
		return fmt.Errorf("read photo %s: %w", path, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", t.cfg.ChatID); err != nil {
		return err
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return err
	}
	fw, err := mw.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, photoTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendPhoto"), &body)
	if err != nil {
		return fmt.Errorf("create sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := t.do(req, "sendPhoto"); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) do(req *http.Request, method string) error {
	resp, err := t.client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which embeds the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}
	var r apiResponse
	if jsonErr := json.Unmarshal(raw, &r); jsonErr != nil || resp.StatusCode != http.StatusOK || !r.OK {
		desc := r.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode, desc)
	}
	return nil
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.cfg.APIBase, t.cfg.BotToken, method)
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// escapeMarkdown protects text that is not meant as markup
func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
