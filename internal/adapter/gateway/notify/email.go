package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

const smtpDialTimeout = 15 * time.Second

// EmailConfig holds SMTP delivery settings
type EmailConfig struct {
	Host     string
	Port     int
	UseSSL   bool // implicit TLS; otherwise STARTTLS is used when offered
	Username string
	Password string
	From     string
	To       []string
}

// Email sends outcomes as MIME messages with the evidence attached
type Email struct {
	cfg  EmailConfig
	fs   afero.Fs
	now  func() time.Time
	log  logrus.FieldLogger
	send func(ctx context.Context, msg []byte) error
}

// NewEmail creates an SMTP notifier. Evidence files are read from fs.
func NewEmail(cfg EmailConfig, fs afero.Fs, log logrus.FieldLogger) *Email {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Email{cfg: cfg, fs: fs, now: time.Now, log: log}
	e.send = e.sendSMTP
	return e
}

// Name implements output.Notifier
func (e *Email) Name() string { return "email" }

// Notify implements output.Notifier
func (e *Email) Notify(ctx context.Context, o outcome.Outcome) error {
	msg, err := e.BuildMessage(o)
	if err != nil {
		return err
	}
	return e.send(ctx, msg)
}

// BuildMessage renders o as a multipart message: a plain text part followed
// by one image/png attachment per evidence file. Unreadable evidence is
// skipped and mentioned in the body.
func (e *Email) BuildMessage(o outcome.Outcome) ([]byte, error) {
	var h mail.Header
	h.SetDate(e.now())
	h.SetSubject(o.Subject())
	h.SetAddressList("From", []*mail.Address{{Address: e.cfg.From}})
	to := make([]*mail.Address, 0, len(e.cfg.To))
	for _, addr := range e.cfg.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	type attachment struct {
		name string
		data []byte
	}
	var (
		attachments []attachment
		missing     []string
	)
	for _, p := range o.Evidence {
		data, err := afero.ReadFile(e.fs, p)
		if err != nil {
			e.log.WithError(err).WithField("path", p).Warn("evidence not attached")
			missing = append(missing, filepath.Base(p))
			continue
		}
		attachments = append(attachments, attachment{name: filepath.Base(p), data: data})
	}

	body := o.Body()
	if len(missing) > 0 {
		body += fmt.Sprintf("\nNot attached (unreadable): %v", missing)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	th.Set("Content-Transfer-Encoding", "quoted-printable")
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := io.WriteString(tw, body); err != nil {
		return nil, fmt.Errorf("failed to write text part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close text part: %w", err)
	}

	for _, a := range attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType("image/png", nil)
		ah.SetFilename(a.name)
		ah.Set("Content-Transfer-Encoding", "base64")
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", a.name, err)
		}
		if _, err := aw.Write(a.data); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", a.name, err)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment %s: %w", a.name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Email) sendSMTP(ctx context.Context, msg []byte) error {
	if len(e.cfg.To) == 0 {
		return errors.New("no email recipients configured")
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	dialer := &net.Dialer{Timeout: smtpDialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if e.cfg.UseSSL {
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: e.cfg.Host}}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = c.Quit() }()

	if !e.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
				return fmt.Errorf("smtp STARTTLS: %w", err)
			}
		}
	}
	if e.cfg.Username != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range e.cfg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return nil
}
