// Package mailer submits HTML emails with inline images over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

var (
	// ErrNoRecipients is returned when a message has an empty envelope.
	ErrNoRecipients = errors.New("no recipients")
	// ErrTLSUnavailable is returned when TLS is required but the server
	// does not offer STARTTLS.
	ErrTLSUnavailable = errors.New("server does not support STARTTLS")
	// ErrAuthUnavailable is returned when credentials are configured but
	// the server does not offer PLAIN authentication.
	ErrAuthUnavailable = errors.New("server does not support PLAIN auth")
)

// Config describes the submission server.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	RequireTLS bool
	// TLSConfig overrides the STARTTLS configuration. ServerName defaults
	// to Host.
	TLSConfig *tls.Config
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers msg to every address in msg.To in a single transaction.
func (m *Mailer) Send(ctx context.Context, msg *Message) (err error) {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := m.dial()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = c.Close()
			return
		}
		if qerr := c.Quit(); qerr != nil {
			m.logger.Warn("smtp quit failed", "error", qerr)
		}
	}()

	if m.cfg.Password != "" {
		if !c.SupportsAuth(sasl.Plain) {
			return ErrAuthUnavailable
		}
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(msg.From.Address, nil); err != nil {
		return fmt.Errorf("sender identification: %w", err)
	}
	for _, to := range msg.To {
		if err := c.Rcpt(to, nil); err != nil {
			return fmt.Errorf("recipient %s: %w", to, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("message transmission: %w", err)
	}
	if _, err := msg.WriteTo(wc); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	_, secure := c.TLSConnectionState()
	m.logger.Info("email sent", "message_id", msg.MessageID(), "recipients", len(msg.To), "tls", secure)
	return nil
}

// dial connects to the server and upgrades with STARTTLS when the server
// offers it. go-smtp only upgrades a client it dials itself, so the
// capability check runs on a separate plaintext session.
func (m *Mailer) dial() (*smtp.Client, error) {
	addr := m.cfg.Addr()
	c, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		if m.cfg.RequireTLS {
			_ = c.Close()
			return nil, ErrTLSUnavailable
		}
		return c, nil
	}
	if err := c.Quit(); err != nil {
		_ = c.Close()
	}

	tlsCfg := m.cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if tlsCfg.ServerName == "" {
		tlsCfg = tlsCfg.Clone()
		tlsCfg.ServerName = m.cfg.Host
	}
	c, err = smtp.DialStartTLS(addr, tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("starttls %s: %w", addr, err)
	}
	return c, nil
}
