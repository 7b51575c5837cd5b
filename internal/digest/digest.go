// Package digest builds the weekly weather email and sends it on a schedule.
package digest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/gafc98/temperature-logger/internal/chart"
	"github.com/gafc98/temperature-logger/internal/mailer"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/types"
	"github.com/gafc98/temperature-logger/internal/report"
)

const (
	senderName    = "Weekly Reports"
	imageCID      = "weather-report"
	imageFilename = "weather_report.png"
)

// ErrNoReceiver is returned by a simulated send without a test address.
var ErrNoReceiver = errors.New("no receiver address for simulated digest")

// SubscriberSource resolves the mailing list.
type SubscriberSource interface {
	Subscribers(ctx context.Context, sheetID string) ([]string, error)
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *mailer.Message) error
}

// Ledger records sent digests.
type Ledger interface {
	InsertDispatch(ctx context.Context, d types.Dispatch) error
}

// Options are the addresses and links that go into every digest.
type Options struct {
	SheetID        string
	SenderEmail    string
	ReceiverEmail  string
	DashboardURL   string
	UnsubscribeURL string
}

type Digest struct {
	opts        Options
	subscribers SubscriberSource
	source      report.Source
	sender      Sender
	ledger      Ledger
	clock       quartz.Clock
	logger      *slog.Logger
}

// New wires a digest. ledger may be nil, in which case sends are not recorded.
func New(opts Options, subscribers SubscriberSource, source report.Source, sender Sender, ledger Ledger, clock quartz.Clock, logger *slog.Logger) *Digest {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Digest{
		opts:        opts,
		subscribers: subscribers,
		source:      source,
		sender:      sender,
		ledger:      ledger,
		clock:       clock,
		logger:      logger,
	}
}

// Send builds the digest for the seven days before ref's midnight and mails
// it. With simulate set the subscriber list is replaced by the receiver
// address from the options.
func (d *Digest) Send(ctx context.Context, ref time.Time, simulate bool) (types.Dispatch, error) {
	recipients, err := d.subscribers.Subscribers(ctx, d.opts.SheetID)
	if err != nil {
		return types.Dispatch{}, fmt.Errorf("resolve subscribers: %w", err)
	}
	if simulate {
		if d.opts.ReceiverEmail == "" {
			return types.Dispatch{}, ErrNoReceiver
		}
		recipients = []string{d.opts.ReceiverEmail}
		d.logger.Info("simulated digest", "receiver", d.opts.ReceiverEmail)
	}
	if len(recipients) == 0 {
		return types.Dispatch{}, mailer.ErrNoRecipients
	}

	msg, week, err := d.Build(ctx, ref)
	if err != nil {
		return types.Dispatch{}, err
	}
	msg.To = recipients

	if err := d.sender.Send(ctx, msg); err != nil {
		return types.Dispatch{}, fmt.Errorf("send digest: %w", err)
	}

	year, isoWeek := week.ISOWeek()
	dispatch := types.Dispatch{
		ID:         msg.ID.String(),
		ISOYear:    year,
		ISOWeek:    isoWeek,
		WindowFrom: week.Start(),
		WindowTo:   week.End(),
		Recipients: len(recipients),
		Simulated:  simulate,
		SentAt:     msg.Date,
	}
	d.logger.Info("digest sent", "week", week.Label(), "recipients", len(recipients), "simulated", simulate)

	if d.ledger != nil {
		if err := d.ledger.InsertDispatch(ctx, dispatch); err != nil {
			d.logger.Error("record dispatch failed", "id", dispatch.ID, "error", err)
		}
	}
	return dispatch, nil
}

// Build renders the digest message for ref without recipients.
func (d *Digest) Build(ctx context.Context, ref time.Time) (*mailer.Message, *report.Week, error) {
	week, err := report.BuildWeek(ctx, d.source, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("build week: %w", err)
	}

	var img bytes.Buffer
	if err := chart.WeekGrid(&img, week); err != nil {
		return nil, nil, fmt.Errorf("render chart: %w", err)
	}

	var html bytes.Buffer
	data := report.NewEmailData(week, d.opts.DashboardURL, d.opts.UnsubscribeURL, imageCID)
	if err := report.RenderEmail(&html, data); err != nil {
		return nil, nil, fmt.Errorf("render email: %w", err)
	}

	msg := &mailer.Message{
		From:    mail.Address{Name: senderName, Address: d.opts.SenderEmail},
		Subject: week.Subject(),
		HTML:    html.String(),
		Inline: []mailer.Inline{{
			ContentID:   imageCID,
			Filename:    imageFilename,
			ContentType: "image/png",
			Data:        img.Bytes(),
		}},
		Date: d.clock.Now(),
		ID:   uuid.New(),
	}
	return msg, week, nil
}
