package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	smtpmocklib "github.com/mocktools/go-smtp-mock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafc98/temperature-logger/internal/mailer"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/types"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSubscribers struct {
	list []string
	err  error
}

func (f *fakeSubscribers) Subscribers(context.Context, string) ([]string, error) {
	return f.list, f.err
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []*mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeLedger struct {
	dispatches []types.Dispatch
	err        error
}

func (f *fakeLedger) InsertDispatch(_ context.Context, d types.Dispatch) error {
	f.dispatches = append(f.dispatches, d)
	return f.err
}

// writeWeekLog writes one dual-sensor line every six hours from Jan 1 to
// Jan 7 2024.
func writeWeekLog(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 7*24; h += 6 {
		ts := start.Add(time.Duration(h) * time.Hour)
		fmt.Fprintf(&sb, "%s\t21.0\t50.0\t1.01\t20.0\t\t4.0\t85.0\t1.02\n", ts.Format("Mon Jan 02 15:04:05 2006"))
	}
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func newTestDigest(t *testing.T, subs *fakeSubscribers, sender Sender, ledger Ledger) (*Digest, *quartz.Mock) {
	t.Helper()
	clk := quartz.NewMock(t)
	clk.Set(time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC))
	opts := Options{
		SheetID:        "sheet",
		SenderEmail:    "reports@example.com",
		ReceiverEmail:  "tester@example.com",
		DashboardURL:   "https://home.example/",
		UnsubscribeURL: "https://forms.example/",
	}
	scanner := sensorlog.NewScanner(writeWeekLog(t), time.UTC)
	return New(opts, subs, scanner, sender, ledger, clk, discard), clk
}

func TestDigestSend(t *testing.T) {
	sender := &fakeSender{}
	ledger := &fakeLedger{}
	d, _ := newTestDigest(t, &fakeSubscribers{list: []string{"alice@example.com", "bob@example.com"}}, sender, ledger)

	ref := time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)
	dispatch, err := d.Send(context.Background(), ref, false)
	require.NoError(t, err)

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, msg.To)
	assert.Equal(t, "Eindhoven Weather Report - Week 01 of 2024", msg.Subject)
	assert.Equal(t, "Weekly Reports", msg.From.Name)
	assert.Equal(t, "reports@example.com", msg.From.Address)
	assert.Contains(t, msg.HTML, `src="cid:weather-report"`)
	assert.Contains(t, msg.HTML, "<td>Mon, 01-01-2024</td><td>21.00</td><td>50.0</td><td>1.010</td><td>4.00</td>")
	require.Len(t, msg.Inline, 1)
	assert.Equal(t, []byte("\x89PNG"), msg.Inline[0].Data[:4])

	assert.Equal(t, msg.ID.String(), dispatch.ID)
	assert.Equal(t, 2024, dispatch.ISOYear)
	assert.Equal(t, 1, dispatch.ISOWeek)
	assert.Equal(t, 2, dispatch.Recipients)
	assert.False(t, dispatch.Simulated)
	assert.True(t, dispatch.WindowFrom.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, dispatch.WindowTo.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)))
	require.Len(t, ledger.dispatches, 1)
	assert.Equal(t, dispatch, ledger.dispatches[0])
}

func TestDigestSend_simulate(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newTestDigest(t, &fakeSubscribers{list: []string{"alice@example.com"}}, sender, nil)

	dispatch, err := d.Send(context.Background(), time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, []string{"tester@example.com"}, sender.msgs[0].To)
	assert.True(t, dispatch.Simulated)
}

func TestDigestSend_errors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		subs     *fakeSubscribers
		sender   *fakeSender
		receiver string
		simulate bool
		wantErr  error
	}{
		{name: "subscriber fetch fails", subs: &fakeSubscribers{err: boom}, sender: &fakeSender{}, wantErr: boom},
		{name: "no subscribers", subs: &fakeSubscribers{}, sender: &fakeSender{}, wantErr: mailer.ErrNoRecipients},
		{name: "send fails", subs: &fakeSubscribers{list: []string{"a@example.com"}}, sender: &fakeSender{err: boom}, wantErr: boom},
		{name: "simulate without receiver", subs: &fakeSubscribers{}, sender: &fakeSender{}, receiver: "-", simulate: true, wantErr: ErrNoReceiver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{}
			d, _ := newTestDigest(t, tt.subs, tt.sender, ledger)
			if tt.receiver == "-" {
				d.opts.ReceiverEmail = ""
			}
			_, err := d.Send(context.Background(), time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC), tt.simulate)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, ledger.dispatches)
		})
	}
}

func TestDigestSend_ledgerFailureIsNotFatal(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newTestDigest(t, &fakeSubscribers{list: []string{"alice@example.com"}}, sender, &fakeLedger{err: errors.New("disk full")})

	_, err := d.Send(context.Background(), time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Len(t, sender.msgs, 1)
}

func TestDigestSend_overSMTP(t *testing.T) {
	srv := smtpmocklib.New(smtpmocklib.ConfigurationAttr{
		LogToStdout:       false,
		LogServerActivity: true,
		HostAddress:       "127.0.0.1",
		MultipleRcptto:    true,
	})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	m := mailer.New(mailer.Config{Host: "127.0.0.1", Port: srv.PortNumber()}, discard)
	d, _ := newTestDigest(t, &fakeSubscribers{list: []string{"alice@example.com"}}, m, nil)

	_, err := d.Send(context.Background(), time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(srv.Messages()) == 1 }, 5*time.Second, 10*time.Millisecond)
	body := srv.Messages()[0].MsgRequest()
	assert.Contains(t, body, "Subject: Eindhoven Weather Report - Week 01 of 2024")
	assert.Contains(t, body, "Content-Id: <weather-report>")
}
