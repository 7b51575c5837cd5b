package mailer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	smtpmocklib "github.com/mocktools/go-smtp-mock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func startMock(t *testing.T) *smtpmocklib.Server {
	t.Helper()
	srv := smtpmocklib.New(smtpmocklib.ConfigurationAttr{
		LogToStdout:       false,
		LogServerActivity: true,
		HostAddress:       "127.0.0.1",
		MultipleRcptto:    true,
	})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func TestSend(t *testing.T) {
	srv := startMock(t)
	m := New(Config{Host: "127.0.0.1", Port: srv.PortNumber()}, discard)

	msg := testMessage()
	require.NoError(t, m.Send(context.Background(), msg))

	require.Eventually(t, func() bool { return len(srv.Messages()) == 1 }, 5*time.Second, 10*time.Millisecond)
	got := srv.Messages()[0]
	assert.Len(t, got.RcpttoRequestResponse(), 2)
	assert.Contains(t, got.MsgRequest(), "Subject: Eindhoven Weather Report - Week 01 of 2024")
	assert.Contains(t, got.MsgRequest(), "Content-Type: multipart/related")
	assert.Contains(t, got.MsgRequest(), "Content-Id: <weather-report>")
}

func TestSendErrors(t *testing.T) {
	srv := startMock(t)

	tests := []struct {
		name    string
		cfg     Config
		msg     func() *Message
		wantErr error
	}{
		{
			name:    "no recipients",
			cfg:     Config{Host: "127.0.0.1", Port: srv.PortNumber()},
			msg:     func() *Message { m := testMessage(); m.To = nil; return m },
			wantErr: ErrNoRecipients,
		},
		{
			name:    "tls required",
			cfg:     Config{Host: "127.0.0.1", Port: srv.PortNumber(), RequireTLS: true},
			msg:     testMessage,
			wantErr: ErrTLSUnavailable,
		},
		{
			name:    "auth unavailable",
			cfg:     Config{Host: "127.0.0.1", Port: srv.PortNumber(), Username: "u", Password: "p"},
			msg:     testMessage,
			wantErr: ErrAuthUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.cfg, discard).Send(context.Background(), tt.msg())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSendCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(Config{Host: "127.0.0.1", Port: 1}, discard).Send(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendDialError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	err = New(Config{Host: "127.0.0.1", Port: port}, discard).Send(context.Background(), testMessage())
	assert.Error(t, err)
}

// authBackend is a go-smtp server backend that offers PLAIN auth.
type authBackend struct {
	mu       sync.Mutex
	username string
	password string
	authTLS  bool
	from     string
	rcpts    []string
	data     []byte
	dataTLS  bool
}

func (b *authBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &authSession{b: b, conn: c}, nil
}

type authSession struct {
	b      *authBackend
	conn   *smtp.Conn
	authed bool
}

func (s *authSession) isTLS() bool {
	_, ok := s.conn.TLSConnectionState()
	return ok
}

func (s *authSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *authSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		s.b.username, s.b.password = username, password
		s.b.authTLS = s.isTLS()
		if password != "hunter2" {
			return errors.New("invalid credentials")
		}
		s.authed = true
		return nil
	}), nil
}

func (s *authSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return smtp.ErrAuthRequired
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.from = from
	return nil
}

func (s *authSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.rcpts = append(s.b.rcpts, to)
	return nil
}

func (s *authSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.data = data
	s.b.dataTLS = s.isTLS()
	return nil
}

func (s *authSession) Reset() {}

func (s *authSession) Logout() error { return nil }

// startAuthServer serves be on a loopback port. With tlsCfg set the server
// offers STARTTLS and only accepts AUTH after the upgrade.
func startAuthServer(t *testing.T, be *authBackend, tlsCfg *tls.Config) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.TLSConfig = tlsCfg
	srv.AllowInsecureAuth = tlsCfg == nil
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return n
}

func TestSendWithAuth(t *testing.T) {
	be := &authBackend{}
	port := startAuthServer(t, be, nil)

	cfg := Config{Host: "127.0.0.1", Port: port, Username: "reports@example.com", Password: "hunter2"}
	require.NoError(t, New(cfg, discard).Send(context.Background(), testMessage()))

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, "reports@example.com", be.username)
	assert.Equal(t, "reports@example.com", be.from)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, be.rcpts)
	assert.Contains(t, string(be.data), "Content-Id: <weather-report>")
}

func TestSendWithBadPassword(t *testing.T) {
	be := &authBackend{}
	port := startAuthServer(t, be, nil)

	cfg := Config{Host: "127.0.0.1", Port: port, Username: "reports@example.com", Password: "wrong"}
	err := New(cfg, discard).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth")
}

// selfSignedTLS returns a server config for 127.0.0.1 and a pool that
// trusts it.
func selfSignedTLS(t *testing.T) (*tls.Config, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "smtp test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}},
		MinVersion:   tls.VersionTLS12,
	}, pool
}

func TestSendStartTLS(t *testing.T) {
	serverTLS, roots := selfSignedTLS(t)

	tests := []struct {
		name       string
		requireTLS bool
	}{
		{name: "required", requireTLS: true},
		{name: "opportunistic", requireTLS: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &authBackend{}
			port := startAuthServer(t, be, serverTLS)

			cfg := Config{
				Host:       "127.0.0.1",
				Port:       port,
				Username:   "reports@example.com",
				Password:   "hunter2",
				RequireTLS: tt.requireTLS,
				TLSConfig:  &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12},
			}
			require.NoError(t, New(cfg, discard).Send(context.Background(), testMessage()))

			be.mu.Lock()
			defer be.mu.Unlock()
			assert.True(t, be.authTLS, "PLAIN auth must run after the TLS upgrade")
			assert.True(t, be.dataTLS, "message must be sent over TLS")
			assert.Equal(t, "reports@example.com", be.username)
			assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, be.rcpts)
			assert.Contains(t, string(be.data), "Content-Id: <weather-report>")
		})
	}
}

func TestSendStartTLSUntrustedCert(t *testing.T) {
	serverTLS, _ := selfSignedTLS(t)
	port := startAuthServer(t, &authBackend{}, serverTLS)

	cfg := Config{Host: "127.0.0.1", Port: port, Username: "u", Password: "hunter2", RequireTLS: true}
	err := New(cfg, discard).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starttls")
}
