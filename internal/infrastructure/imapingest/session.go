package imapingest

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// Session is one organization's IMAP connection. All methods are safe for
// concurrent use; the underlying protocol is serialized behind a mutex.
type Session struct {
	orgID domain.OrganizationID
	log   zerolog.Logger

	mu          sync.Mutex
	settings    *Settings
	client      *imapclient.Client
	conn        net.Conn
	connectedAt time.Time
}

// Status is the externally visible state of a session.
type Status struct {
	Configured  bool       `json:"configured"`
	Connected   bool       `json:"connected"`
	Host        string     `json:"host,omitempty"`
	User        string     `json:"user,omitempty"`
	Mailbox     string     `json:"mailbox,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// TestResult reports the stages reached by a connection test.
type TestResult struct {
	Connection bool   `json:"connection"`
	Mailbox    bool   `json:"mailbox"`
	Search     bool   `json:"search"`
	Error      string `json:"error,omitempty"`
}

func NewSession(orgID domain.OrganizationID, log zerolog.Logger) *Session {
	return &Session{
		orgID: orgID,
		log: log.With().
			Str("component", "imap_session").
			Str("organization_id", orgID.String()).
			Logger(),
	}
}

// Configure validates and stores settings, dropping any open connection so
// the next Connect uses the new credentials.
func (s *Session) Configure(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.settings = &settings
	return nil
}

// Connect dials and authenticates. Idempotent: an already open connection is
// kept as is.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked()
}

func (s *Session) connectLocked() error {
	if s.settings == nil {
		return apperr.Validation("email ingestion is not configured for this organization")
	}
	if s.client != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.settings.Host, s.settings.Port)
	dialer := &net.Dialer{Timeout: ConnectTimeout}
	var (
		conn net.Conn
		err  error
	)
	if s.settings.UseTLS() {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.settings.Host})
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to reach the IMAP server", err)
	}

	client := imapclient.New(conn, &imapclient.Options{})

	// The greeting and login get a much tighter deadline than the dial.
	_ = conn.SetDeadline(time.Now().Add(AuthTimeout))
	if err := client.Login(s.settings.User, s.settings.Password).Wait(); err != nil {
		_ = client.Close()
		return apperr.Wrap(apperr.KindAuthentication, "IMAP authentication failed", err)
	}
	_ = conn.SetDeadline(time.Time{})

	s.client = client
	s.conn = conn
	s.connectedAt = time.Now()
	s.log.Info().Str("host", s.settings.Host).Str("mailbox", s.settings.Mailbox).Msg("imap connected")
	return nil
}

// Disconnect logs out and closes the connection. Safe to call when already
// disconnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.client == nil {
		return
	}
	if err := s.client.Logout().Wait(); err != nil {
		_ = s.client.Close()
	}
	s.client = nil
	s.conn = nil
	s.connectedAt = time.Time{}
	s.log.Info().Msg("imap disconnected")
}

// Status reports configuration and connection state. The password is never
// included.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{}
	if s.settings != nil {
		st.Configured = true
		st.Host = s.settings.Host
		st.User = s.settings.User
		st.Mailbox = s.settings.Mailbox
	}
	if s.client != nil {
		st.Connected = true
		t := s.connectedAt
		st.ConnectedAt = &t
	}
	return st
}

// OpenMailbox selects the configured mailbox read-only and returns its
// message count.
func (s *Session) OpenMailbox() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openMailboxLocked()
}

func (s *Session) openMailboxLocked() (uint32, error) {
	if err := s.connectLocked(); err != nil {
		return 0, err
	}
	sel, err := s.client.Select(s.settings.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to open mailbox", err)
	}
	return sel.NumMessages, nil
}

// SearchEmailsWithAttachments returns UIDs of multipart messages received
// since the given time. Multipart is a cheap server-side pre-filter; the
// real attachment check happens on fetch. The mailbox is selected and
// searched under one lock so a concurrent Disconnect cannot tear the
// connection down in between.
func (s *Session) SearchEmailsWithAttachments(since time.Time) ([]imap.UID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.openMailboxLocked(); err != nil {
		return nil, err
	}
	criteria := &imap.SearchCriteria{
		Since: since,
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "Content-Type", Value: "multipart"},
		},
	}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "mailbox search failed", err)
	}
	return data.AllUIDs(), nil
}

// FetchEmail downloads one message and extracts its attachment metadata.
// Attachment bodies are sized, not stored.
func (s *Session) FetchEmail(uid imap.UID) (*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, apperr.Validation("not connected")
	}
	bodySection := &imap.FetchItemBodySection{}
	msgs, err := s.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}).Collect()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "message fetch failed", err)
	}
	if len(msgs) == 0 {
		return nil, apperr.NotFound("message not found")
	}

	buf := msgs[0]
	email := &Email{UID: uint32(uid)}
	if env := buf.Envelope; env != nil {
		email.Subject = env.Subject
		email.Date = env.Date
		if len(env.From) > 0 {
			email.From = env.From[0].Addr()
		}
		for _, addr := range env.To {
			email.To = append(email.To, addr.Addr())
		}
	}

	body := buf.FindBodySection(bodySection)
	if body == nil {
		return email, nil
	}
	parseBody(body, email, s.log)
	return email, nil
}

func parseBody(body []byte, email *Email, log zerolog.Logger) {
	mr, err := mail.CreateReader(bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("unparseable message body")
		return
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed message part")
			break
		}
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ctype, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			switch ctype {
			case "text/plain":
				email.Text = string(b)
			case "text/html":
				email.HTML = string(b)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ctype, _, _ := h.ContentType()
			size, _ := io.Copy(io.Discard, p.Body)
			email.Attachments = append(email.Attachments, Attachment{Filename: filename, ContentType: ctype, Size: size})
		}
	}
}

// ProcessNewEmails fetches messages received since the given time and
// returns those carrying at least one attachment of an allowed type.
// A message that fails to fetch is logged and skipped, never fatal.
func (s *Session) ProcessNewEmails(since time.Time, allowedExtensions []string) ([]Email, error) {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}
	uids, err := s.SearchEmailsWithAttachments(since)
	if err != nil {
		return nil, err
	}

	var out []Email
	for _, uid := range uids {
		email, err := s.FetchEmail(uid)
		if err != nil {
			s.log.Warn().Err(err).Uint32("uid", uint32(uid)).Msg("skipping message")
			continue
		}
		email.Attachments = FilterAttachments(email.Attachments, allowedExtensions)
		if len(email.Attachments) == 0 {
			continue
		}
		out = append(out, *email)
	}
	s.log.Info().
		Int("searched", len(uids)).
		Int("with_attachments", len(out)).
		Msg("processed new emails")
	return out, nil
}

// TestConnection runs the connect, mailbox and search stages against the
// given settings without touching the session's own connection state.
func TestConnection(orgID domain.OrganizationID, settings Settings, log zerolog.Logger) TestResult {
	res := TestResult{}
	probe := NewSession(orgID, log)
	if err := probe.Configure(settings); err != nil {
		res.Error = err.Error()
		return res
	}
	defer probe.Disconnect()

	if err := probe.Connect(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Connection = true

	if _, err := probe.OpenMailbox(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Mailbox = true

	if _, err := probe.SearchEmailsWithAttachments(time.Now().AddDate(0, 0, -30)); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Search = true
	return res
}
