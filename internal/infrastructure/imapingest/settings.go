package imapingest

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/petar554/fakturo/internal/domain/apperr"
)

// DefaultAllowedExtensions are the attachment types forwarded to ingestion.
var DefaultAllowedExtensions = []string{"pdf", "docx", "xml"}

// Connection handshake ceilings. Auth is kept much shorter than dial so a
// stalled greeting fails fast once the socket is up.
const (
	ConnectTimeout = 60 * time.Second
	AuthTimeout    = 5 * time.Second
)

var validate = validator.New()

// Settings is a per-organization IMAP mailbox configuration.
type Settings struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	User     string `json:"user" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Mailbox  string `json:"mailbox"`
	TLS      *bool  `json:"tls"`
}

// Validate checks the settings and applies defaults (INBOX, TLS on).
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
		}
		return apperr.Validation("invalid email ingestion settings").WithDetails(map[string]any{
			"invalid_fields": fields,
		})
	}
	if s.Mailbox == "" {
		s.Mailbox = "INBOX"
	}
	if s.TLS == nil {
		t := true
		s.TLS = &t
	}
	return nil
}

// UseTLS reports the effective TLS setting.
func (s *Settings) UseTLS() bool { return s.TLS == nil || *s.TLS }

// Attachment describes one attachment of a fetched email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Email is a fetched message with its attachments.
type Email struct {
	UID         uint32       `json:"uid"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          []string     `json:"to,omitempty"`
	Date        time.Time    `json:"date"`
	Text        string       `json:"text,omitempty"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// FilterAttachments keeps attachments whose filename extension is in
// allowed, preserving order. Comparison is case-insensitive.
func FilterAttachments(atts []Attachment, allowed []string) []Attachment {
	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(ext)] = true
	}
	var out []Attachment
	for _, a := range atts {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(a.Filename), "."))
		if set[ext] {
			out = append(out, a)
		}
	}
	return out
}
