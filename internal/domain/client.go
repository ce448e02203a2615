package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// taxIDPattern is the Montenegro PIB format: 8 to 13 digits.
var taxIDPattern = regexp.MustCompile(`^\d{8,13}$`)

// IsValidTaxID reports whether s is a well-formed PIB.
func IsValidTaxID(s string) bool { return taxIDPattern.MatchString(s) }

// ClientID is a value object for client identity.
type ClientID struct{ uuid.UUID }

// NewClientID creates a new ClientID from uuid.
func NewClientID(id uuid.UUID) ClientID { return ClientID{UUID: id} }

// String returns the canonical string form.
func (c ClientID) String() string { return c.UUID.String() }

// Client is an end-customer of an organization. (OrganizationID, TaxID) is
// unique; deletion is a soft deactivate, never a row removal.
type Client struct {
	ID                   ClientID
	OrganizationID       OrganizationID
	Name                 string
	TaxID                string
	AlternativeNames     []string
	Email                *string
	Phone                *string
	Address              *string
	City                 *string
	Industry             *string
	CompanySize          *string
	AssignedAccountantID *UserID
	PortalEnabled        bool
	IsActive             bool
	CreatedBy            UserID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ClientFilter narrows an organization-scoped client listing.
type ClientFilter struct {
	IsActive             *bool
	AssignedAccountantID *UserID
	City                 string
	Industry             string
	Search               string
	OrderBy              string
	OrderDirection       string
	Limit                int
	Offset               int
}

// ClientPage is one page of a client listing.
type ClientPage struct {
	Clients []*Client
	Count   int
	Page    int
	Limit   int
}

// Match types tagged onto search results.
const (
	MatchTaxIDExact = "tax_id_exact"
	MatchNameFuzzy  = "name_fuzzy"
)

// ClientMatch is a search hit with provenance and confidence.
type ClientMatch struct {
	Client
	MatchType  string
	Confidence float64
}
