package imapingest

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/domain"
)

// Manager holds one Session per organization. Sessions are created lazily
// and live until DisconnectAll or an explicit per-org disconnect.
type Manager struct {
	mu       sync.Mutex
	sessions map[domain.OrganizationID]*Session
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[domain.OrganizationID]*Session),
		log:      log,
	}
}

// Session returns the organization's session, creating it if needed.
func (m *Manager) Session(orgID domain.OrganizationID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orgID]
	if !ok {
		s = NewSession(orgID, m.log)
		m.sessions[orgID] = s
	}
	return s
}

// Disconnect closes and forgets the organization's session if one exists.
func (m *Manager) Disconnect(orgID domain.OrganizationID) {
	m.mu.Lock()
	s, ok := m.sessions[orgID]
	if ok {
		delete(m.sessions, orgID)
	}
	m.mu.Unlock()
	if ok {
		s.Disconnect()
	}
}

// DisconnectAll closes every open session. Called on shutdown.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[domain.OrganizationID]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Disconnect()
	}
}
