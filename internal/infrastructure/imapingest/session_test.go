package imapingest

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

func testSession() *Session {
	return NewSession(domain.NewOrganizationID(uuid.New()), zerolog.Nop())
}

func TestSessionSearchRequiresConfiguration(t *testing.T) {
	s := testSession()
	_, err := s.SearchEmailsWithAttachments(time.Now().AddDate(0, 0, -7))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSessionFetchRequiresConnection(t *testing.T) {
	s := testSession()
	_, err := s.FetchEmail(1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSessionDisconnectIsIdempotent(t *testing.T) {
	s := testSession()
	s.Disconnect()
	s.Disconnect()
	assert.False(t, s.Status().Connected)
}

// Search and Disconnect racing on the same session must error out, not
// panic on a torn-down client.
func TestSessionSearchRacesDisconnect(t *testing.T) {
	s := testSession()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.SearchEmailsWithAttachments(time.Now())
			assert.Error(t, err)
		}()
		go func() {
			defer wg.Done()
			s.Disconnect()
		}()
	}
	wg.Wait()
}
