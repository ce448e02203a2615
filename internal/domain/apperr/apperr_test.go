package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindWireNames(t *testing.T) {
	cases := map[Kind]string{
		KindInternal:      "internal_error",
		KindValidation:    "validation_error",
		KindAuthentication: "authentication_error",
		KindAuthorization: "authorization_error",
		KindNotFound:      "not_found",
		KindConflict:      "conflict",
		KindQuotaExceeded: "quota_exceeded",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestKindOf(t *testing.T) {
	err := NotFound("client not found")
	assert.Equal(t, KindNotFound, KindOf(err))

	wrapped := fmt.Errorf("create membership: %w", Conflict("duplicate"))
	assert.Equal(t, KindConflict, KindOf(wrapped))

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, "failed to reach the IMAP server", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to reach the IMAP server", err.Error())
}

func TestDetailsOf(t *testing.T) {
	err := Validation("invalid role").WithDetails(map[string]any{"valid_roles": []string{"viewer"}})
	details, ok := DetailsOf(err).(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, details, "valid_roles")

	assert.Nil(t, DetailsOf(errors.New("plain")))
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(QuotaExceeded("limit reached"), KindQuotaExceeded))
	assert.False(t, IsKind(QuotaExceeded("limit reached"), KindConflict))
}
