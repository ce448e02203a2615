package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaExceededUsesAtOrAbove(t *testing.T) {
	u := QuotaUsage{CurrentClients: 10, MaxClients: 10}
	assert.True(t, u.Exceeded(QuotaClients), "at the ceiling counts as exceeded")

	u.CurrentClients = 9
	assert.False(t, u.Exceeded(QuotaClients))

	u.CurrentClients = 11
	assert.True(t, u.Exceeded(QuotaClients))
}

func TestQuotaExceededByUploadIsStrict(t *testing.T) {
	u := QuotaUsage{CurrentStorageMB: 90, MaxStorageMB: 100}

	assert.False(t, u.ExceededByUpload(10), "filling storage exactly to the limit is allowed")
	assert.True(t, u.ExceededByUpload(10.1))
	assert.False(t, u.ExceededByUpload(0))
}

func TestQuotaWarningsThreshold(t *testing.T) {
	u := QuotaUsage{
		CurrentClients:            8,
		MaxClients:                10,
		CurrentDocumentsThisMonth: 79,
		MaxDocumentsPerMonth:      100,
		CurrentStorageMB:          80,
		MaxStorageMB:              100,
	}
	warnings := u.Warnings()
	assert.Len(t, warnings, 2)
	assert.Contains(t, warnings, "Clients: 8/10")
	assert.Contains(t, warnings, "Storage: 80/100 MB")
}

func TestQuotaWarningsSkipUnlimited(t *testing.T) {
	u := QuotaUsage{CurrentClients: 500, MaxClients: 0}
	assert.Empty(t, u.Warnings())
}

func TestQuotaInfo(t *testing.T) {
	u := QuotaUsage{
		CurrentDocumentsThisMonth: 30,
		MaxDocumentsPerMonth:      100,
		CurrentStorageMB:          12.5,
		MaxStorageMB:              100,
	}

	docs := u.Info(QuotaDocuments)
	assert.Equal(t, "documents", docs.Type)
	assert.Equal(t, float64(70), docs.Remaining)
	assert.Equal(t, "monthly", docs.Period)

	storage := u.Info(QuotaStorage)
	assert.Equal(t, "MB", storage.Unit)
	assert.Equal(t, 87.5, storage.Remaining)
}

func TestIsValidTaxID(t *testing.T) {
	valid := []string{"12345678", "1234567890123"}
	for _, s := range valid {
		assert.True(t, IsValidTaxID(s), s)
	}
	invalid := []string{"", "1234567", "12345678901234", "12345abc", "12 345678", "-12345678"}
	for _, s := range invalid {
		assert.False(t, IsValidTaxID(s), s)
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		assert.True(t, IsValidRole(r))
	}
	assert.False(t, IsValidRole(RoleSuperAdmin), "super_admin is never assignable")
	assert.False(t, IsValidRole("owner"))
}
