package domain

import "fmt"

// QuotaKind identifies a per-organization resource ceiling.
type QuotaKind string

const (
	QuotaClients   QuotaKind = "clients"
	QuotaDocuments QuotaKind = "documents"
	QuotaStorage   QuotaKind = "storage"
)

// IsValidQuotaKind reports whether k names a known quota.
func IsValidQuotaKind(k QuotaKind) bool {
	switch k {
	case QuotaClients, QuotaDocuments, QuotaStorage:
		return true
	}
	return false
}

// WarningThreshold is the utilization ratio at which a quota is advisory-flagged.
const WarningThreshold = 0.8

// QuotaUsage is the snapshot returned by the stored aggregation function.
// It is derived on demand and never cached.
type QuotaUsage struct {
	CurrentClients            int64
	MaxClients                int64
	CurrentDocumentsThisMonth int64
	MaxDocumentsPerMonth      int64
	CurrentStorageMB          float64
	MaxStorageMB              float64
	SubscriptionTier          string
	SubscriptionStatus        string
}

// QuotaInfo is the per-kind view of a usage snapshot, as surfaced in
// quota-exceeded responses.
type QuotaInfo struct {
	Type      string  `json:"type"`
	Current   float64 `json:"current"`
	Max       float64 `json:"max"`
	Remaining float64 `json:"remaining"`
	Period    string  `json:"period,omitempty"`
	Unit      string  `json:"unit,omitempty"`
}

// Exceeded applies the per-kind decision rule: current >= max for every
// generic check. The projected-upload check uses a strict > instead; see
// ExceededByUpload. The two policies are intentionally distinct.
func (u QuotaUsage) Exceeded(kind QuotaKind) bool {
	switch kind {
	case QuotaClients:
		return u.CurrentClients >= u.MaxClients
	case QuotaDocuments:
		return u.CurrentDocumentsThisMonth >= u.MaxDocumentsPerMonth
	case QuotaStorage:
		return u.CurrentStorageMB >= u.MaxStorageMB
	}
	return false
}

// ExceededByUpload reports whether adding fileSizeMB would push storage past
// the ceiling. Strict inequality: filling storage exactly to the limit is
// still allowed here.
func (u QuotaUsage) ExceededByUpload(fileSizeMB float64) bool {
	return u.CurrentStorageMB+fileSizeMB > u.MaxStorageMB
}

// Info returns the per-kind quota view for kind.
func (u QuotaUsage) Info(kind QuotaKind) QuotaInfo {
	switch kind {
	case QuotaClients:
		return QuotaInfo{
			Type:      string(QuotaClients),
			Current:   float64(u.CurrentClients),
			Max:       float64(u.MaxClients),
			Remaining: float64(u.MaxClients - u.CurrentClients),
		}
	case QuotaDocuments:
		return QuotaInfo{
			Type:      string(QuotaDocuments),
			Current:   float64(u.CurrentDocumentsThisMonth),
			Max:       float64(u.MaxDocumentsPerMonth),
			Remaining: float64(u.MaxDocumentsPerMonth - u.CurrentDocumentsThisMonth),
			Period:    "monthly",
		}
	case QuotaStorage:
		return QuotaInfo{
			Type:      string(QuotaStorage),
			Current:   u.CurrentStorageMB,
			Max:       u.MaxStorageMB,
			Remaining: u.MaxStorageMB - u.CurrentStorageMB,
			Unit:      "MB",
		}
	}
	return QuotaInfo{}
}

// Warnings lists human-readable entries for every quota at or above the
// warning threshold. Quotas with a non-positive ceiling are skipped.
func (u QuotaUsage) Warnings() []string {
	var warnings []string
	if u.MaxClients > 0 && float64(u.CurrentClients)/float64(u.MaxClients) >= WarningThreshold {
		warnings = append(warnings, fmt.Sprintf("Clients: %d/%d", u.CurrentClients, u.MaxClients))
	}
	if u.MaxDocumentsPerMonth > 0 && float64(u.CurrentDocumentsThisMonth)/float64(u.MaxDocumentsPerMonth) >= WarningThreshold {
		warnings = append(warnings, fmt.Sprintf("Documents: %d/%d", u.CurrentDocumentsThisMonth, u.MaxDocumentsPerMonth))
	}
	if u.MaxStorageMB > 0 && u.CurrentStorageMB/u.MaxStorageMB >= WarningThreshold {
		warnings = append(warnings, fmt.Sprintf("Storage: %.0f/%.0f MB", u.CurrentStorageMB, u.MaxStorageMB))
	}
	return warnings
}
