// Package domain contains the vendor snapshot types and the pure diff logic.
package domain

import "strings"

// Vendor identifies a supported usage provider.
type Vendor string

const (
	VendorCursor  Vendor = "cursor"
	VendorClaude  Vendor = "claude"
	VendorCopilot Vendor = "copilot"
	VendorKiro    Vendor = "kiro"
	VendorReplit  Vendor = "replit"
	VendorOpenAI  Vendor = "openai"
)

// AllVendors lists every supported vendor.
var AllVendors = []Vendor{
	VendorCursor,
	VendorClaude,
	VendorCopilot,
	VendorKiro,
	VendorReplit,
	VendorOpenAI,
}

// ParseVendor validates a vendor name.
func ParseVendor(value string) (Vendor, bool) {
	v := Vendor(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AllVendors {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// IsAPIVendor reports whether the vendor has a programmatic snapshot fetch.
// The remaining vendors require an out-of-band capture step (scraper or
// manual entry) and are synced serially outside the scheduled batch.
func (v Vendor) IsAPIVendor() bool {
	switch v {
	case VendorCursor, VendorCopilot, VendorOpenAI:
		return true
	}
	return false
}

// MemberSnapshot is one vendor's view of one person's cumulative state at
// capture time. SpendCents and Tokens are cumulative within the vendor's
// current billing cycle, not incremental.
type MemberSnapshot struct {
	VendorEmail    *string `json:"vendorEmail"`
	VendorUsername *string `json:"vendorUsername"`
	SpendCents     int64   `json:"spendCents"`
	Tokens         *int64  `json:"tokens"`

	// SeatCostCents overrides the vendor's default per-seat subscription
	// cost for this member (e.g. a premium tier). Informational for
	// diffing; consumed by the seat-cost writer.
	SeatCostCents *int64 `json:"seatCostCents,omitempty"`
}

// Key returns the identity used to match members between snapshots:
// lowercased trimmed email, else lowercased trimmed username, else "unknown".
// This is a best-effort string match. A member reported by email in one
// snapshot and by username in the other is treated as two unrelated people.
func (m MemberSnapshot) Key() string {
	if m.VendorEmail != nil {
		if v := strings.ToLower(strings.TrimSpace(*m.VendorEmail)); v != "" {
			return v
		}
	}
	if m.VendorUsername != nil {
		if v := strings.ToLower(strings.TrimSpace(*m.VendorUsername)); v != "" {
			return v
		}
	}
	return "unknown"
}

// VendorSnapshot is a vendor's full cumulative state at capture time.
type VendorSnapshot struct {
	Vendor  Vendor           `json:"vendor"`
	Members []MemberSnapshot `json:"members"`

	// VendorTotalCents is set only for pool-billed vendors (e.g. Replit),
	// where spend is reported at the team level without reliable
	// per-member attribution.
	VendorTotalCents *int64 `json:"vendorTotalCents,omitempty"`
}

// MemberDelta is the incremental change for one member between the current
// snapshot and the diff base.
type MemberDelta struct {
	VendorEmail    *string `json:"vendorEmail"`
	VendorUsername *string `json:"vendorUsername"`
	DeltaSpendCents int64  `json:"deltaSpendCents"`
	DeltaTokens     *int64 `json:"deltaTokens"`
	BillingReset    bool   `json:"billingReset"`
}

// SnapshotDiff is the result of comparing two snapshots of one vendor.
type SnapshotDiff struct {
	Vendor     Vendor           `json:"vendor"`
	Deltas     []MemberDelta    `json:"deltas"`
	NewMembers []MemberSnapshot `json:"newMembers"`

	// VendorTotalDeltaCents is set when both snapshots carry a pool total.
	VendorTotalDeltaCents *int64 `json:"vendorTotalDeltaCents,omitempty"`
}
