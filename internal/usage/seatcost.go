package usage

import (
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
)

// SeatCost is a vendor's per-seat subscription pricing.
type SeatCost struct {
	// DefaultCents is the standard per-seat cost; nil means the vendor is
	// pure usage-based with no seat fee.
	DefaultCents *int64
	// Tiers maps a plan name to its per-seat cost for vendors with
	// multiple subscription tiers. Fetchers use it to stamp per-member
	// SeatCostCents overrides on the snapshot.
	Tiers map[string]int64
}

func cents(v int64) *int64 { return &v }

// VendorSeatCosts holds the per-vendor seat pricing used for the monthly
// seat-cost records.
var VendorSeatCosts = map[snapshotdomain.Vendor]SeatCost{
	snapshotdomain.VendorCursor:  {DefaultCents: cents(4000)},
	snapshotdomain.VendorCopilot: {DefaultCents: cents(3900), Tiers: map[string]int64{"enterprise": 3900, "business": 1900}},
	snapshotdomain.VendorOpenAI:  {},
	snapshotdomain.VendorClaude:  {DefaultCents: cents(2500), Tiers: map[string]int64{"standard": 2500, "premium": 10000}},
	snapshotdomain.VendorReplit:  {DefaultCents: cents(2500)},
}

// SeatCostRecords produces one seat-cost record per snapshot member: the
// member's SeatCostCents override when present, else the vendor default.
// Vendors without seat pricing produce no records.
func SeatCostRecords(snap snapshotdomain.VendorSnapshot) []domain.DailyRecord {
	pricing := VendorSeatCosts[snap.Vendor]

	var records []domain.DailyRecord
	for _, m := range snap.Members {
		cost := pricing.DefaultCents
		if m.SeatCostCents != nil {
			cost = m.SeatCostCents
		}
		if cost == nil || *cost <= 0 {
			continue
		}
		records = append(records, domain.DailyRecord{
			Vendor:         snap.Vendor,
			VendorEmail:    m.VendorEmail,
			VendorUsername: m.VendorUsername,
			SpendCents:     *cost,
			Confidence:     domain.ConfidenceHigh,
			SourceType:     domain.SourceSeat,
		})
	}
	return records
}
