package usage

import (
	"testing"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
)

func TestSeatCostRecordsDefault(t *testing.T) {
	snap := snapshotdomain.VendorSnapshot{
		Vendor: snapshotdomain.VendorCursor,
		Members: []snapshotdomain.MemberSnapshot{
			{VendorEmail: strptr("a@x.com")},
			{VendorEmail: strptr("b@x.com")},
		},
	}

	records := SeatCostRecords(snap)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.SpendCents != 4000 {
			t.Fatalf("expected default seat cost 4000, got %d", r.SpendCents)
		}
		if r.SourceType != domain.SourceSeat {
			t.Fatalf("expected seat source, got %q", r.SourceType)
		}
		if r.Confidence != domain.ConfidenceHigh {
			t.Fatalf("expected high confidence, got %q", r.Confidence)
		}
	}
}

func TestSeatCostRecordsMemberOverride(t *testing.T) {
	override := int64(10000)
	snap := snapshotdomain.VendorSnapshot{
		Vendor: snapshotdomain.VendorClaude,
		Members: []snapshotdomain.MemberSnapshot{
			{VendorEmail: strptr("standard@x.com")},
			{VendorEmail: strptr("premium@x.com"), SeatCostCents: &override},
		},
	}

	records := SeatCostRecords(snap)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SpendCents != 2500 {
		t.Fatalf("expected default 2500, got %d", records[0].SpendCents)
	}
	if records[1].SpendCents != 10000 {
		t.Fatalf("expected override 10000, got %d", records[1].SpendCents)
	}
}

func TestSeatCostRecordsNoSeatPricing(t *testing.T) {
	snap := snapshotdomain.VendorSnapshot{
		Vendor: snapshotdomain.VendorOpenAI,
		Members: []snapshotdomain.MemberSnapshot{
			{VendorEmail: strptr("a@x.com")},
		},
	}

	if records := SeatCostRecords(snap); len(records) != 0 {
		t.Fatalf("expected no records for usage-only vendor, got %d", len(records))
	}
}
