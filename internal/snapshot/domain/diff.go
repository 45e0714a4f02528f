package domain

// ComputeDiff compares a vendor's current snapshot against a base snapshot
// (normally yesterday's final state) and returns per-member deltas.
//
// A drop in cumulative spend is interpreted as a billing-cycle reset: the
// current cumulative value becomes the full delta. This heuristic cannot
// distinguish a genuine reset from a vendor-side correction; both are
// treated identically. Members with a delta of exactly zero are omitted.
func ComputeDiff(current, base VendorSnapshot) SnapshotDiff {
	baseByKey := make(map[string]MemberSnapshot, len(base.Members))
	for _, m := range base.Members {
		baseByKey[m.Key()] = m
	}

	diff := SnapshotDiff{Vendor: current.Vendor}

	for _, curr := range current.Members {
		prev, ok := baseByKey[curr.Key()]
		if !ok {
			// Absent from the base: the full cumulative value is the
			// day's delta, reported as a new member instead.
			diff.NewMembers = append(diff.NewMembers, curr)
			continue
		}

		deltaSpend, reset := deltaWithReset(curr.SpendCents, prev.SpendCents)
		if deltaSpend == 0 {
			continue
		}

		// Token deltas follow the same reset rule, applied to the token
		// counter independently of spend, and only when both sides
		// report tokens; missing data is not zero usage.
		var deltaTokens *int64
		if curr.Tokens != nil && prev.Tokens != nil {
			d, _ := deltaWithReset(*curr.Tokens, *prev.Tokens)
			deltaTokens = &d
		}

		diff.Deltas = append(diff.Deltas, MemberDelta{
			VendorEmail:     curr.VendorEmail,
			VendorUsername:  curr.VendorUsername,
			DeltaSpendCents: deltaSpend,
			DeltaTokens:     deltaTokens,
			BillingReset:    reset,
		})
	}

	if current.VendorTotalCents != nil && base.VendorTotalCents != nil {
		d, _ := deltaWithReset(*current.VendorTotalCents, *base.VendorTotalCents)
		diff.VendorTotalDeltaCents = &d
	}

	return diff
}

// deltaWithReset returns current-previous, or current itself when the
// cumulative counter went backwards (new billing cycle). The result is
// never negative.
func deltaWithReset(current, previous int64) (int64, bool) {
	if current < previous {
		return current, true
	}
	return current - previous, false
}
