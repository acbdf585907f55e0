package membership

import (
	"testing"
	"time"
)

func TestTierPricing(t *testing.T) {
	cases := []struct {
		tier  Tier
		price int64
	}{
		{TierBronze, 50000},
		{TierSilver, 100000},
		{TierGold, 150000},
		{Tier("platinum"), 0},
	}
	for _, tc := range cases {
		if got := tc.tier.Price(); got != tc.price {
			t.Fatalf("%s: expected price %d, got %d", tc.tier, tc.price, got)
		}
	}
	if Tier("platinum").Valid() {
		t.Fatalf("unknown tier must not validate")
	}
}

func TestEligibleForRenewal(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	endIn := func(d time.Duration) *time.Time {
		end := now.Add(d)
		return &end
	}

	cases := []struct {
		name     string
		end      *time.Time
		eligible bool
	}{
		{"no end date", nil, false},
		{"ninety days out", endIn(90 * 24 * time.Hour), false},
		{"thirty days out", endIn(30 * 24 * time.Hour), true},
		{"exactly at the window", endIn(RenewalWindow), true},
		{"already past", endIn(-24 * time.Hour), true},
	}
	for _, tc := range cases {
		m := Membership{EndDate: tc.end}
		if got := m.EligibleForRenewal(now); got != tc.eligible {
			t.Fatalf("%s: expected eligible=%v, got %v", tc.name, tc.eligible, got)
		}
	}
}

func TestStatusDisplay(t *testing.T) {
	cases := []struct {
		status   Status
		label    string
		severity string
	}{
		{StatusPendingApproval, "Pending Approval", "warning"},
		{StatusActive, "Active", "success"},
		{StatusRejected, "Rejected", "danger"},
		{StatusExpired, "Expired", "muted"},
		{Status("on_hold"), "On Hold", "muted"},
	}
	for _, tc := range cases {
		info := StatusDisplay(tc.status)
		if info.Label != tc.label {
			t.Fatalf("%s: expected label %q, got %q", tc.status, tc.label, info.Label)
		}
		if info.Severity != tc.severity {
			t.Fatalf("%s: expected severity %q, got %q", tc.status, tc.severity, info.Severity)
		}
	}
}
