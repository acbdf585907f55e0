package membership

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is the membership level, orthogonal to the authorization role.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// Price returns the annual fee in cents.
func (t Tier) Price() int64 {
	switch t {
	case TierBronze:
		return 50000
	case TierSilver:
		return 100000
	case TierGold:
		return 150000
	}
	return 0
}

// Status encodes the membership lifecycle. All transitions are explicit:
// administrator actions move pending_approval to active or rejected, and
// the expiry job moves active past end_date to expired.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusRejected        Status = "rejected"
	StatusExpired         Status = "expired"
)

// RenewalWindow is how far before end_date a renewal is permitted.
const RenewalWindow = 60 * 24 * time.Hour

// Membership is one membership record for a user.
type Membership struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Tier      Tier       `json:"tier"`
	Status    Status     `json:"status"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	EID       string     `json:"eid,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EligibleForRenewal reports whether the membership may be renewed at now:
// only within RenewalWindow before end_date, or any time after it has
// passed. Memberships that never activated have no end date and are not
// renewable.
func (m Membership) EligibleForRenewal(now time.Time) bool {
	if m.EndDate == nil {
		return false
	}
	return m.EndDate.Sub(now) <= RenewalWindow
}

// StatusInfo is the display mapping for one status.
type StatusInfo struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
}

var statusSeverity = map[Status]string{
	StatusPendingApproval: "warning",
	StatusActive:          "success",
	StatusRejected:        "danger",
	StatusExpired:         "muted",
}

var titleCaser = cases.Title(language.English)

// StatusDisplay maps a status to its human-readable label and severity
// tag. Unknown statuses get a neutral severity.
func StatusDisplay(s Status) StatusInfo {
	severity, ok := statusSeverity[s]
	if !ok {
		severity = "muted"
	}
	label := titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
	return StatusInfo{Label: label, Severity: severity}
}
