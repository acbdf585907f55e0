package payments

import "time"

// Status encodes the payment lifecycle. Settlement happens inside the
// membership approval transaction; this package is the read side.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
)

// Payment is one membership fee record. Amount is in cents.
type Payment struct {
	ID           int64      `json:"id"`
	MembershipID int64      `json:"membership_id"`
	UserID       int64      `json:"user_id"`
	Amount       int64      `json:"amount"`
	Status       Status     `json:"status"`
	PaidAt       *time.Time `json:"paid_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
