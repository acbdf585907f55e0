package events

import "time"

// Event is one society event members can register for.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Registration ties a member to an event.
type Registration struct {
	EventID      int64     `json:"event_id"`
	UserID       int64     `json:"user_id"`
	Attended     bool      `json:"attended"`
	RegisteredAt time.Time `json:"registered_at"`
}
