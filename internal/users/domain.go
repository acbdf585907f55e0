package users

import (
	"time"

	"github.com/societyhub/societyhub/internal/roles"
)

// Profile represents a portal member account. Role is nil until an
// administrator assigns one.
type Profile struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      *roles.Role `json:"role"`
	StudentNo string      `json:"student_no,omitempty"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
