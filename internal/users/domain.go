package users

import (
	"time"

	"github.com/pactline/pactline/internal/authz"
)

// User represents a platform user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	CompanyID    int64
	// GroupID mirrors the group the user's company belongs to, zero when
	// the company sits outside any group.
	GroupID   int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
