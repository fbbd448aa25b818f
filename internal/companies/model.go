package companies

import (
	"time"

	"github.com/pactline/pactline/internal/authz"
)

// Company represents a tenant company: either a group or one of its
// subsidiaries. A subsidiary always points at a group-kind parent.
type Company struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Kind            authz.CompanyKind `json:"kind"`
	ParentCompanyID int64             `json:"parent_company_id,omitempty"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
