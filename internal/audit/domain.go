package audit

import "time"

// Actions recorded on the contract activity timeline.
const (
	ActionContractCreated  = "contract.created"
	ActionContractUpdated  = "contract.updated"
	ActionContractApproved = "contract.approved"
	ActionContractDeleted  = "contract.deleted"
	ActionContractShared   = "contract.shared"
	ActionShareRevoked     = "contract.share_revoked"
)

// Entry is one activity record. Entries are append-only; revoked grants and
// deleted contracts keep their history here.
type Entry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

// TimelineFilters narrows the timeline listing.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Action   string
	Page     int
	PageSize int
}

// Paging carries paging metadata for timeline results.
type Paging struct {
	Page     int
	PageSize int
	HasNext  bool
}

// Result wraps one timeline page.
type Result struct {
	Rows   []Entry
	Paging Paging
}
