package domain

import "time"

// AccountStatus enumerates organization account states.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
)

// OrganizationAccount is the recipient organization behind one or more
// campaigns. Blocking happens only through the deadline sweeper; unblocking
// is an administrative appeal handled outside this service.
type OrganizationAccount struct {
	ID            string
	Name          string
	Status        AccountStatus
	BlockedReason string
	BlockedAt     *time.Time
	CreatedAt     time.Time
}
