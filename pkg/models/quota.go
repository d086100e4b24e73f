package models

import "time"

// QuotaSnapshot is advisory: the last-observed remaining/used request
// counts from the upstream feed's rate-limit headers.
type QuotaSnapshot struct {
	RequestsRemaining int
	RequestsUsed      int
	ObservedAt        time.Time
	ResetAt           time.Time // zero if unknown
}
