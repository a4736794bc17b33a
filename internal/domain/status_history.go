package domain

import "time"

// StatusHistoryEntry is an append-only record of one validated transition.
// FromStatus is nil for the creation row.
type StatusHistoryEntry struct {
	ID         string
	TicketID   string
	FromStatus *TicketStatus
	ToStatus   TicketStatus
	ActorID    string
	Reason     *string
	CreatedAt  time.Time
}
