// Package refund implements refund eligibility and execution against the
// payment orchestrator.
package refund

import (
	"fmt"
	"time"
)

// Cutoff models a gateway's end-of-day processing cutoff: a fixed daily time
// in the gateway's own timezone. A payment created after the cutoff rolls
// into the next processing day.
type Cutoff struct {
	loc    *time.Location
	hour   int
	minute int
}

// NewCutoff builds a cutoff for the named IANA timezone and local wall time.
func NewCutoff(timezone string, hour, minute int) (Cutoff, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Cutoff{}, fmt.Errorf("load gateway timezone: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Cutoff{}, fmt.Errorf("invalid cutoff time %02d:%02d", hour, minute)
	}
	return Cutoff{loc: loc, hour: hour, minute: minute}, nil
}

// ClearsAt returns the moment a payment created at createdAt clears the
// gateway's end-of-day processing: the next cutoff strictly after creation.
func (c Cutoff) ClearsAt(createdAt time.Time) time.Time {
	local := createdAt.In(c.loc)
	cut := time.Date(local.Year(), local.Month(), local.Day(), c.hour, c.minute, 0, 0, c.loc)
	if !local.Before(cut) {
		cut = cut.AddDate(0, 0, 1)
	}
	return cut
}

// HasCleared reports whether a payment created at createdAt has passed the
// cutoff by now.
func (c Cutoff) HasCleared(createdAt, now time.Time) bool {
	return !now.Before(c.ClearsAt(createdAt))
}
