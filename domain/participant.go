// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a registered presence. Name is unique across the registry.
// SessionID identifies one join: a later join under the same name gets a new one.
type Participant struct {
	Name         string
	SessionID    uuid.UUID
	LastActiveAt time.Time
}

// IsStale reports whether the participant has been inactive for strictly
// longer than threshold at instant now.
func (p Participant) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(p.LastActiveAt) > threshold
}
