// Package idgen supplies the clock/UID generator spec.md §1 names as an
// external collaborator ("provides monotonic-enough unique identifiers")
// along with the default implementation this module ships: google/uuid,
// already a direct dependency of this module's structural teacher
// (edirooss/zmux-server uses it for request IDs; here it generates document
// _ids instead).
package idgen

import (
	"time"

	"github.com/google/uuid"
)

// Generator produces unique document identifiers on insert when the caller
// doesn't supply one.
type Generator interface {
	NewID() string
}

// UUIDGenerator is the default Generator: a random (v4) UUID per call.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Clock supplies the current time for timestamp_data stamping (spec.md §6)
// and for $currentDate (SPEC_FULL.md §3.3).
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time { return time.Now() }
