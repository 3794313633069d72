// Package uuid wraps github.com/google/uuid and hands out time-ordered
// UUIDv7 identifiers for notifications and outbound request ids.
package uuid

import (
	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// New returns a new UUIDv7. Panics if UUID generation fails.
func New() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id
}

// IsUUIDv7 reports whether the given UUID is a UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}
