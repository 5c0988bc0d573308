package types

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a time ordered (v7) UUID in its canonical string form.
// All persisted identifiers use it so they fit UUID columns and stay k-sortable.
func GenerateUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateRequestID returns a k-sortable identifier for request/transaction tracing
func GenerateRequestID() string {
	return ulid.Make().String()
}

// IsValidUUID reports whether id parses as a UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
