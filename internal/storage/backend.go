// Package storage persists the record aggregate. Every backend reads and
// writes the whole document; there is no partial update path.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

var (
	// ErrMissing means nothing has been persisted yet.
	ErrMissing = errors.New("no persisted data")
	// ErrMalformed means persisted content is not a JSON object.
	ErrMalformed = errors.New("malformed persisted data")
	// ErrUnreadable means the document parses but a record in it does not.
	// Nothing is reset for it; the caller has to repair the data.
	ErrUnreadable = errors.New("unreadable record in persisted data")
)

// Backend loads and saves the aggregate as a unit.
type Backend interface {
	// Load returns ErrMissing or ErrMalformed (possibly wrapped) for
	// recoverable conditions. ErrUnreadable and any other error are failures.
	Load(ctx context.Context) (core.Aggregate, error)
	// Save replaces the persisted aggregate. A failed Save leaves the
	// previous content intact.
	Save(ctx context.Context, a core.Aggregate) error
	// Location describes where data lives, for logs and error messages.
	Location() string
	Close() error
}

// Encode serializes the aggregate in the persisted document format.
func Encode(a core.Aggregate) ([]byte, error) {
	a.Normalize()
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode aggregate: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted document. Empty input, invalid JSON and
// non-object JSON are ErrMalformed. A well-formed document whose records
// cannot be read is ErrUnreadable. Dates that are not YYYY-MM-DD are kept,
// see core.Date.
func Decode(data []byte) (core.Aggregate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return core.Aggregate{}, ErrMalformed
	}
	var a core.Aggregate
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return core.Aggregate{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	a.Normalize()
	return a, nil
}
