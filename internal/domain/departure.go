package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DepartureRow is one scheduled departure as reported by the upstream board.
//
// The fields are opaque display text: nothing in the service parses or
// validates them. On the wire a row is a three element array
// ["line", "direction", "eta"].
type DepartureRow struct {
	Line      string
	Direction string
	ETA       string
}

// MarshalJSON encodes the row as a [line, direction, eta] array.
func (r DepartureRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{r.Line, r.Direction, r.ETA})
}

// UnmarshalJSON accepts the [line, direction, eta] array form.
func (r *DepartureRow) UnmarshalJSON(data []byte) error {
	var triple []string
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("failed to decode departure row: %w", err)
	}
	if len(triple) != 3 {
		return fmt.Errorf("departure row must have 3 fields, got %d", len(triple))
	}
	r.Line, r.Direction, r.ETA = triple[0], triple[1], triple[2]
	return nil
}

// StopEntry is the cached state of a single stop.
//
// Entries are treated as values: the cache replaces a whole StopEntry and
// never mutates one in place, so a reader always sees a consistent triple.
type StopEntry struct {
	// Rows keeps upstream order. It may be empty (no departures at night).
	Rows []DepartureRow

	// LastUpdated is set only by a successful fetch.
	LastUpdated time.Time

	// LastRequested is advanced only by on-demand reads, never by the
	// background refresh.
	LastRequested time.Time
}
