package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ChangeOp is the row-level operation carried by a change event.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// Table names as they appear on the change feed.
const (
	TableSongs    = "songs"
	TableRequests = "requests"
	TableSetLists = "set_lists"
)

// ChangeEvent is one row-level notification on the change feed.
//
// Delivery is at least once and per-table ordered only as far as the
// transport provides; consumers must apply events idempotently. Deletes carry
// only the row id in Row.
type ChangeEvent struct {
	EventID    string          `json:"event_id"`    // UUID, unique per publish
	Table      string          `json:"table"`       // Source table
	Op         ChangeOp        `json:"op"`          // insert/update/delete
	Row        json.RawMessage `json:"row"`         // Full row, or {"id": ...} for deletes
	OccurredAt time.Time       `json:"occurred_at"`
	InstanceID string          `json:"instance_id,omitempty"` // Publishing instance
}

// RowID extracts the entity id from the event payload.
func (e *ChangeEvent) RowID() (string, error) {
	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Row, &row); err != nil {
		return "", err
	}
	if row.ID == "" {
		return "", errors.New("event row has no id")
	}
	return row.ID, nil
}
