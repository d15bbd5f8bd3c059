// Package dedup finds likely-duplicate records across the property
// management and field service platforms before new ones are created. A set
// of pluggable strategies scores candidates; results are confidence-filtered
// and cached per entity fingerprint.
package dedup

import (
	"time"

	"github.com/fieldsync/fieldsync/engine/core"
)

// Entity is the normalized record shape strategies score against. Fields
// irrelevant to a given record kind stay empty.
type Entity struct {
	ID          core.ID           `json:"id,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Name        string            `json:"name,omitempty"`
	Address     string            `json:"address,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Email       string            `json:"email,omitempty"`
	ParentID    string            `json:"parent_id,omitempty"`
	BuildingID  string            `json:"building_id,omitempty"`
	Description string            `json:"description,omitempty"`
	ForeignIDs  map[string]string `json:"foreign_ids,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitzero"`
}

// Match is one scored duplicate candidate. Candidate points into the store's
// entity and is read-only for the duration of the call.
type Match struct {
	EntityID   core.ID  `json:"entity_id"`
	Strategy   string   `json:"strategy"`
	Confidence float64  `json:"confidence"`
	Fields     []string `json:"fields"`
	Candidate  *Entity  `json:"candidate,omitempty"`
}
