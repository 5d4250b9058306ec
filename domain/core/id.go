package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// BuildingID identifies a metered entity. It is never generated here:
	// it comes from the source data and is only carried through.
	BuildingID string

	// SiteID groups buildings that share a weather station.
	SiteID string

	// RunID identifies one detection run end to end.
	RunID ID
)

// NewRunID creates a fresh run identifier
func NewRunID() RunID { return RunID(NewID()) }

func (b BuildingID) String() string { return string(b) }
func (s SiteID) String() string     { return string(s) }
func (r RunID) String() string      { return string(r) }
