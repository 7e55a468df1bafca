package model

// Event is a theatrical production.  Only its identity, duration and
// active flag matter to booking; the rest is catalogue metadata.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – title shown to customers.
//  DurationMin – running time in minutes, used for the door validation window.
//  Rating      – age rating label (e.g. "L", "14").
//  Active      – inactive events cannot receive new sessions.
type Event struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	DurationMin int    `json:"duration_min"`
	Rating      string `json:"rating,omitempty"`
	Active      bool   `json:"active"`
}
