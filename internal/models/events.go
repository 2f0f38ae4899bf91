package models

import "time"

const (
	EventAssignmentCreated  = "assignment.created"
	EventAssignmentDeleted  = "assignment.deleted"
	EventAssignmentsCleared = "assignments.cleared"
)

// AssignmentEvent tells other instances that the store changed.
type AssignmentEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Origin     string      `json:"origin"`
	Assignment *Assignment `json:"assignment,omitempty"`
	TS         time.Time   `json:"ts"`
}
