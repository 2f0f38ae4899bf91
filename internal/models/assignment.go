package models

import (
	"strings"
	"time"
)

type Channel string

const (
	ChannelBanca  Channel = "Banca"
	ChannelRetail Channel = "Retail"
)

type Category string

const (
	CategoryRookie  Category = "Rookie"
	CategoryVintage Category = "Vintage"
)

// Assignment links one employee to one topic in one room. It is created once
// and never mutated.
type Assignment struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Name       string    `json:"name"`
	Channel    Channel   `json:"channel"`
	Category   Category  `json:"category"`
	Topic      string    `json:"topic"`
	Room       int       `json:"room"`
	AssignedAt time.Time `json:"assignedAt"`
}

// Submission is the trainer form payload. Format rules live in the tags and
// are enforced at the HTTP boundary only.
type Submission struct {
	EmployeeID string   `json:"employeeId" validate:"required,len=9,number"`
	Name       string   `json:"name" validate:"required,min=2,personname"`
	Channel    Channel  `json:"channel" validate:"required,oneof=Banca Retail"`
	Category   Category `json:"category" validate:"required,oneof=Rookie Vintage"`
	Room       int      `json:"room" validate:"required,min=1"`
}

// NormalizeEmployeeID is the comparison form used for duplicate detection.
func NormalizeEmployeeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// SameEmployee reports whether a belongs to the given employee id.
func (a Assignment) SameEmployee(employeeID string) bool {
	return NormalizeEmployeeID(a.EmployeeID) == NormalizeEmployeeID(employeeID)
}
