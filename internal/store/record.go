package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"topicspin-api/internal/models"
)

// Wire field names, in sheet column order.
const (
	FieldID         = "id"
	FieldEmployeeID = "employeeId"
	FieldName       = "name"
	FieldChannel    = "channel"
	FieldCategory   = "category"
	FieldTopic      = "topic"
	FieldRoom       = "room"
	FieldAssignedAt = "assignedAt"
)

var Fields = []string{
	FieldID, FieldEmployeeID, FieldName, FieldChannel,
	FieldCategory, FieldTopic, FieldRoom, FieldAssignedAt,
}

// Record is the flat text form exchanged with spreadsheet-like backends.
type Record map[string]string

func NewID() string { return uuid.NewString() }

// EncodeRecord fills every wire field. Missing id and timestamp are generated.
func EncodeRecord(a models.Assignment) Record {
	id := a.ID
	if id == "" {
		id = NewID()
	}
	at := a.AssignedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	room := ""
	if a.Room != 0 {
		room = strconv.Itoa(a.Room)
	}
	return Record{
		FieldID:         id,
		FieldEmployeeID: a.EmployeeID,
		FieldName:       a.Name,
		FieldChannel:    string(a.Channel),
		FieldCategory:   string(a.Category),
		FieldTopic:      a.Topic,
		FieldRoom:       room,
		FieldAssignedAt: at.Format(time.RFC3339Nano),
	}
}

// Empty reports whether every field is blank, as with spacer rows in a sheet.
func (r Record) Empty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Row returns the values in Fields order.
func (r Record) Row() []string {
	row := make([]string, len(Fields))
	for i, f := range Fields {
		row[i] = r[f]
	}
	return row
}

// RecordFromRow is the inverse of Row; short rows leave trailing fields blank.
func RecordFromRow(row []string) Record {
	r := Record{}
	for i, f := range Fields {
		if i < len(row) {
			r[f] = strings.TrimSpace(row[i])
		}
	}
	return r
}

// timeLayouts are tried in order for assignedAt. Rows typed into a sheet by
// hand usually carry the export layout or a bare date.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// DecodeRecord converts a wire record. The room text is parsed here and only
// here; an unparseable room decodes as 0, which matches no configured room.
// Only blank rows are rejected. A row without an id, as left by a manual
// edit, still counts for duplicate checks and room availability and decodes
// with an empty ID.
func DecodeRecord(r Record) (models.Assignment, bool) {
	if r.Empty() {
		return models.Assignment{}, false
	}
	room, _ := strconv.Atoi(strings.TrimSpace(r[FieldRoom]))
	return models.Assignment{
		ID:         strings.TrimSpace(r[FieldID]),
		EmployeeID: strings.TrimSpace(r[FieldEmployeeID]),
		Name:       strings.TrimSpace(r[FieldName]),
		Channel:    models.Channel(strings.TrimSpace(r[FieldChannel])),
		Category:   models.Category(strings.TrimSpace(r[FieldCategory])),
		Topic:      strings.TrimSpace(r[FieldTopic]),
		Room:       room,
		AssignedAt: parseTime(r),
	}, true
}

func parseTime(r Record) time.Time {
	s := strings.TrimSpace(r[FieldAssignedAt])
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	log.Debug().
		Str("id", r[FieldID]).
		Str("employee_id", r[FieldEmployeeID]).
		Str("assigned_at", s).
		Msg("unparseable assignedAt; treating as unknown")
	return time.Time{}
}

// FieldValue returns the wire text of one field, for client-side filtering.
func FieldValue(a models.Assignment, field string) (string, bool) {
	switch field {
	case FieldID:
		return a.ID, true
	case FieldEmployeeID:
		return a.EmployeeID, true
	case FieldName:
		return a.Name, true
	case FieldChannel:
		return string(a.Channel), true
	case FieldCategory:
		return string(a.Category), true
	case FieldTopic:
		return a.Topic, true
	case FieldRoom:
		return strconv.Itoa(a.Room), true
	case FieldAssignedAt:
		return a.AssignedAt.Format(time.RFC3339Nano), true
	}
	return "", false
}
