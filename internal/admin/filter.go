// Package admin backs the organizer dashboard: filtered listings, counts,
// spreadsheet exports and the destructive operations.
package admin

import (
	"net/url"
	"strconv"
	"strings"

	"topicspin-api/internal/models"
)

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Channel  string
	Category string
	Room     int
	Search   string
}

// ParseFilter reads channel, category, room and q (or search). The value
// "all" is the same as omitting the parameter.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Channel:  param(q, "channel"),
		Category: param(q, "category"),
		Search:   strings.TrimSpace(q.Get("q")),
	}
	if f.Search == "" {
		f.Search = strings.TrimSpace(q.Get("search"))
	}
	if r := param(q, "room"); r != "" {
		f.Room, _ = strconv.Atoi(strings.TrimPrefix(strings.ToLower(r), "room "))
		if f.Room <= 0 {
			f.Room = -1
		}
	}
	return f
}

func param(q url.Values, key string) string {
	v := strings.TrimSpace(q.Get(key))
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// Match reports whether a passes every set criterion. Search is a
// case-insensitive substring match on name and topic, and a plain substring
// match on employee id.
func (f Filter) Match(a models.Assignment) bool {
	if f.Channel != "" && !strings.EqualFold(string(a.Channel), f.Channel) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(string(a.Category), f.Category) {
		return false
	}
	if f.Room != 0 && a.Room != f.Room {
		return false
	}
	if f.Search == "" {
		return true
	}
	s := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(a.Name), s) ||
		strings.Contains(a.EmployeeID, f.Search) ||
		strings.Contains(strings.ToLower(a.Topic), s)
}

func (f Filter) Apply(list []models.Assignment) []models.Assignment {
	out := make([]models.Assignment, 0, len(list))
	for _, a := range list {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
