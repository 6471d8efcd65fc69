// Package model defines the todo and event record types persisted by tft.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the item variants. The values match the item_type
// field written to disk.
type Kind string

const (
	KindTodo   Kind = "todo"
	KindRecord Kind = "record"
)

// Category groups items for display and reporting.
type Category string

const (
	CategoryDefault Category = "default"
	CategoryWork    Category = "work"
	CategoryLife    Category = "life"
	CategoryStudy   Category = "study"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryDefault, CategoryWork, CategoryLife, CategoryStudy}

// ParseCategory maps a stored or user supplied name to a Category.
// Unknown names yield CategoryDefault.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryWork:
		return CategoryWork
	case CategoryLife:
		return CategoryLife
	case CategoryStudy:
		return CategoryStudy
	default:
		return CategoryDefault
	}
}

// UnmarshalJSON never fails; anything unrecognised becomes CategoryDefault.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*c = CategoryDefault
		return nil
	}
	*c = ParseCategory(s)
	return nil
}

// Priority is ordinal: a higher value is more urgent.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "medium"
	}
}

// Valid reports whether p is one of the four defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// ParsePriority accepts a level name or its ordinal ("1".."4").
// Anything else yields PriorityMedium.
func ParsePriority(s string) Priority {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if p := Priority(n); p.Valid() {
			return p
		}
		return PriorityMedium
	}
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}

// MarshalJSON writes the ordinal.
func (p Priority) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		p = PriorityMedium
	}
	return []byte(strconv.Itoa(int(p))), nil
}

// UnmarshalJSON accepts an ordinal or a name and never fails.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = ParsePriority(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = ParsePriority(s)
		return nil
	}
	*p = PriorityMedium
	return nil
}

// Base holds the fields shared by every item variant.
type Base struct {
	ID          string
	Description string
	Category    Category
	CreatedTime time.Time
}

// Item is implemented by TodoItem and EventRecord only.
type Item interface {
	Kind() Kind
	Common() Base
	isItem()
}

// Describe renders a one-line summary of any item.
func Describe(it Item) string {
	switch v := it.(type) {
	case TodoItem:
		mark := "[ ]"
		if v.Done {
			mark = "[x]"
		}
		s := mark + " " + v.Description
		if !v.Deadline.IsZero() {
			s += " (due " + v.Deadline.String() + ")"
		}
		return s
	case EventRecord:
		return v.StartTime.Format("15:04") + " " + v.Description + " " +
			strconv.FormatInt(v.DurationSeconds/60, 10) + "m"
	default:
		return ""
	}
}

func newID() string {
	return uuid.NewString()
}

// timestampLayouts are tried in order when reading stored timestamps.
// Offset-less layouts are interpreted in the local zone.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads an ISO timestamp. The zero time and false are
// returned for empty or malformed input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTimestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func parseTimestampPtr(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}
	t, _ := ParseTimestamp(*s)
	return t
}
