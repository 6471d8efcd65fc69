package tagparse

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
)

// Suggestion is a structured todo proposal produced from free text.
type Suggestion struct {
	Text             string
	Priority         model.Priority
	Category         model.Category
	Deadline         model.Date
	EstimatedMinutes int
	Notes            string
}

// Converter turns free text into a Suggestion, typically through a remote
// language model.
type Converter interface {
	Convert(ctx context.Context, text string, today model.Date) (Suggestion, error)
}

// FromResult lifts a Parse result into a Suggestion.
func FromResult(r Result) Suggestion {
	return Suggestion{
		Text:     r.Text,
		Priority: r.Priority,
		Category: r.Category,
		Deadline: r.Deadline,
	}
}

// ParseWithFallback asks conv first and falls back to Parse when conv is
// nil, fails, panics or returns no text. The bool reports whether the
// converter's answer was used.
func ParseWithFallback(ctx context.Context, conv Converter, raw string, today model.Date) (Suggestion, bool) {
	if conv != nil {
		if s, err := safeConvert(ctx, conv, raw, today); err == nil && strings.TrimSpace(s.Text) != "" {
			return normalize(s), true
		}
	}
	return FromResult(Parse(raw, today)), false
}

func safeConvert(ctx context.Context, conv Converter, raw string, today model.Date) (s Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("converter panicked: %v", r)
		}
	}()
	return conv.Convert(ctx, raw, today)
}

func normalize(s Suggestion) Suggestion {
	s.Text = strings.TrimSpace(s.Text)
	if !s.Priority.Valid() {
		s.Priority = model.PriorityMedium
	}
	s.Category = model.ParseCategory(string(s.Category))
	if s.EstimatedMinutes < 0 {
		s.EstimatedMinutes = 0
	}
	return s
}
