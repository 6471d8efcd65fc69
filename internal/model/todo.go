package model

import (
	"encoding/json"
	"time"
)

// TodoItem is a single entry on the todo list.
//
// DoneTime is non-zero exactly when Done is true; use SetDone to change
// either field.
type TodoItem struct {
	Base
	Done             bool
	Priority         Priority
	Deadline         Date
	DoneTime         Date
	EstimatedMinutes int
	Notes            string
}

// NewTodoItem builds an open todo created at now.
func NewTodoItem(description string, category Category, priority Priority, deadline Date, now time.Time) TodoItem {
	if !priority.Valid() {
		priority = PriorityMedium
	}
	return TodoItem{
		Base: Base{
			ID:          newID(),
			Description: description,
			Category:    ParseCategory(string(category)),
			CreatedTime: now,
		},
		Priority: priority,
		Deadline: deadline,
	}
}

func (TodoItem) Kind() Kind     { return KindTodo }
func (t TodoItem) Common() Base { return t.Base }
func (TodoItem) isItem()        {}

// SetDone updates Done and keeps DoneTime consistent with it.
func (t *TodoItem) SetDone(done bool, today Date) {
	t.Done = done
	if done {
		t.DoneTime = today
	} else {
		t.DoneTime = Date{}
	}
}

// todoJSON is the on-disk shape of a todo. text/createtime/donetime/
// consume_time are the historical field names; description and
// created_time are also read for files written by newer builds.
type todoJSON struct {
	ID          string   `json:"id,omitempty"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Done        bool     `json:"done"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Deadline    Date     `json:"deadline"`
	CreateTime  Date     `json:"createtime"`
	CreatedTime *string  `json:"created_time,omitempty"`
	DoneTime    Date     `json:"donetime"`
	ConsumeTime int      `json:"consume_time"`
	Notes       string   `json:"notes,omitempty"`
	ItemType    Kind     `json:"item_type"`
}

func (t TodoItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(todoJSON{
		ID:          t.ID,
		Text:        t.Description,
		Done:        t.Done,
		Category:    ParseCategory(string(t.Category)),
		Priority:    t.Priority,
		Deadline:    t.Deadline,
		CreateTime:  DateOf(t.CreatedTime),
		CreatedTime: formatTimestamp(t.CreatedTime),
		DoneTime:    t.DoneTime,
		ConsumeTime: t.EstimatedMinutes,
		Notes:       t.Notes,
		ItemType:    KindTodo,
	})
}

// UnmarshalJSON tolerates missing and malformed fields: dates degrade to
// zero, priority to medium, category to default. A done item without a
// done date gets its creation date; an open item loses any done date.
func (t *TodoItem) UnmarshalJSON(data []byte) error {
	raw := todoJSON{Priority: PriorityMedium, Category: CategoryDefault}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	desc := raw.Text
	if desc == "" {
		desc = raw.Description
	}
	created := parseTimestampPtr(raw.CreatedTime)
	if created.IsZero() && !raw.CreateTime.IsZero() {
		created = raw.CreateTime.In(time.Local)
	}
	if raw.ConsumeTime < 0 {
		raw.ConsumeTime = 0
	}
	if !raw.Priority.Valid() {
		raw.Priority = PriorityMedium
	}

	*t = TodoItem{
		Base: Base{
			ID:          raw.ID,
			Description: desc,
			Category:    raw.Category,
			CreatedTime: created,
		},
		Done:             raw.Done,
		Priority:         raw.Priority,
		Deadline:         raw.Deadline,
		DoneTime:         raw.DoneTime,
		EstimatedMinutes: raw.ConsumeTime,
		Notes:            raw.Notes,
	}
	switch {
	case t.Done && t.DoneTime.IsZero():
		t.DoneTime = DateOf(created)
		if t.DoneTime.IsZero() {
			t.DoneTime = Today()
		}
	case !t.Done:
		t.DoneTime = Date{}
	}
	return nil
}
