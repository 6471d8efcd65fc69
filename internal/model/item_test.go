package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityUrgent, ParsePriority("urgent"))
	assert.Equal(t, PriorityHigh, ParsePriority(" HIGH "))
	assert.Equal(t, PriorityLow, ParsePriority("1"))
	assert.Equal(t, PriorityMedium, ParsePriority("7"))
	assert.Equal(t, PriorityMedium, ParsePriority("whenever"))
}

func TestPriority_JSON(t *testing.T) {
	var p Priority
	for in, want := range map[string]Priority{
		`4`:        PriorityUrgent,
		`"low"`:    PriorityLow,
		`"3"`:      PriorityHigh,
		`0`:        PriorityMedium,
		`null`:     PriorityMedium,
		`{"x": 1}`: PriorityMedium,
	} {
		require.NoError(t, json.Unmarshal([]byte(in), &p), in)
		assert.Equal(t, want, p, in)
	}

	b, err := json.Marshal(PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, "3", string(b))
}

func TestCategory_Unknown(t *testing.T) {
	var c Category
	require.NoError(t, json.Unmarshal([]byte(`"hobby"`), &c))
	assert.Equal(t, CategoryDefault, c)
	require.NoError(t, json.Unmarshal([]byte(`"Work"`), &c))
	assert.Equal(t, CategoryWork, c)
}

func TestTodoItem_RoundTrip(t *testing.T) {
	now := time.Date(2024, time.March, 9, 14, 30, 0, 0, time.UTC)
	todo := NewTodoItem("write tests", CategoryWork, PriorityHigh, NewDate(2024, time.March, 12), now)
	todo.EstimatedMinutes = 25
	todo.Notes = "table driven"
	todo.SetDone(true, NewDate(2024, time.March, 10))

	b, err := json.Marshal(todo)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "write tests", raw["text"])
	assert.Equal(t, "2024-03-09", raw["createtime"])
	assert.Equal(t, "2024-03-10", raw["donetime"])
	assert.Equal(t, float64(3), raw["priority"])
	assert.Equal(t, float64(25), raw["consume_time"])
	assert.Equal(t, "todo", raw["item_type"])

	var back TodoItem
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, todo.ID, back.ID)
	assert.Equal(t, todo.Description, back.Description)
	assert.True(t, todo.CreatedTime.Equal(back.CreatedTime))
	assert.Equal(t, todo.DoneTime, back.DoneTime)
	assert.Equal(t, todo.Deadline, back.Deadline)
	assert.Equal(t, todo.Priority, back.Priority)
	assert.Equal(t, KindTodo, back.Kind())
}

func TestTodoItem_TolerantDecode(t *testing.T) {
	in := `{"text":"legacy","done":true,"priority":"bogus","category":"misc",
		"deadline":"next week","createtime":"2023-05-01","donetime":null}`
	var todo TodoItem
	require.NoError(t, json.Unmarshal([]byte(in), &todo))

	assert.Equal(t, "legacy", todo.Description)
	assert.Equal(t, PriorityMedium, todo.Priority)
	assert.Equal(t, CategoryDefault, todo.Category)
	assert.True(t, todo.Deadline.IsZero())
	assert.Equal(t, NewDate(2023, time.May, 1), todo.DoneTime, "done without done date takes the creation date")

	require.NoError(t, json.Unmarshal([]byte(`{"text":"open","done":false,"donetime":"2023-05-01"}`), &todo))
	assert.True(t, todo.DoneTime.IsZero())
}

func TestSetDone_SelfInverse(t *testing.T) {
	todo := NewTodoItem("x", CategoryDefault, PriorityMedium, Date{}, time.Now())
	before := todo
	todo.SetDone(true, NewDate(2024, time.June, 1))
	assert.True(t, todo.Done)
	assert.False(t, todo.DoneTime.IsZero())
	todo.SetDone(false, NewDate(2024, time.June, 1))
	assert.Equal(t, before, todo)
}

func TestEventRecord(t *testing.T) {
	start := time.Date(2024, time.March, 9, 9, 0, 0, 400, time.UTC)
	rec := NewEventRecord("focus", CategoryStudy, start, start.Add(25*time.Minute+900*time.Millisecond))
	assert.Equal(t, int64(1500), rec.DurationSeconds)
	assert.Equal(t, DefaultEventType, rec.EventType)
	assert.Equal(t, rec.EndTime, rec.CreatedTime)

	backwards := NewEventRecord("oops", CategoryDefault, start, start.Add(-time.Hour))
	assert.Equal(t, int64(0), backwards.DurationSeconds)
	assert.Equal(t, backwards.StartTime, backwards.EndTime)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	var back EventRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rec.Description, back.Description)
	assert.True(t, rec.StartTime.Equal(back.StartTime))
	assert.True(t, rec.EndTime.Equal(back.EndTime))
	assert.Equal(t, rec.DurationSeconds, back.DurationSeconds)
	assert.Equal(t, KindRecord, back.Kind())
}

func TestEventRecord_TolerantDecode(t *testing.T) {
	var rec EventRecord
	require.NoError(t, json.Unmarshal([]byte(`{"event_description":"x","start_time":"not a time","duration_seconds":-3}`), &rec))
	assert.True(t, rec.StartTime.IsZero())
	assert.Equal(t, int64(0), rec.DurationSeconds)
	assert.Equal(t, DefaultEventType, rec.EventType)
}

func TestDescribe(t *testing.T) {
	todo := NewTodoItem("groceries", CategoryLife, PriorityLow, NewDate(2024, time.March, 1), time.Now())
	assert.Equal(t, "[ ] groceries (due 2024-03-01)", Describe(todo))

	start := time.Date(2024, time.March, 1, 8, 5, 0, 0, time.Local)
	rec := NewEventRecord("deep work", CategoryWork, start, start.Add(50*time.Minute))
	assert.Equal(t, "08:05 deep work 50m", Describe(rec))
}
