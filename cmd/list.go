package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
)

var listOpen bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listOpen, "open", false, "Hide completed todos")
}

func runList(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	printTodos(cmd.OutOrStdout(), a.Todos.Items(), listOpen, today())
	return nil
}

func printTodos(w io.Writer, items []model.TodoItem, openOnly bool, today model.Date) {
	shown := 0
	for i, t := range items {
		if openOnly && t.Done {
			continue
		}
		fmt.Fprintln(w, formatTodo(t, i+1, today))
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "No todos.")
	}
}

// formatTodo renders one line, e.g. "3. [ ] buy milk  life  high  due tomorrow".
func formatTodo(t model.TodoItem, n int, today model.Date) string {
	box := "[ ]"
	if t.Done {
		box = "[x]"
	}
	parts := []string{fmt.Sprintf("%d. %s %s", n, box, t.Description)}
	if t.Category != model.CategoryDefault {
		parts = append(parts, string(t.Category))
	}
	if t.Priority != model.PriorityMedium {
		parts = append(parts, t.Priority.String())
	}
	if !t.Deadline.IsZero() {
		parts = append(parts, "due "+formatDeadline(t.Deadline, today))
	}
	if t.Done && !t.DoneTime.IsZero() {
		parts = append(parts, "done "+t.DoneTime.String())
	}
	if t.EstimatedMinutes > 0 {
		parts = append(parts, fmt.Sprintf("~%dm", t.EstimatedMinutes))
	}
	return strings.Join(parts, "  ")
}

func formatDeadline(d, today model.Date) string {
	switch n := today.DaysUntil(d); {
	case n == 0:
		return "today"
	case n == 1:
		return "tomorrow"
	case n < 0:
		return fmt.Sprintf("%s (%d days overdue)", d, -n)
	default:
		return fmt.Sprintf("%s (in %d days)", d, n)
	}
}

func today() model.Date {
	return model.Today()
}
