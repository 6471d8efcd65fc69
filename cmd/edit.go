package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
)

var (
	editPriority string
	editCategory string
	editDeadline string
	editNotes    string
)

var doneCmd = &cobra.Command{
	Use:   "done <n>",
	Short: "Toggle a todo between open and done",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

var rmCmd = &cobra.Command{
	Use:     "rm <n>",
	Aliases: []string{"delete"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

var editCmd = &cobra.Command{
	Use:   "edit <n> [text...]",
	Short: "Change the text or fields of a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEdit,
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort todos: open first, then by priority and deadline",
	Args:  cobra.NoArgs,
	RunE:  runSort,
}

func init() {
	editCmd.Flags().StringVar(&editPriority, "priority", "", "low, medium, high or urgent")
	editCmd.Flags().StringVar(&editCategory, "category", "", "default, work, life or study")
	editCmd.Flags().StringVar(&editDeadline, "deadline", "", `Deadline (YYYY-MM-DD), or "none" to clear`)
	editCmd.Flags().StringVar(&editNotes, "notes", "", "Free-form notes")
}

// parseIndex converts a 1-based list number into a collection index.
func parseIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("no todo number %q (have %d)", arg, n)
	}
	return i - 1, nil
}

func runDone(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	i, err := parseIndex(args[0], a.Todos.Len())
	if err != nil {
		return err
	}
	a.Todos.ToggleDone(i, today())
	t, err := a.Todos.At(i)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatTodo(t, i+1, today()))
	return nil
}

func runRm(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	i, err := parseIndex(args[0], a.Todos.Len())
	if err != nil {
		return err
	}
	t, err := a.Todos.At(i)
	if err != nil {
		return err
	}
	if err := a.Todos.Delete(i); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", t.Description)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	i, err := parseIndex(args[0], a.Todos.Len())
	if err != nil {
		return err
	}

	var deadline model.Date
	if cmd.Flags().Changed("deadline") && editDeadline != "none" {
		d, ok := model.ParseDate(editDeadline)
		if !ok {
			return fmt.Errorf("invalid --deadline %q (want YYYY-MM-DD)", editDeadline)
		}
		deadline = d
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))

	err = a.Todos.Update(i, func(t *model.TodoItem) {
		if text != "" {
			t.Description = text
		}
		if cmd.Flags().Changed("priority") {
			t.Priority = model.ParsePriority(editPriority)
		}
		if cmd.Flags().Changed("category") {
			t.Category = model.ParseCategory(editCategory)
		}
		if cmd.Flags().Changed("deadline") {
			t.Deadline = deadline
		}
		if cmd.Flags().Changed("notes") {
			t.Notes = editNotes
		}
	})
	if err != nil {
		return err
	}
	t, _ := a.Todos.At(i)
	fmt.Fprintln(cmd.OutOrStdout(), formatTodo(t, i+1, today()))
	return nil
}

func runSort(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	a.Todos.Sort()
	printTodos(cmd.OutOrStdout(), a.Todos.Items(), false, today())
	return nil
}
