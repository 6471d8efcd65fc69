package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
)

var addCmd = &cobra.Command{
	Use:   "add <text...>",
	Short: "Add a todo; #tags set category, priority and deadline",
	Example: `  tft add buy groceries #life #tomorrow
  tft add 买菜 #生活 #明天
  tft add release notes #work #urgent #2024-03-15`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	item, err := a.AddFromText(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Added", formatTodo(item, a.Todos.Len(), today()))
	return nil
}
