package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/auth"
	"github.com/Tiliavir/trivial-focus-tracker/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's focus time, open todos and sync settings",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	out := cmd.OutOrStdout()
	d := today()

	var open, overdue, dueToday int
	for _, t := range a.Todos.Items() {
		if t.Done {
			continue
		}
		open++
		switch {
		case t.Deadline.IsZero():
		case t.Deadline == d:
			dueToday++
		case t.Deadline.Before(d):
			overdue++
		}
	}
	s := a.Recorder.SummaryFor(d)

	fmt.Fprintf(out, "Today:  %s focused in %d sessions.\n", s.Formatted(), s.TotalEvents)
	fmt.Fprintf(out, "Todos:  %d open (%d due today, %d overdue), %d total.\n", open, dueToday, overdue, a.Todos.Len())
	fmt.Fprintf(out, "Timer:  %s\n", a.Timer.Display())

	switch cfg.Sync.Backend {
	case config.BackendNone:
		fmt.Fprintln(out, "Sync:   off")
	case config.BackendHTTP:
		fmt.Fprintf(out, "Sync:   %s as %s (%s)\n", cfg.Sync.URL, cfg.UserID, loginState())
	case config.BackendDir:
		fmt.Fprintf(out, "Sync:   folder %s as %s\n", cfg.Sync.Dir, cfg.UserID)
	case config.BackendSQLite:
		fmt.Fprintf(out, "Sync:   database %s as %s\n", cfg.SyncDBPath(), cfg.UserID)
	}
	return nil
}

func loginState() string {
	ac := authConfig()
	switch {
	case ac.StaticToken != "":
		return "static token"
	case ac.ClientID == "":
		return "no authentication"
	}
	tok, err := auth.LoadToken(ac.TokenFile)
	switch {
	case err != nil:
		return "token unreadable"
	case tok == nil:
		return "not logged in"
	default:
		return "logged in"
	}
}
