package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timecalc"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timer"
)

var (
	timerMinutes  int
	timerTodo     int
	timerNote     string
	timerCategory string
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Run a focus countdown in the foreground",
	Long: `Runs a countdown and records the session as an event when it finishes,
or when it is stopped after at least one minute.

While running, type "p" + Enter to pause or resume and "s" + Enter to
stop. Ctrl+C stops as well.`,
	Args: cobra.NoArgs,
	RunE: runTimer,
}

func init() {
	timerCmd.Flags().IntVar(&timerMinutes, "minutes", 0, "Countdown length in minutes, 1-180 (default from config)")
	timerCmd.Flags().IntVar(&timerTodo, "todo", 0, "Todo number whose text labels the session")
	timerCmd.Flags().StringVar(&timerNote, "note", "", "Description for the recorded session")
	timerCmd.Flags().StringVar(&timerCategory, "category", "", "Category for the recorded session")
}

func runTimer(cmd *cobra.Command, args []string) (err error) {
	out := cmd.OutOrStdout()
	a, done, err := openApp(cmd.Context(), app.Options{
		TimerSeconds: timerMinutes * 60,
		Notifier:     terminalNotifier(out),
		Prompt:       notePrompt(timerNote, timerCategory),
	})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	if timerTodo > 0 {
		if err := a.SetActiveTodo(timerTodo - 1); err != nil {
			return fmt.Errorf("no todo number %d", timerTodo)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer a.Bus.SubscribeTimeUpdated(func(eventbus.TimeUpdatedPayload) {
		if s := a.Timer.Status(); s == timer.StatusRunning || s == timer.StatusPaused {
			fmt.Fprintf(out, "\r%s ", a.Timer.Display())
		}
	})()
	defer a.Bus.SubscribeStatusChanged(func(p eventbus.StatusChangedPayload) {
		if p.New == string(timer.StatusPaused) {
			fmt.Fprintf(out, "\r%s (paused, \"p\" to resume) ", a.Timer.Display())
		}
	})()
	defer a.Bus.SubscribeEventRecorded(func(p eventbus.EventRecordedPayload) {
		fmt.Fprintf(out, "\nRecorded %q (%s)\n", p.Record.Description, timecalc.FormatDuration(p.Record.DurationSeconds))
	})()

	defer a.Bus.SubscribeStoreSaveFailed(func(p eventbus.StoreSaveFailedPayload) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nWarning: saving %s failed, retrying on exit: %v\n", p.Collection, p.Err)
	})()

	go readControls(cmd.InOrStdin(), a.Timer, cancel)

	a.Timer.Start()
	fmt.Fprintf(out, "%s ", a.Timer.Display())
	if timer.Run(ctx, a.Timer, time.Second) != timer.StatusStopped {
		a.Timer.Stop()
	}
	fmt.Fprintln(out)
	return nil
}

// readControls applies single-letter commands from r until it is closed.
// Stopping goes through stop so the session is recorded on the command's
// goroutine.
func readControls(r io.Reader, m *timer.Machine, stop func()) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "p":
			if !m.Pause() {
				m.Start()
			}
		case "s", "q":
			stop()
			return
		}
	}
}

func terminalNotifier(w io.Writer) app.Notifier {
	return app.NotifierFunc(func(title, message string) {
		// Terminal bell.
		fmt.Fprintf(w, "\a\n%s %s\n", title, message)
	})
}

// notePrompt overrides the suggested label with the flag values, if set.
func notePrompt(note, category string) app.RecordPrompt {
	return func(_ int, desc string, cat model.Category) (string, model.Category, bool) {
		if note != "" {
			desc = note
		}
		if category != "" {
			cat = model.ParseCategory(category)
		}
		return desc, cat, true
	}
}
