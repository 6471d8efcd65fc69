package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/cloud"
	"github.com/Tiliavir/trivial-focus-tracker/internal/eventbus"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy data to or from the configured remote",
	Long: `Uploads or downloads whole collection files. The last writer wins;
there is no merge. Collections: todo_events, event_records, timer_events.`,
}

var syncUpCmd = &cobra.Command{
	Use:   "up [collection...]",
	Short: "Upload local collections",
	RunE:  func(cmd *cobra.Command, args []string) error { return runSyncOnce(cmd, args, cloud.DirectionUp) },
}

var syncDownCmd = &cobra.Command{
	Use:   "down [collection...]",
	Short: "Replace local collections with the remote copies",
	RunE:  func(cmd *cobra.Command, args []string) error { return runSyncOnce(cmd, args, cloud.DirectionDown) },
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch [collection...]",
	Short: "Apply remote changes as they happen until interrupted",
	RunE:  runSyncWatch,
}

func init() {
	syncCmd.AddCommand(syncUpCmd)
	syncCmd.AddCommand(syncDownCmd)
	syncCmd.AddCommand(syncWatchCmd)
}

// selectSyncables resolves collection names; no names selects all.
func selectSyncables(a *app.App, names []string) ([]cloud.Syncable, error) {
	if len(names) == 0 {
		return a.Syncables(), nil
	}
	var out []cloud.Syncable
	for _, n := range names {
		s, ok := a.Syncable(n)
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func runSyncOnce(cmd *cobra.Command, args []string, direction string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)
	if a.Gateway == nil {
		return app.ErrNoRemote
	}

	targets, err := selectSyncables(a, args)
	if err != nil {
		return err
	}

	var failed []string
	if len(args) == 0 {
		if failed, err = a.SyncAll(cmd.Context(), direction); err != nil {
			return err
		}
	} else {
		for _, s := range targets {
			var ok bool
			if direction == cloud.DirectionUp {
				ok = a.Gateway.Upload(cmd.Context(), s)
			} else {
				ok = a.Gateway.Download(cmd.Context(), s)
			}
			if !ok {
				failed = append(failed, s.Name())
			}
		}
	}

	out := cmd.OutOrStdout()
	for _, s := range targets {
		state := "ok"
		if slices.Contains(failed, s.Name()) {
			state = "failed"
		}
		fmt.Fprintf(out, "%-14s %s\n", s.Name(), state)
	}
	if len(failed) > 0 {
		return fmt.Errorf("sync %s failed for %s (see log)", direction, strings.Join(failed, ", "))
	}
	return nil
}

func runSyncWatch(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)
	if a.Gateway == nil {
		return app.ErrNoRemote
	}

	targets, err := selectSyncables(a, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	defer a.Bus.SubscribeSyncCompleted(func(p eventbus.SyncCompletedPayload) {
		if p.Direction != cloud.DirectionLive {
			return
		}
		state := "updated"
		if !p.OK {
			state = "rejected"
		}
		fmt.Fprintf(out, "%s %s\n", p.Collection, state)
	})()

	if len(args) == 0 {
		err = a.Watch(ctx)
	} else {
		for _, s := range targets {
			if err = a.Gateway.Subscribe(ctx, s); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %d collections, Ctrl+C to stop.\n", len(targets))
	<-ctx.Done()
	return nil
}
