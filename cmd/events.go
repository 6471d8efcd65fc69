package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timecalc"
)

var (
	eventsDate   string
	eventsAll    bool
	eventsFormat string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded focus sessions",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

var eventsRmCmd = &cobra.Command{
	Use:   "rm <n>",
	Short: "Delete a recorded session by its number",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsRm,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsDate, "date", "", "Day to show (YYYY-MM-DD, default today)")
	eventsCmd.Flags().BoolVar(&eventsAll, "all", false, "Show every recorded session")
	eventsCmd.Flags().StringVar(&eventsFormat, "format", "md", "Output format: md, csv, json")
	eventsCmd.AddCommand(eventsRmCmd)
}

// numberedRecord keeps the store position so "events rm" can address it.
type numberedRecord struct {
	N      int
	Record model.EventRecord
}

func runEvents(cmd *cobra.Command, args []string) (err error) {
	day, err := dateFlag(eventsDate)
	if err != nil {
		return err
	}

	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	var recs []numberedRecord
	for i, r := range a.Events.Items() {
		if eventsAll || model.DateOf(r.StartTime.Local()) == day {
			recs = append(recs, numberedRecord{N: i + 1, Record: r})
		}
	}

	out := cmd.OutOrStdout()
	switch eventsFormat {
	case "json":
		return printEventsJSON(out, recs)
	case "csv":
		return printEventsCSV(out, recs)
	default:
		printEvents(out, recs)
		return nil
	}
}

func printEvents(w io.Writer, recs []numberedRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	var currentDay string
	for _, nr := range recs {
		r := nr.Record
		start := r.StartTime.Local()
		day := start.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}
		fmt.Fprintf(w, "%3d. %s–%s  %-8s %s (%s)\n",
			nr.N,
			start.Format("15:04"),
			r.EndTime.Local().Format("15:04"),
			r.Category,
			r.Description,
			timecalc.FormatDuration(r.DurationSeconds),
		)
	}
}

func printEventsCSV(w io.Writer, recs []numberedRecord) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"n", "date", "description", "category", "start", "end", "duration_minutes"})
	for _, nr := range recs {
		r := nr.Record
		_ = cw.Write([]string{
			strconv.Itoa(nr.N),
			r.StartTime.Local().Format("2006-01-02"),
			r.Description,
			string(r.Category),
			r.StartTime.Format(time.RFC3339),
			r.EndTime.Format(time.RFC3339),
			strconv.FormatInt(r.DurationSeconds/60, 10),
		})
	}
	cw.Flush()
	return cw.Error()
}

func printEventsJSON(w io.Writer, recs []numberedRecord) error {
	list := make([]model.EventRecord, 0, len(recs))
	for _, nr := range recs {
		list = append(list, nr.Record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

func runEventsRm(cmd *cobra.Command, args []string) (err error) {
	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > a.Events.Len() {
		return fmt.Errorf("no event number %q (have %d)", args[0], a.Events.Len())
	}
	r, err := a.Events.At(n - 1)
	if err != nil {
		return err
	}
	if err := a.Recorder.DeleteRecord(n - 1); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q (%s)\n", r.Description, timecalc.FormatDuration(r.DurationSeconds))
	return nil
}

// dateFlag parses an optional YYYY-MM-DD flag value, defaulting to today.
func dateFlag(s string) (model.Date, error) {
	if s == "" {
		return today(), nil
	}
	d, ok := model.ParseDate(s)
	if !ok {
		return model.Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}
