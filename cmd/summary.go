package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-focus-tracker/internal/app"
	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/recorder"
	"github.com/Tiliavir/trivial-focus-tracker/internal/timecalc"
)

var (
	summaryDate   string
	summaryWeek   bool
	summaryFormat string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show focus time per category for a day or week",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "Day to summarize (YYYY-MM-DD, default today)")
	summaryCmd.Flags().BoolVar(&summaryWeek, "week", false, "Summarize the ISO week containing the day")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "md", "Output format: md, json")
}

// summaryJSON is the machine-readable form of a summary.
type summaryJSON struct {
	Label        string            `json:"label"`
	TotalEvents  int               `json:"total_events"`
	TotalMinutes int64             `json:"total_minutes"`
	Categories   []categorySummary `json:"categories"`
	Days         []summaryDayJSON  `json:"days,omitempty"`
}

type categorySummary struct {
	Category     model.Category `json:"category"`
	Count        int            `json:"count"`
	TotalMinutes int64          `json:"total_minutes"`
	Descriptions []string       `json:"descriptions"`
}

type summaryDayJSON struct {
	Date         string `json:"date"`
	TotalMinutes int64  `json:"total_minutes"`
}

func runSummary(cmd *cobra.Command, args []string) (err error) {
	day, err := dateFlag(summaryDate)
	if err != nil {
		return err
	}

	a, done, err := openApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(done, &err)

	label := day.String()
	var days []recorder.Summary
	total := a.Recorder.SummaryFor(day)
	if summaryWeek {
		label = timecalc.ISOWeekLabel(day)
		var all []model.EventRecord
		for _, d := range timecalc.Week(day) {
			days = append(days, a.Recorder.SummaryFor(d))
			all = append(all, a.Events.OnDate(d)...)
		}
		total = recorder.Summarize(day, all)
	}

	out := cmd.OutOrStdout()
	if summaryFormat == "json" {
		return printSummaryJSON(out, label, total, days)
	}
	printSummary(out, label, total, days)
	return nil
}

func printSummary(w io.Writer, label string, s recorder.Summary, days []recorder.Summary) {
	fmt.Fprintf(w, "Focus %s\n", label)
	fmt.Fprintln(w, "--------------------------------")
	for _, d := range days {
		fmt.Fprintf(w, "%-20s%s\n", d.Date.In(time.Local).Format("Mon 2006-01-02"), d.Formatted())
	}
	if len(days) > 0 {
		fmt.Fprintln(w, "--------------------------------")
	}
	for _, c := range s.Categories() {
		st := s.PerCategory[c]
		fmt.Fprintf(w, "%-20s%s  (%d sessions)\n", c, timecalc.FormatHoursMinutes(st.TotalDuration), st.Count)
	}
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "%-20s%s  (%d sessions)\n", "Total", s.Formatted(), s.TotalEvents)
}

func printSummaryJSON(w io.Writer, label string, s recorder.Summary, days []recorder.Summary) error {
	out := summaryJSON{
		Label:        label,
		TotalEvents:  s.TotalEvents,
		TotalMinutes: s.TotalDurationSeconds / 60,
		Categories:   []categorySummary{},
	}
	for _, c := range s.Categories() {
		st := s.PerCategory[c]
		out.Categories = append(out.Categories, categorySummary{
			Category:     c,
			Count:        st.Count,
			TotalMinutes: st.TotalDuration / 60,
			Descriptions: st.Descriptions,
		})
	}
	for _, d := range days {
		out.Days = append(out.Days, summaryDayJSON{Date: d.Date.String(), TotalMinutes: d.TotalDurationSeconds / 60})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
