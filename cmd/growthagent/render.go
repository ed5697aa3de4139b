package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"GrowthAgent/internal/domain"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderSummary(w io.Writer, summary domain.RunSummary) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s: %s in %s", summary.Workflow, summary.Status(), summary.Duration().Round(time.Millisecond)))
	t.AppendHeader(table.Row{"Stage", "Attempted", "Succeeded", "Skipped", "Failed", "Notes"})
	for _, st := range summary.Stages {
		t.AppendRow(table.Row{st.Stage, st.Attempted, st.Succeeded, st.Skipped, st.Failed, formatNotes(st.Notes)})
	}
	total := summary.Totals()
	t.AppendFooter(table.Row{"Total", total.Attempted, total.Succeeded, total.Skipped, total.Failed, ""})
	t.Render()

	for _, st := range summary.Stages {
		for _, msg := range st.Errors {
			fmt.Fprintf(w, "  %s: %s\n", st.Stage, msg)
		}
	}
	if summary.Fatal != "" {
		fmt.Fprintf(w, "fatal: %s\n", summary.Fatal)
	}
}

func formatNotes(notes map[string]string) string {
	keys := make([]string, 0, len(notes))
	for k := range notes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+notes[k])
	}
	return strings.Join(parts, " ")
}

func renderDays(w io.Writer, active, archived []string) {
	t := newTable(w)
	t.SetTitle("Curated days")
	t.AppendHeader(table.Row{"State", "Days", "Oldest", "Newest"})
	for _, group := range []struct {
		state string
		days  []string
	}{{"active", active}, {"archived", archived}} {
		oldest, newest := "-", "-"
		if n := len(group.days); n > 0 {
			oldest, newest = group.days[0], group.days[n-1]
		}
		t.AppendRow(table.Row{group.state, len(group.days), oldest, newest})
	}
	t.Render()
}

func renderRuns(w io.Writer, runs []domain.RunRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Workflow", "Status", "Started", "Duration", "Attempted", "Succeeded", "Skipped", "Failed"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Workflow,
			r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Attempted,
			r.Succeeded,
			r.Skipped,
			r.Failed,
		})
	}
	t.Render()
}

func renderSubscriptions(w io.Writer, creators []domain.CreatorSubscription, feeds []domain.FeedSubscription) {
	t := newTable(w)
	t.SetTitle("Creators")
	t.AppendHeader(table.Row{"ID", "Username", "Followers", "Subscribed", "Last fetched"})
	for _, c := range creators {
		t.AppendRow(table.Row{c.ID, "@" + c.Username, c.FollowersCount, formatTime(&c.SubscribedAt), formatTime(c.LastFetchedAt)})
	}
	t.Render()

	t = newTable(w)
	t.SetTitle("Feeds")
	t.AppendHeader(table.Row{"Title", "URL", "Status", "Category", "Last fetched"})
	for _, f := range feeds {
		status := f.Status
		if status == "" {
			status = domain.FeedActive
		}
		t.AppendRow(table.Row{f.Title, f.URL, status, f.Category, formatTime(f.LastFetchedAt)})
	}
	t.Render()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
