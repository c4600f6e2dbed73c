package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/amishk599/remoteboard/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = cellStyle.Foreground(lipgloss.Color("196"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// newTable returns a bordered table; rows for which failed reports true are
// rendered in red.
func newTable(headers []string, rows [][]string, failed func(row int) bool) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed != nil && failed(row):
				return failedStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)
}

func renderReport(r model.RunReport) string {
	rows := make([][]string, 0, len(r.PerSource)+1)
	for _, s := range r.PerSource {
		status := "ok"
		switch {
		case s.ErrorMessage != "":
			status = truncate(s.ErrorMessage, 60)
		case s.ReconcileError != "":
			status = "reconcile: " + truncate(s.ReconcileError, 48)
		}
		rows = append(rows, []string{
			s.SourceID,
			string(s.SourceType),
			strconv.Itoa(s.Stats.Found),
			strconv.Itoa(s.Stats.Relevant),
			strconv.Itoa(s.Stats.Processed),
			strconv.Itoa(s.Stats.Errors),
			strconv.Itoa(s.Expired),
			status,
		})
	}
	rows = append(rows, []string{
		"TOTAL", "",
		strconv.Itoa(r.Totals.Found),
		strconv.Itoa(r.Totals.Relevant),
		strconv.Itoa(r.Totals.Processed),
		strconv.Itoa(r.Totals.Errors),
		strconv.Itoa(r.Expired),
		string(r.State),
	})

	t := newTable(
		[]string{"Source", "ATS", "Found", "Relevant", "Processed", "Errors", "Expired", "Status"},
		rows,
		func(row int) bool { return row < len(r.PerSource) && r.PerSource[row].ErrorMessage != "" },
	)

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished in %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

func renderSources(sources []model.Source) string {
	rows := make([][]string, 0, len(sources))
	for _, s := range sources {
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
		}
		rows = append(rows, []string{s.ID, s.Name, string(s.Type), status, formatWhen(s.LastFetched)})
	}
	t := newTable(
		[]string{"ID", "Name", "ATS", "Status", "Last fetched"},
		rows,
		func(row int) bool { return !sources[row].Enabled },
	)
	return t.String() + "\n"
}

func renderJobs(jobs []model.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			truncate(j.Title, 40),
			truncate(j.CompanyName, 24),
			string(j.WorkplaceType),
			string(j.ExperienceLevel),
			truncate(strings.Join(j.Skills, ", "), 32),
			j.PublishedAt.Format("2006-01-02"),
			string(j.Status),
		})
	}
	t := newTable(
		[]string{"Title", "Company", "Workplace", "Level", "Skills", "Published", "Status"},
		rows,
		nil,
	)
	return t.String() + "\n"
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
