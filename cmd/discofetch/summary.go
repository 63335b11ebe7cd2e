package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"discofetch/pkg/discofetch"
)

// renderReport formats the run summary as a small table.
func renderReport(report *discofetch.Report) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(table.Row{"", "Rows"})
	tw.AppendRows([]table.Row{
		{"Total", strconv.Itoa(report.Rows)},
		{"Urls resolved", strconv.Itoa(report.Resolved)},
		{"Urls not found", strconv.Itoa(report.Exhausted)},
		{"Already resolved", strconv.Itoa(report.Skipped)},
		{"Details added", strconv.Itoa(report.Detailed)},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
