package main

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/MuXiu1997/ass-processor/internal/batch"
	"github.com/MuXiu1997/ass-processor/internal/logger"
)

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}

func renderResults(results []batch.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status, detail := "OK", res.OutputPath
		if !res.OK {
			status, detail = "FAILED", logger.FormatError(res.Err)
		}
		rows = append(rows, []string{res.Name, status, detail})
	}
	return renderTable([]string{"Job", "Status", "Output"}, rows)
}
