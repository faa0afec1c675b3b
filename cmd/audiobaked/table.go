package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"audiobaked/internal/app"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderRunSummary shows each stage with its outcome and duration, followed
// by the artifacts the run left on disk.
func renderRunSummary(res *app.RunResult) string {
	durations := make(map[string]time.Duration, len(res.Timings))
	failed := make(map[string]bool, len(res.Timings))
	for _, rec := range res.Timings {
		durations[rec.Stage] = rec.Duration
		failed[rec.Stage] = rec.Failed
	}

	var rows [][]string
	for _, stage := range []app.Stage{app.StageExtract, app.StageTranscribe, app.StageMerge, app.StageWrite, app.StageBurn, app.StageAnalyze} {
		status := "not run"
		switch {
		case failed[string(stage)]:
			status = "failed"
		case containsStage(res.Completed, stage):
			status = "done"
		case containsStage(res.Skipped, stage):
			status = "skipped"
		}
		duration := ""
		if d, ok := durations[string(stage)]; ok {
			duration = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{string(stage), status, duration})
	}

	var b strings.Builder
	b.WriteString(renderTable([]string{"Stage", "Status", "Duration"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	b.WriteByte('\n')

	artifacts := artifactRows(res.Artifacts)
	if len(artifacts) > 0 {
		b.WriteString(renderTable([]string{"Artifact", "Path"}, artifacts, nil))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Run %s: %s", res.RunID, res.State)
	if res.Language != "" {
		fmt.Fprintf(&b, " (language %s, %d segments)", res.Language, res.Segments)
	}
	return b.String()
}

func artifactRows(a app.Artifacts) [][]string {
	candidates := [][2]string{
		{"audio", a.Audio},
		{"subtitles", a.Subtitles},
		{"transcript", a.Transcript},
		{"segments", a.SegmentsJSON},
		{"video", a.Video},
		{"analysis", a.Analysis},
	}
	var rows [][]string
	for _, c := range candidates {
		if c[1] != "" {
			rows = append(rows, []string{c[0], c[1]})
		}
	}
	return rows
}

func containsStage(stages []app.Stage, stage app.Stage) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

const ruler = "----------------------------------------"

func printAnalysis(out io.Writer, analysis, path string) {
	fmt.Fprintln(out, "Analysis Result:")
	fmt.Fprintln(out, ruler)
	fmt.Fprintln(out, analysis)
	fmt.Fprintln(out, ruler)
	if path != "" {
		fmt.Fprintf(out, "Analysis saved to: %s\n", path)
	}
}
