package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/san-kum/trajgen/internal/planner"
)

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899")).
		Width(20)

	value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff"))

	passed = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ff88"))

	failed = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ff4444"))

	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printWarning(format string, a ...any) {
	yellow.Fprintf(os.Stderr, "warning: "+format, a...)
}

func printError(err error) {
	red.Fprintf(os.Stderr, "error: %v\n", err)
}

func statusText(res *planner.Result) string {
	if res.Success {
		return "ok"
	}
	return "failed"
}

// renderSummary formats a planning result as a bordered panel.
func renderSummary(res *planner.Result, runID string, metrics map[string]float64) string {
	var b strings.Builder
	row := func(k, v string) {
		b.WriteString(label.Render(k) + value.Render(v) + "\n")
	}

	status := passed.Render("SUCCESS")
	if !res.Success {
		status = failed.Render(res.Phase.String())
	}
	b.WriteString(title.Render(res.Problem) + "  " + status + "\n\n")

	row("residual", fmt.Sprintf("%.3e", res.Residual))
	row("refinements", fmt.Sprintf("%d", res.Refinements))
	row("state segments", fmt.Sprintf("%d", res.SegmentsX))
	row("input segments", fmt.Sprintf("%d", res.SegmentsU))
	row("solver iterations", fmt.Sprintf("%d", res.SolverIterations))
	row("solver status", res.Checks.SolverStatus)
	row("boundary error", fmt.Sprintf("%.3e", res.Checks.BoundaryError))
	row("collocation error", fmt.Sprintf("%.3e", res.Checks.CollocationError))
	row("simulation error", fmt.Sprintf("%.3e", res.Checks.SimulationError))
	if len(res.Chains) > 0 {
		names := make([]string, len(res.Chains))
		for i, c := range res.Chains {
			names[i] = c.String()
		}
		row("chains", strings.Join(names, ", "))
	}
	row("time", res.Duration.String())

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row(k, fmt.Sprintf("%.6g", metrics[k]))
	}
	if runID != "" {
		row("run id", runID)
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

// stateBound is the magnitude above which a replayed state counts as
// diverged.
func stateBound(p planner.Problem) float64 {
	m := 1.0
	for _, v := range append(append([]float64(nil), p.XA...), p.XB...) {
		m = math.Max(m, math.Abs(v))
	}
	return 10 * m
}
