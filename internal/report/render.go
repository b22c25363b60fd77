package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var tableHeaders = []string{
	"group", "count", "avg_total_us", "stdev_total_us",
	"min_total_us", "max_total_us", "avg_total_ms",
}

func tableRow(g Group) []string {
	s := g.Summary
	return []string{
		g.Key,
		fmt.Sprintf("%d", s.Count),
		fmt.Sprintf("%.2f", s.MeanTotalUS),
		fmt.Sprintf("%.2f", s.StdevTotalUS),
		fmt.Sprintf("%.2f", s.MinTotalUS),
		fmt.Sprintf("%.2f", s.MaxTotalUS),
		fmt.Sprintf("%.4f", s.MeanTotalMS),
	}
}

// WriteTable renders an aligned console table.
func WriteTable(w io.Writer, groups []Group) {
	rows := make([][]string, len(groups))
	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for i, g := range groups {
		rows[i] = tableRow(g)
		for j, cell := range rows[i] {
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}

	formatRow := func(cells []string) string {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			padded[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		return strings.Join(padded, " | ")
	}

	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}

	fmt.Fprintln(w, formatRow(tableHeaders))
	fmt.Fprintln(w, strings.Join(separators, "-+-"))
	for _, row := range rows {
		fmt.Fprintln(w, formatRow(row))
	}
}

// WriteMarkdown renders a Markdown table.
func WriteMarkdown(w io.Writer, groups []Group) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(tableHeaders, " | "))
	dashes := make([]string, len(tableHeaders))
	for i := range dashes {
		dashes[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(dashes, " | "))
	for _, g := range groups {
		fmt.Fprintf(w, "| %s |\n", strings.Join(tableRow(g), " | "))
	}
}

// jsonSummary mirrors the historical JSON export field names.
type jsonSummary struct {
	Count        int     `json:"count"`
	AvgTotalUS   float64 `json:"avg_total_us"`
	StdevTotalUS float64 `json:"stdev_total_us"`
	AvgTotalMS   float64 `json:"avg_total_ms"`
	MinTotalUS   float64 `json:"min_total_us"`
	MaxTotalUS   float64 `json:"max_total_us"`
	AvgFirstUS   float64 `json:"avg_first_us"`
	AvgLastUS    float64 `json:"avg_last_us"`
}

// WriteJSON renders the group summaries as a JSON object keyed by group
// id.
func WriteJSON(w io.Writer, groups []Group) error {
	out := make(map[string]jsonSummary, len(groups))
	for _, g := range groups {
		s := g.Summary
		out[g.Key] = jsonSummary{
			Count:        s.Count,
			AvgTotalUS:   s.MeanTotalUS,
			StdevTotalUS: s.StdevTotalUS,
			AvgTotalMS:   s.MeanTotalMS,
			MinTotalUS:   s.MinTotalUS,
			MaxTotalUS:   s.MaxTotalUS,
			AvgFirstUS:   s.MeanFirstUS,
			AvgLastUS:    s.MeanLastUS,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
