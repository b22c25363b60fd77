// Package report groups correlated metrics records by their note fields
// and renders aggregated summaries as console tables, Markdown, or JSON.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pqv2x/falconsweep/internal/metrics"
)

// DefaultGroupKeys are the note keys used for grouping when none are
// specified.
var DefaultGroupKeys = []string{"scheme", "fragment", "compression", "loss"}

// Group is one aggregation bucket: all records sharing the same values
// for the selected note keys.
type Group struct {
	Key     string // group id, note-key values joined by ";"
	Records []metrics.Record
	Summary metrics.Summary
}

// Build filters records by key=value selectors, buckets them by the
// group keys, and summarizes each bucket. Groups are sorted by key for
// deterministic output.
func Build(records []metrics.Record, filters []string, groupKeys []string) ([]Group, error) {
	if len(groupKeys) == 0 {
		groupKeys = DefaultGroupKeys
	}
	parsed, err := parseFilters(filters)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]metrics.Record)
	for _, rec := range records {
		fields := metrics.ParseNote(rec.Note)
		if !matches(fields, parsed) {
			continue
		}
		id := groupID(fields, groupKeys)
		buckets[id] = append(buckets[id], rec)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		recs := buckets[k]
		groups = append(groups, Group{
			Key:     k,
			Records: recs,
			Summary: metrics.Summarize(recs),
		})
	}
	return groups, nil
}

type filter struct {
	key   string
	value string
}

func parseFilters(raw []string) ([]filter, error) {
	filters := make([]filter, 0, len(raw))
	for _, item := range raw {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", item)
		}
		filters = append(filters, filter{key: strings.TrimSpace(k), value: strings.TrimSpace(v)})
	}
	return filters, nil
}

func matches(fields map[string]string, filters []filter) bool {
	for _, f := range filters {
		if fields[f.key] != f.value {
			return false
		}
	}
	return true
}

// groupID joins the selected note-key values, substituting "-" for keys
// the note does not carry.
func groupID(fields map[string]string, groupKeys []string) string {
	parts := make([]string, len(groupKeys))
	for i, key := range groupKeys {
		if v, ok := fields[key]; ok {
			parts[i] = v
		} else {
			parts[i] = "-"
		}
	}
	return strings.Join(parts, ";")
}
