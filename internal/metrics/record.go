// Package metrics reads and writes the shared latency metrics CSV file
// and aggregates observations into summary statistics.
//
// The file format is a compatibility surface: the external benchmark
// appends one row per completed run, the file may already contain rows
// from unrelated prior invocations, and the harness only ever appends.
package metrics

import "strings"

// Header is the exact CSV header row, written once at file creation.
const Header = "run,scheme,total_us,first_us,last_us,note"

// Record is one row of the metrics file. Latency fields are pointers
// because a row may carry missing or unparseable numbers; such a field is
// absent for that record, never a read failure.
type Record struct {
	Run     int
	Scheme  string
	TotalUS *float64
	FirstUS *float64
	LastUS  *float64
	Note    string
}

// ParseNote splits a correlation note into its key=value fields.
// Chunks without "=" (such as a free-form user suffix) are ignored.
func ParseNote(note string) map[string]string {
	fields := make(map[string]string)
	if note == "" {
		return fields
	}
	for _, chunk := range strings.Split(note, ";") {
		if chunk == "" {
			continue
		}
		if k, v, ok := strings.Cut(chunk, "="); ok {
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return fields
}
