package metrics

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EnsureHeader guarantees the metrics file exists and starts with the
// header row. Idempotent: an existing file whose first line already looks
// like the header is left untouched, so re-invocation never duplicates
// the header or truncates prior rows.
func EnsureHeader(path string) error {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		first, readErr := bufio.NewReader(f).ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read metrics file: %w", readErr)
		}
		if strings.HasPrefix(first, "run,") {
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}

	if err := os.WriteFile(path, []byte(Header+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write metrics header: %w", err)
	}
	return nil
}

// Append adds one record to the metrics file. In production the external
// binary is the writer; this is used by tests and tooling.
func Append(path string, r Record) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		strconv.Itoa(r.Run),
		r.Scheme,
		formatField(r.TotalUS),
		formatField(r.FirstUS),
		formatField(r.LastUS),
		r.Note,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to append metrics row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Read returns the records in the metrics file whose note equals tag
// exactly. An empty tag matches every record. A missing file yields an
// empty result, not an error; a row with unparseable numeric fields is
// kept with those fields absent.
func Read(path, tag string) ([]Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate short rows from older writers

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics header: %w", err)
	}
	cols := columnIndex(header)

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read metrics row: %w", err)
		}

		note := field(row, cols.idx("note"))
		if tag != "" && note != tag {
			continue
		}

		rec := Record{
			Scheme:  field(row, cols.idx("scheme")),
			Note:    note,
			TotalUS: parseField(field(row, cols.idx("total_us"))),
			FirstUS: parseField(field(row, cols.idx("first_us"))),
			LastUS:  parseField(field(row, cols.idx("last_us"))),
		}
		if run, err := strconv.Atoi(field(row, cols.idx("run"))); err == nil {
			rec.Run = run
		}
		records = append(records, rec)
	}
	return records, nil
}

type columns map[string]int

func columnIndex(header []string) columns {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

// idx returns the column position or -1 when the column is missing.
func (c columns) idx(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseField converts a numeric cell, treating empty, unparseable, or
// negative values as absent.
func parseField(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func formatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
