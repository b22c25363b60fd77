package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the latency observations of one correlation group.
// All fields are zero when no record carries a valid total latency, so a
// correlation miss degrades to an empty summary rather than an error.
type Summary struct {
	Count        int
	MeanTotalUS  float64
	StdevTotalUS float64 // population standard deviation; 0 below two observations
	MinTotalUS   float64
	MaxTotalUS   float64
	MeanTotalMS  float64
	MeanFirstUS  float64
	MeanLastUS   float64
}

// Empty reports whether the summary holds no valid observations.
func (s Summary) Empty() bool { return s.Count == 0 }

// Summarize computes summary statistics over a set of records. Records
// missing the total latency do not contribute to Count; first/last
// fragment means are taken over their own valid subsets.
func Summarize(records []Record) Summary {
	var totals, firsts, lasts []float64
	for _, r := range records {
		if r.TotalUS != nil {
			totals = append(totals, *r.TotalUS)
		}
		if r.FirstUS != nil {
			firsts = append(firsts, *r.FirstUS)
		}
		if r.LastUS != nil {
			lasts = append(lasts, *r.LastUS)
		}
	}

	if len(totals) == 0 {
		return Summary{}
	}

	s := Summary{
		Count:       len(totals),
		MeanTotalUS: stat.Mean(totals, nil),
		MinTotalUS:  floats.Min(totals),
		MaxTotalUS:  floats.Max(totals),
	}
	if len(totals) > 1 {
		s.StdevTotalUS = stat.PopStdDev(totals, nil)
	}
	s.MeanTotalMS = s.MeanTotalUS / 1000.0
	if len(firsts) > 0 {
		s.MeanFirstUS = stat.Mean(firsts, nil)
	}
	if len(lasts) > 0 {
		s.MeanLastUS = stat.Mean(lasts, nil)
	}
	return s
}
