// Package sweep expands user-specified parameter ranges into the ordered
// set of combinations a sweep will execute, and builds the correlation
// tags that tie each combination to the metrics rows it produces.
package sweep

import (
	"fmt"
	"strconv"
)

// Combination is one point in the sweep parameter space.
// A nil dimension means "no override" - the benchmark falls back to the
// value in the base configuration.
type Combination struct {
	FragmentSize *int
	Compression  *string
}

// Equal reports whether two combinations cover the same point, treating
// absence of a dimension as a distinct value.
func (c Combination) Equal(o Combination) bool {
	if (c.FragmentSize == nil) != (o.FragmentSize == nil) {
		return false
	}
	if c.FragmentSize != nil && *c.FragmentSize != *o.FragmentSize {
		return false
	}
	if (c.Compression == nil) != (o.Compression == nil) {
		return false
	}
	if c.Compression != nil && *c.Compression != *o.Compression {
		return false
	}
	return true
}

// key returns a deduplication key unique per combination, including the
// absent/present distinction for each dimension.
func (c Combination) key() string {
	frag := "-"
	if c.FragmentSize != nil {
		frag = strconv.Itoa(*c.FragmentSize)
	}
	comp := "-"
	if c.Compression != nil {
		comp = *c.Compression
	}
	return frag + "\x00" + comp
}

// String renders the combination for plan output and logs.
func (c Combination) String() string {
	frag := "default"
	if c.FragmentSize != nil {
		frag = strconv.Itoa(*c.FragmentSize)
	}
	comp := "default"
	if c.Compression != nil {
		comp = *c.Compression
	}
	return fmt.Sprintf("fragment_size=%s, compression=%s", frag, comp)
}
