package sweep

// Defaults carries the single-value fallbacks taken from the base
// configuration, used when a dimension has no explicit sweep list.
// Either field may be nil when the base configuration itself leaves the
// value unset.
type Defaults struct {
	FragmentSize *int
	Compression  *string
}

// Plan expands the requested sweep lists into the ordered sequence of
// combinations to execute.
//
// Each absent list resolves to a one-element list holding the default
// (possibly nil), so the plan is never empty: with no sweep input at all
// the result is exactly one "no override" combination. The expansion is
// the cartesian product of the two dimensions in input order, with exact
// duplicates removed while preserving first-seen order.
func Plan(fragmentSizes []int, compressions []string, defaults Defaults) []Combination {
	frags := make([]*int, 0, len(fragmentSizes))
	if len(fragmentSizes) == 0 {
		frags = append(frags, defaults.FragmentSize)
	} else {
		for i := range fragmentSizes {
			frags = append(frags, &fragmentSizes[i])
		}
	}

	comps := make([]*string, 0, len(compressions))
	if len(compressions) == 0 {
		comps = append(comps, defaults.Compression)
	} else {
		for i := range compressions {
			comps = append(comps, &compressions[i])
		}
	}

	seen := make(map[string]bool)
	plan := make([]Combination, 0, len(frags)*len(comps))
	for _, frag := range frags {
		for _, comp := range comps {
			c := Combination{FragmentSize: frag, Compression: comp}
			k := c.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			plan = append(plan, c)
		}
	}
	return plan
}
