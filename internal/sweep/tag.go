package sweep

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tag is the structured correlation key linking a combination's runs to
// the metrics rows they emit. The wire form produced by String is written
// into the run environment as the metrics note and later used verbatim to
// filter the metrics file, so both sides must go through this one type.
type Tag struct {
	Scheme       string
	FragmentSize *int
	Compression  *string
	PacketLoss   float64 // included only when > 0
	BasePort     *int    // included only when set
	Note         string  // free-form user note, appended last
}

// TagOptions carries the per-invocation fields of a tag that do not vary
// across combinations.
type TagOptions struct {
	PacketLoss float64
	BasePort   *int
	Note       string
}

// NewTag builds the correlation tag for one combination.
//
// The user note is trimmed and NFC-normalized before embedding: the tag
// must compare byte-for-byte between the write side (environment) and the
// read side (metrics filter), and an unnormalized note typed differently
// on a re-invocation would silently correlate to nothing.
func NewTag(scheme string, c Combination, opts TagOptions) Tag {
	return Tag{
		Scheme:       scheme,
		FragmentSize: c.FragmentSize,
		Compression:  c.Compression,
		PacketLoss:   opts.PacketLoss,
		BasePort:     opts.BasePort,
		Note:         norm.NFC.String(strings.TrimSpace(opts.Note)),
	}
}

// String renders the wire form of the tag:
//
//	scheme=<s>[;fragment=<n>][;compression=<c>][;loss=<r>][;port=<p>][;<note>]
func (t Tag) String() string {
	var b strings.Builder
	b.WriteString("scheme=")
	b.WriteString(t.Scheme)
	if t.FragmentSize != nil {
		b.WriteString(";fragment=")
		b.WriteString(strconv.Itoa(*t.FragmentSize))
	}
	if t.Compression != nil {
		b.WriteString(";compression=")
		b.WriteString(*t.Compression)
	}
	if t.PacketLoss > 0 {
		b.WriteString(";loss=")
		b.WriteString(strconv.FormatFloat(t.PacketLoss, 'g', -1, 64))
	}
	if t.BasePort != nil {
		b.WriteString(";port=")
		b.WriteString(strconv.Itoa(*t.BasePort))
	}
	if t.Note != "" {
		b.WriteString(";")
		b.WriteString(t.Note)
	}
	return b.String()
}
