// Package stats computes before/after statistics for a transformation.
package stats

import (
	"math"
	"strings"
)

// Stats summarises a legacy/transformed pair.
type Stats struct {
	OriginalLines        int `json:"originalLines"`
	TransformedLines     int `json:"transformedLines"`
	CodeReductionPercent int `json:"codeReduction"`
	LineReductionPercent int `json:"lineReduction"`
}

// Compute derives Stats from the two texts. Line counts are the number of
// newline-separated segments, so an empty string counts as one line.
// CodeReductionPercent compares byte lengths and is 0 for empty original.
func Compute(original, transformed string) Stats {
	ol := Lines(original)
	tl := Lines(transformed)
	return Stats{
		OriginalLines:        ol,
		TransformedLines:     tl,
		CodeReductionPercent: Reduction(len(original), len(transformed)),
		LineReductionPercent: Reduction(ol, tl),
	}
}

// Lines counts newline-separated segments in s.
func Lines(s string) int {
	return strings.Count(s, "\n") + 1
}

// Reduction returns round((before-after)/before*100), negative when the text
// grew. A zero before yields 0.
func Reduction(before, after int) int {
	if before == 0 {
		return 0
	}
	return Round(float64(before-after) / float64(before) * 100)
}

// Round rounds half toward positive infinity, so Round(-2.5) is -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}
