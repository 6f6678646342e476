package filter

import (
	"strings"

	"github.com/amishk599/geolens/internal/model"
)

// Ensure RockAndMineralFilter implements model.SampleFilter.
var _ model.SampleFilter = (*RockAndMineralFilter)(nil)

// RockAndMineralFilter matches samples whose rock name contains any of the
// rock keywords and which contain any of the listed minerals at or above a
// minimum percentage. Matching is case-insensitive. Empty keyword lists are
// treated as "match all".
type RockAndMineralFilter struct {
	rockKeywords  []string
	minerals      []string
	minPercentage float64
}

// NewRockAndMineralFilter returns a filter that requires both a rock keyword
// match and a mineral match (case-insensitive substring).
func NewRockAndMineralFilter(rockKeywords, minerals []string, minPercentage float64) *RockAndMineralFilter {
	return &RockAndMineralFilter{
		rockKeywords:  lowerAll(rockKeywords),
		minerals:      lowerAll(minerals),
		minPercentage: minPercentage,
	}
}

// Match returns true if the sample's rock name contains any rock keyword and
// one of its minerals contains any mineral keyword with a percentage of at
// least minPercentage. Empty keyword lists pass all.
func (f *RockAndMineralFilter) Match(s model.Sample) bool {
	if len(f.rockKeywords) > 0 && !containsAny(strings.ToLower(s.Analysis.RockName), f.rockKeywords) {
		return false
	}

	if len(f.minerals) == 0 {
		return true
	}
	for _, m := range s.Analysis.IdentifiedMinerals {
		if m.Percentage < f.minPercentage {
			continue
		}
		if containsAny(strings.ToLower(m.Name), f.minerals) {
			return true
		}
	}
	return false
}

// Apply returns the samples that match f, preserving order. A nil filter
// keeps everything.
func Apply(f model.SampleFilter, samples []model.Sample) []model.Sample {
	if f == nil {
		return samples
	}
	out := make([]model.Sample, 0, len(samples))
	for _, s := range samples {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}
