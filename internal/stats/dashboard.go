// Package stats aggregates stored samples into dashboard figures.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/model"
)

// Dashboard is a point-in-time aggregate over a set of samples.
type Dashboard struct {
	SampleCount   int           `json:"sampleCount"`
	RockTypes     []RockCount   `json:"rockTypes"`
	Minerals      []MineralStat `json:"minerals"`
	FirstSampleAt *time.Time    `json:"firstSampleAt,omitempty"`
	LastSampleAt  *time.Time    `json:"lastSampleAt,omitempty"`
}

// RockCount is how many samples were identified as one rock type.
type RockCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MineralStat describes one mineral across all samples. Percentages are
// kept as decimals so averages round the same way on every platform.
type MineralStat struct {
	Name              string          `json:"name"`
	Occurrences       int             `json:"occurrences"`
	AveragePercentage decimal.Decimal `json:"averagePercentage"`
	MaxPercentage     decimal.Decimal `json:"maxPercentage"`
}

// UnknownRock names samples whose analysis has no rock name.
const UnknownRock = "Unidentified"

type mineralAcc struct {
	name  string
	count int
	sum   decimal.Decimal
	max   decimal.Decimal
}

// Build aggregates samples. Rock and mineral names are grouped
// case-insensitively; the first spelling seen is kept for display.
// Rock types are ordered by count, minerals by occurrences, ties by name.
func Build(samples []model.Sample) Dashboard {
	d := Dashboard{
		SampleCount: len(samples),
		RockTypes:   []RockCount{},
		Minerals:    []MineralStat{},
	}

	rocks := map[string]*RockCount{}
	minerals := map[string]*mineralAcc{}
	var first, last time.Time

	for _, s := range samples {
		if !s.CreatedAt.IsZero() {
			if first.IsZero() || s.CreatedAt.Before(first) {
				first = s.CreatedAt
			}
			if s.CreatedAt.After(last) {
				last = s.CreatedAt
			}
		}

		rockName := strings.TrimSpace(s.Analysis.RockName)
		if rockName == "" {
			rockName = UnknownRock
		}
		key := strings.ToLower(rockName)
		if rc, ok := rocks[key]; ok {
			rc.Count++
		} else {
			rocks[key] = &RockCount{Name: rockName, Count: 1}
		}

		for _, m := range s.Analysis.IdentifiedMinerals {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				continue
			}
			pct := decimal.NewFromFloat(m.Percentage)
			key := strings.ToLower(name)
			acc, ok := minerals[key]
			if !ok {
				acc = &mineralAcc{name: name, max: pct}
				minerals[key] = acc
			}
			acc.count++
			acc.sum = acc.sum.Add(pct)
			if pct.GreaterThan(acc.max) {
				acc.max = pct
			}
		}
	}

	for _, rc := range rocks {
		d.RockTypes = append(d.RockTypes, *rc)
	}
	sort.Slice(d.RockTypes, func(i, j int) bool {
		if d.RockTypes[i].Count != d.RockTypes[j].Count {
			return d.RockTypes[i].Count > d.RockTypes[j].Count
		}
		return d.RockTypes[i].Name < d.RockTypes[j].Name
	})

	for _, acc := range minerals {
		d.Minerals = append(d.Minerals, MineralStat{
			Name:              acc.name,
			Occurrences:       acc.count,
			AveragePercentage: acc.sum.Div(decimal.NewFromInt(int64(acc.count))).Round(2),
			MaxPercentage:     acc.max,
		})
	}
	sort.Slice(d.Minerals, func(i, j int) bool {
		if d.Minerals[i].Occurrences != d.Minerals[j].Occurrences {
			return d.Minerals[i].Occurrences > d.Minerals[j].Occurrences
		}
		return d.Minerals[i].Name < d.Minerals[j].Name
	})

	if !first.IsZero() {
		f, l := first.UTC(), last.UTC()
		d.FirstSampleAt, d.LastSampleAt = &f, &l
	}
	return d
}

// TopRock returns the most frequent rock type, or "" for an empty dashboard.
func (d Dashboard) TopRock() string {
	if len(d.RockTypes) == 0 {
		return ""
	}
	return d.RockTypes[0].Name
}

// MineralRecords renders the mineral table for CSV export.
func (d Dashboard) MineralRecords() []export.Record {
	records := make([]export.Record, 0, len(d.Minerals))
	for _, m := range d.Minerals {
		records = append(records, export.Record{
			{Key: "mineral", Value: m.Name},
			{Key: "occurrences", Value: m.Occurrences},
			{Key: "averagePercentage", Value: m.AveragePercentage},
			{Key: "maxPercentage", Value: m.MaxPercentage},
		})
	}
	return records
}
