package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/geolens/internal/model"
)

// SampleRecords flattens samples into one CSV record each. Minerals are
// folded into a single "Name (pct%)" list separated by semicolons.
func SampleRecords(samples []model.Sample) []Record {
	records := make([]Record, 0, len(samples))
	for _, s := range samples {
		records = append(records, Record{
			{Key: "id", Value: s.ID},
			{Key: "fileName", Value: s.FileName},
			{Key: "rockName", Value: s.Analysis.RockName},
			{Key: "description", Value: s.Analysis.Description},
			{Key: "minerals", Value: mineralList(s.Analysis.IdentifiedMinerals)},
			{Key: "economicPotential", Value: s.Analysis.EconomicPotential},
			{Key: "analyzedAt", Value: s.CreatedAt.UTC().Format(time.RFC3339)},
		})
	}
	return records
}

// MineralRecords emits one record per identified mineral, for spreadsheets
// that chart concentrations.
func MineralRecords(samples []model.Sample) []Record {
	var records []Record
	for _, s := range samples {
		for _, m := range s.Analysis.IdentifiedMinerals {
			records = append(records, Record{
				{Key: "sampleId", Value: s.ID},
				{Key: "rockName", Value: s.Analysis.RockName},
				{Key: "mineral", Value: m.Name},
				{Key: "percentage", Value: m.Percentage},
				{Key: "description", Value: m.Description},
			})
		}
	}
	return records
}

func mineralList(minerals []model.MineralEntry) string {
	parts := make([]string, len(minerals))
	for i, m := range minerals {
		parts[i] = fmt.Sprintf("%s (%s%%)", m.Name, strconv.FormatFloat(m.Percentage, 'f', -1, 64))
	}
	return strings.Join(parts, "; ")
}
