package intake

import (
	"context"

	"github.com/amishk599/geolens/internal/model"
)

// SampleAnalyzer turns an encoded image into a mineral analysis.
// *ai.Client satisfies it.
type SampleAnalyzer interface {
	AnalyzeSample(ctx context.Context, imageBase64, mimeType string) (model.MineralAnalysis, error)
}

// Summarizer writes a narrative digest of a list of analyses.
// *ai.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, analyses model.AnalysisList) (string, error)
}
