package model

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateDigest is returned by SampleStore.Save when a sample with the
// same image digest already exists.
var ErrDuplicateDigest = errors.New("sample with this digest already exists")

// MineralEntry is one mineral identified in a rock sample.
type MineralEntry struct {
	Name        string  `json:"name"`
	Percentage  float64 `json:"percentage"` // 0-100, entries need not sum to 100
	Description string  `json:"description"`
}

// MineralAnalysis is the model's reading of a single rock-sample image.
type MineralAnalysis struct {
	RockName           string         `json:"rockName"`
	Description        string         `json:"description"`
	IdentifiedMinerals []MineralEntry `json:"identifiedMinerals"`
	EconomicPotential  string         `json:"economicPotential"`
}

// AnalysisList is an ordered, caller-owned collection of analyses.
type AnalysisList []MineralAnalysis

// Sample is a persisted analysis together with the image it came from.
type Sample struct {
	ID        string          `json:"id"`
	FileName  string          `json:"fileName"`
	MIMEType  string          `json:"mimeType"`
	Digest    string          `json:"digest"` // sha256 hex of the image bytes
	Analysis  MineralAnalysis `json:"analysis"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Analyses extracts the analyses of samples, preserving order.
// The result is never nil so it serializes as [] when empty.
func Analyses(samples []Sample) AnalysisList {
	list := make(AnalysisList, 0, len(samples))
	for _, s := range samples {
		list = append(list, s.Analysis)
	}
	return list
}

// Digest is a generated narrative summary handed to notifiers.
type Digest struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"` // markdown
	SampleCount int       `json:"sampleCount"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// SampleStore persists analyzed samples.
type SampleStore interface {
	Save(ctx context.Context, s Sample) error
	Get(ctx context.Context, id string) (Sample, error)
	List(ctx context.Context) ([]Sample, error)
	FindByDigest(ctx context.Context, digest string) (Sample, bool, error)
	Delete(ctx context.Context, id string) error
}

// Notifier publishes a generated digest.
type Notifier interface {
	Notify(d Digest) error
}

// SampleFilter decides whether a sample matches the user's criteria.
type SampleFilter interface {
	Match(s Sample) bool
}
