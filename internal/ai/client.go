package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/amishk599/geolens/internal/model"
)

const (
	analysisTemperature float32 = 0.2
	summaryTemperature  float32 = 0.3
)

// Client turns sample images into MineralAnalysis values and analysis lists
// into narrative digests. Every call is a single attempt against gen.
type Client struct {
	gen    Generator
	logger *slog.Logger
}

// NewClient creates a client backed by gen. A nil logger discards diagnostics.
func NewClient(gen Generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{gen: gen, logger: logger}
}

// AnalyzeSample asks the model to identify the rock and minerals in an image.
// mimeType is trusted from the caller. The decoded reply is returned as-is:
// only JSON decoding is checked, not the presence of individual fields.
func (c *Client) AnalyzeSample(ctx context.Context, imageBase64, mimeType string) (model.MineralAnalysis, error) {
	raw, err := c.gen.GenerateStructured(ctx, StructuredRequest{
		Image:       InlineImage{Data: imageBase64, MIMEType: mimeType},
		Prompt:      SampleAnalysisPrompt,
		Schema:      analysisSchema,
		SchemaName:  analysisSchemaName,
		Temperature: analysisTemperature,
	})
	if err != nil {
		return model.MineralAnalysis{}, c.unavailable("analyze", analyzeFailedMessage, err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return model.MineralAnalysis{}, c.unavailable("analyze", analyzeFailedMessage, err)
	}
	return analysis, nil
}

// Summarize asks the model for a markdown executive summary of analyses.
// An empty list is not rejected; it is sent as []. The reply is returned
// without trimming.
func (c *Client) Summarize(ctx context.Context, analyses model.AnalysisList) (string, error) {
	prompt, err := renderSummaryPrompt(analyses)
	if err != nil {
		return "", c.unavailable("summarize", summarizeFailedMessage, err)
	}

	text, err := c.gen.GenerateText(ctx, TextRequest{
		Prompt:      prompt,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", c.unavailable("summarize", summarizeFailedMessage, err)
	}
	return text, nil
}

func (c *Client) unavailable(op, msg string, cause error) error {
	c.logger.Error("ai request failed", "op", op, "error", cause)
	return &UnavailableError{Op: op, Message: msg}
}

// parseAnalysis decodes the model reply after trimming surrounding whitespace.
// Only a syntax error fails. Fields of the wrong JSON type are coerced the way
// a loosely typed consumer would read them: scalars become text, numeric
// strings become percentages, anything else is left at its zero value.
func parseAnalysis(raw string) (model.MineralAnalysis, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return model.MineralAnalysis{}, fmt.Errorf("unmarshal analysis JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return model.MineralAnalysis{}, fmt.Errorf("unmarshal analysis JSON: trailing data after value")
	}

	obj, _ := v.(map[string]any)
	a := model.MineralAnalysis{
		RockName:          looseString(obj["rockName"]),
		Description:       looseString(obj["description"]),
		EconomicPotential: looseString(obj["economicPotential"]),
	}
	if list, ok := obj["identifiedMinerals"].([]any); ok {
		a.IdentifiedMinerals = make([]model.MineralEntry, 0, len(list))
		for _, item := range list {
			m, _ := item.(map[string]any)
			a.IdentifiedMinerals = append(a.IdentifiedMinerals, model.MineralEntry{
				Name:        looseString(m["name"]),
				Percentage:  looseNumber(m["percentage"]),
				Description: looseString(m["description"]),
			})
		}
	}
	return a, nil
}

func looseString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func looseNumber(v any) float64 {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%"))
	default:
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func renderSummaryPrompt(analyses model.AnalysisList) (string, error) {
	if analyses == nil {
		analyses = model.AnalysisList{}
	}
	data, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analyses: %w", err)
	}

	var buf bytes.Buffer
	if err := DashboardSummaryTemplate.Execute(&buf, struct{ Data string }{Data: string(data)}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
