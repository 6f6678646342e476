package ai

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed prompts/sample_analysis.md
var sampleAnalysisPromptRaw string

//go:embed prompts/dashboard_summary.md
var dashboardSummaryPromptRaw string

// SampleAnalysisPrompt is the fixed instruction sent with every sample image.
var SampleAnalysisPrompt = strings.TrimSpace(sampleAnalysisPromptRaw)

// DashboardSummaryTemplate renders the digest prompt around the JSON analysis list.
// Parsed once at package init; reused on every Summarize call.
var DashboardSummaryTemplate = template.Must(template.New("dashboard_summary").Parse(dashboardSummaryPromptRaw))
