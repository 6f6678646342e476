package ai

import "errors"

// ErrAnalysisUnavailable is the only failure kind the client surfaces.
// Transport errors and malformed model output are indistinguishable to callers.
var ErrAnalysisUnavailable = errors.New("ai analysis unavailable")

// UnavailableError is returned by Client operations. It deliberately carries
// no cause: the original error is logged, never exposed.
type UnavailableError struct {
	Op      string // "analyze" or "summarize"
	Message string
}

func (e *UnavailableError) Error() string {
	return e.Message
}

// Is reports true for ErrAnalysisUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrAnalysisUnavailable
}

const (
	analyzeFailedMessage   = "failed to get a valid analysis from the AI: the model may have returned an unexpected format"
	summarizeFailedMessage = "failed to generate a valid summary from the AI"
)
