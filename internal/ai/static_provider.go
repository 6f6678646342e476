package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StaticProvider replays canned replies from a directory instead of calling a
// model. It is selected with ai.provider: static and is meant for offline demos.
// The directory holds analysis.json and summary.md.
type StaticProvider struct {
	dir string
}

// NewStaticProvider returns a provider reading replies from dir.
func NewStaticProvider(dir string) *StaticProvider {
	return &StaticProvider{dir: dir}
}

// GenerateStructured returns the contents of analysis.json.
func (s *StaticProvider) GenerateStructured(_ context.Context, _ StructuredRequest) (string, error) {
	return s.read("analysis.json")
}

// GenerateText returns the contents of summary.md.
func (s *StaticProvider) GenerateText(_ context.Context, _ TextRequest) (string, error) {
	return s.read("summary.md")
}

func (s *StaticProvider) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("read static reply: %w", err)
	}
	return string(data), nil
}
