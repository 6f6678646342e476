package intake

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/geolens/internal/model"
)

// --- Mock/Fake Implementations ---

// MockAnalyzer returns a canned analysis or error and records what it was sent.
type MockAnalyzer struct {
	Analysis model.MineralAnalysis
	Err      error

	calls    int
	lastMIME string
	lastData string
}

func (m *MockAnalyzer) AnalyzeSample(_ context.Context, imageBase64, mimeType string) (model.MineralAnalysis, error) {
	m.calls++
	m.lastMIME = mimeType
	m.lastData = imageBase64
	return m.Analysis, m.Err
}

// MockSummarizer returns canned text and records the analyses it received.
type MockSummarizer struct {
	Text string
	Err  error

	got model.AnalysisList
}

func (m *MockSummarizer) Summarize(_ context.Context, analyses model.AnalysisList) (string, error) {
	m.got = analyses
	return m.Text, m.Err
}

// InMemoryStore is a slice-backed store for testing dedup.
type InMemoryStore struct {
	mu      sync.Mutex
	samples []model.Sample
}

func (s *InMemoryStore) Save(_ context.Context, smp model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, smp)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (model.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, smp := range s.samples {
		if smp.ID == id {
			return smp, nil
		}
	}
	return model.Sample{}, errors.New("not found")
}

func (s *InMemoryStore) List(_ context.Context) ([]model.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Sample{}, s.samples...), nil
}

func (s *InMemoryStore) FindByDigest(_ context.Context, digest string) (model.Sample, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, smp := range s.samples {
		if smp.Digest == digest {
			return smp, true, nil
		}
	}
	return model.Sample{}, false, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error { return nil }

// racingStore hides winner from the first FindByDigest, as if another
// ingest saved it between the lookup and the insert.
type racingStore struct {
	InMemoryStore
	winner  model.Sample
	lookups int
}

func (s *racingStore) FindByDigest(ctx context.Context, digest string) (model.Sample, bool, error) {
	s.lookups++
	if s.lookups == 1 {
		return model.Sample{}, false, nil
	}
	return s.winner, s.winner.Digest == digest, nil
}

func (s *racingStore) Save(_ context.Context, smp model.Sample) error {
	if smp.Digest == s.winner.Digest {
		return fmt.Errorf("saving sample %s: %w", smp.ID, model.ErrDuplicateDigest)
	}
	return nil
}

// RecordingNotifier records digests sent to Notify.
type RecordingNotifier struct {
	Notified []model.Digest
}

func (n *RecordingNotifier) Notify(d model.Digest) error {
	n.Notified = append(n.Notified, d)
	return nil
}

// RockFilter matches samples with the given rock name.
type RockFilter string

func (f RockFilter) Match(s model.Sample) bool { return s.Analysis.RockName == string(f) }

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n0000")
	jpegHeader = []byte("\xff\xd8\xff\xe0000000")
)

func granite() model.MineralAnalysis {
	return model.MineralAnalysis{
		RockName:           "Granite",
		IdentifiedMinerals: []model.MineralEntry{{Name: "Quartz", Percentage: 30}},
	}
}

// --- Tests ---

func TestIngest_AnalyzesAndSaves(t *testing.T) {
	analyzer := &MockAnalyzer{Analysis: granite()}
	store := &InMemoryStore{}
	in := New(analyzer, store, discardLogger())

	res, err := in.Ingest(context.Background(), "photos/outcrop.png", pngHeader, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Duplicate {
		t.Error("first ingest reported as duplicate")
	}
	if analyzer.lastMIME != "image/png" {
		t.Errorf("mime = %q, want image/png", analyzer.lastMIME)
	}
	if analyzer.lastData != base64.StdEncoding.EncodeToString(pngHeader) {
		t.Error("image not sent as standard base64")
	}
	if res.Sample.ID == "" || res.Sample.FileName != "outcrop.png" || len(res.Sample.Digest) != 64 {
		t.Errorf("sample = %+v", res.Sample)
	}
	if len(store.samples) != 1 || store.samples[0].Analysis.RockName != "Granite" {
		t.Errorf("store = %+v", store.samples)
	}
}

func TestIngest_DuplicateSkipsModel(t *testing.T) {
	analyzer := &MockAnalyzer{Analysis: granite()}
	store := &InMemoryStore{}
	in := New(analyzer, store, discardLogger())
	ctx := context.Background()

	first, err := in.Ingest(ctx, "a.jpg", jpegHeader, "image/jpeg")
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := in.Ingest(ctx, "copy-of-a.jpg", jpegHeader, "image/jpeg")
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}

	if !second.Duplicate || second.Sample.ID != first.Sample.ID {
		t.Errorf("second = %+v, want duplicate of %s", second, first.Sample.ID)
	}
	if analyzer.calls != 1 {
		t.Errorf("analyzer calls = %d, want 1", analyzer.calls)
	}
	if len(store.samples) != 1 {
		t.Errorf("saved %d samples, want 1", len(store.samples))
	}
}

func TestIngest_ConcurrentDuplicateReturnsWinner(t *testing.T) {
	sum := sha256.Sum256(jpegHeader)
	store := &racingStore{winner: model.Sample{ID: "winner", Digest: hex.EncodeToString(sum[:])}}
	in := New(&MockAnalyzer{Analysis: granite()}, store, discardLogger())

	res, err := in.Ingest(context.Background(), "a.jpg", jpegHeader, "image/jpeg")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Duplicate || res.Sample.ID != "winner" {
		t.Errorf("result = %+v, want duplicate of winner", res)
	}
	if store.lookups != 2 {
		t.Errorf("lookups = %d, want 2", store.lookups)
	}
}

func TestIngest_AnalyzerErrorSavesNothing(t *testing.T) {
	failure := errors.New("model unavailable")
	store := &InMemoryStore{}
	in := New(&MockAnalyzer{Err: failure}, store, discardLogger())

	_, err := in.Ingest(context.Background(), "a.png", pngHeader, "")
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want wrapped analyzer error", err)
	}
	if len(store.samples) != 0 {
		t.Error("nothing should be saved when analysis fails")
	}
}

func TestIngest_RejectsUnsupportedAndOversized(t *testing.T) {
	analyzer := &MockAnalyzer{Analysis: granite()}
	in := New(analyzer, &InMemoryStore{}, discardLogger())
	ctx := context.Background()

	if _, err := in.Ingest(ctx, "notes.txt", []byte("just text"), ""); !errors.Is(err, ErrUnsupportedMIME) {
		t.Errorf("text file err = %v, want ErrUnsupportedMIME", err)
	}
	if _, err := in.Ingest(ctx, "a.png", nil, ""); !errors.Is(err, ErrUnsupportedMIME) {
		t.Errorf("empty file err = %v, want ErrUnsupportedMIME", err)
	}
	if _, err := in.Ingest(ctx, "a.png", make([]byte, MaxImageBytes+1), ""); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("oversized err = %v, want ErrImageTooLarge", err)
	}
	if analyzer.calls != 0 {
		t.Errorf("analyzer called %d times for rejected input", analyzer.calls)
	}
}

func TestIngestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.JPG")
	if err := os.WriteFile(path, jpegHeader, 0644); err != nil {
		t.Fatal(err)
	}
	analyzer := &MockAnalyzer{Analysis: granite()}
	in := New(analyzer, &InMemoryStore{}, discardLogger())

	res, err := in.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if res.Sample.FileName != "core.JPG" || res.Sample.MIMEType != "image/jpeg" {
		t.Errorf("sample = %+v", res.Sample)
	}

	if _, err := in.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		declared string
		data     []byte
		want     string
		wantErr  bool
	}{
		{"declared wins", "x.bin", "image/webp", nil, "image/webp", false},
		{"declared with params", "x", "image/jpeg; q=1", nil, "image/jpeg", false},
		{"declared unsupported image", "x.png", "image/gif", pngHeader, "", true},
		{"octet stream falls back to extension", "x.jpeg", "application/octet-stream", nil, "image/jpeg", false},
		{"sniffed", "upload", "", pngHeader, "image/png", false},
		{"heic by extension", "IMG_0001.HEIC", "", nil, "image/heic", false},
		{"heif by extension", "scan.heif", "", nil, "image/heif", false},
		{"webp by extension", "thin-section.WEBP", "", nil, "image/webp", false},
		{"text", "readme", "", []byte("hello"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectMIME(tt.file, tt.declared, tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedMIME) {
					t.Errorf("err = %v, want ErrUnsupportedMIME", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectMIME: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectMIME = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReporter_DigestFiltersAndPreservesOrder(t *testing.T) {
	store := &InMemoryStore{samples: []model.Sample{
		{ID: "1", Analysis: model.MineralAnalysis{RockName: "Granite"}},
		{ID: "2", Analysis: model.MineralAnalysis{RockName: "Basalt"}},
		{ID: "3", Analysis: model.MineralAnalysis{RockName: "Granite", Description: "second"}},
	}}
	summarizer := &MockSummarizer{Text: "## Summary\n"}
	r := NewReporter(summarizer, store, RockFilter("Granite"), nil, discardLogger())
	r.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }

	d, err := r.Digest(context.Background())
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d.SampleCount != 2 || d.Summary != "## Summary\n" {
		t.Errorf("digest = %+v", d)
	}
	if len(summarizer.got) != 2 || summarizer.got[1].Description != "second" {
		t.Errorf("summarizer got %+v", summarizer.got)
	}
	if !d.GeneratedAt.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("GeneratedAt = %v", d.GeneratedAt)
	}
}

func TestReporter_EmptyStoreStillSummarizes(t *testing.T) {
	summarizer := &MockSummarizer{Text: "nothing yet"}
	r := NewReporter(summarizer, &InMemoryStore{}, nil, nil, discardLogger())

	d, err := r.Digest(context.Background())
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if summarizer.got == nil || len(summarizer.got) != 0 {
		t.Errorf("summarizer got %#v, want empty non-nil list", summarizer.got)
	}
	if d.SampleCount != 0 {
		t.Errorf("SampleCount = %d", d.SampleCount)
	}
}

func TestReporter_SummarizerErrorIsWrapped(t *testing.T) {
	failure := errors.New("boom")
	r := NewReporter(&MockSummarizer{Err: failure}, &InMemoryStore{}, nil, nil, discardLogger())

	if _, err := r.Digest(context.Background()); !errors.Is(err, failure) {
		t.Errorf("err = %v, want wrapped summarizer error", err)
	}
}

func TestReporter_Publish(t *testing.T) {
	notifier := &RecordingNotifier{}
	r := NewReporter(&MockSummarizer{}, &InMemoryStore{}, nil, notifier, discardLogger())

	if err := r.Publish(model.Digest{Title: "t"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(notifier.Notified) != 1 {
		t.Errorf("notified %d digests, want 1", len(notifier.Notified))
	}

	bare := NewReporter(&MockSummarizer{}, &InMemoryStore{}, nil, nil, discardLogger())
	if err := bare.Publish(model.Digest{}); err == nil {
		t.Error("expected error without a notifier")
	}
}
