package notifier

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/geolens/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDigest(summary string) model.Digest {
	return model.Digest{
		Title:       "Field digest",
		Summary:     summary,
		SampleCount: 4,
		GeneratedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotifier_PayloadFormat(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(sampleDigest("## Dominant rocks\nMostly **granite**.")); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(payload.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" || payload.Blocks[0].Text.Text != "🪨 Field digest" {
		t.Errorf("block[0] = %+v, want header with title", payload.Blocks[0])
	}
	if payload.Blocks[1].Type != "section" || len(payload.Blocks[1].Fields) != 2 {
		t.Errorf("block[1] not a 2-field section")
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Samples:*\n4" {
		t.Errorf("samples field = %q", got)
	}
	if payload.Blocks[2].Type != "divider" {
		t.Errorf("block[2] type = %q, want divider", payload.Blocks[2].Type)
	}
	if got := payload.Blocks[3].Text.Text; got != "*Dominant rocks*\nMostly *granite*." {
		t.Errorf("summary section = %q", got)
	}
	if payload.Blocks[4].Type != "context" {
		t.Errorf("block[4] type = %q, want context", payload.Blocks[4].Type)
	}
	if payload.Text != "Field digest" {
		t.Errorf("fallback text = %q", payload.Text)
	}
}

func TestSlackNotifier_LongSummarySplitIntoSections(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	line := strings.Repeat("x", 99) + "\n"
	summary := strings.Repeat(line, 70) // 7000 bytes

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(sampleDigest(summary)); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sections := 0
	for _, b := range payload.Blocks[3 : len(payload.Blocks)-1] {
		if len(b.Text.Text) > maxSectionText {
			t.Errorf("section of %d bytes exceeds limit", len(b.Text.Text))
		}
		sections++
	}
	if sections != 3 {
		t.Errorf("got %d summary sections, want 3", sections)
	}
}

func TestSlackNotifier_ReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Notify(sampleDigest("x"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("err = %v, want HTTPError 500", err)
	}
}

func TestSlackNotifier_RateLimitedSurfacesRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Notify(sampleDigest("x"))
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want HTTPError 429", err)
	}
	if httpErr.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", httpErr.RetryAfter)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected a single HTTP call, got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingNotifier{}
	if err := SendTestMessage(rec); err != nil {
		t.Fatalf("SendTestMessage: %v", err)
	}
	if rec.got.Title == "" || rec.got.Summary == "" {
		t.Errorf("test digest = %+v, want title and summary", rec.got)
	}
}

type recordingNotifier struct{ got model.Digest }

func (r *recordingNotifier) Notify(d model.Digest) error {
	r.got = d
	return nil
}

func TestSplitText(t *testing.T) {
	if got := splitText("", 10); len(got) != 1 {
		t.Errorf("splitText(empty) = %v, want placeholder", got)
	}
	got := splitText("ééééé", 4)
	for _, c := range got {
		if len(c) > 4 || !strings.HasPrefix(c, "é") {
			t.Errorf("chunk %q splits a rune or exceeds limit", c)
		}
	}
	if strings.Join(got, "") != "ééééé" {
		t.Errorf("chunks %v lost content", got)
	}
}
