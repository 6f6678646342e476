package browse

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/stats"
)

type stubSummarizer struct {
	text  string
	err   error
	calls int
	got   model.AnalysisList
}

func (s *stubSummarizer) Summarize(_ context.Context, analyses model.AnalysisList) (string, error) {
	s.calls++
	s.got = analyses
	return s.text, s.err
}

func testSamples() []model.Sample {
	base := time.Date(2026, 4, 9, 10, 0, 0, 0, time.UTC)
	return []model.Sample{
		{ID: "a", FileName: "a.jpg", CreatedAt: base, Analysis: model.MineralAnalysis{
			RockName: "Granite",
			IdentifiedMinerals: []model.MineralEntry{
				{Name: "Quartz", Percentage: 35, Description: "glassy grains"},
				{Name: "Feldspar", Percentage: 50},
			},
			EconomicPotential: "Dimension stone",
		}},
		{ID: "b", FileName: "b.jpg", CreatedAt: base.Add(time.Hour), Analysis: model.MineralAnalysis{RockName: "Basalt"}},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(m browseModel) browseModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(browseModel)
}

func press(t *testing.T, m browseModel, k string) (browseModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	return next.(browseModel), cmd
}

func TestBrowse_CursorClampsAndSwitchesPane(t *testing.T) {
	all := testSamples()
	m := sized(newBrowseModel(all, all[:1], Options{}))

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")
	m, _ = press(t, m, "j")
	if m.leftCursor != 1 {
		t.Errorf("leftCursor = %d, want 1", m.leftCursor)
	}

	m, _ = press(t, m, "tab")
	if m.activePane != 1 {
		t.Fatalf("activePane = %d, want 1", m.activePane)
	}
	m, _ = press(t, m, "j")
	if m.rightCursor != 0 {
		t.Errorf("rightCursor = %d, want 0", m.rightCursor)
	}
}

func TestBrowse_DetailShowsMinerals(t *testing.T) {
	m := sized(newBrowseModel(testSamples(), nil, Options{}))

	m, _ = press(t, m, "enter")
	if m.view != viewDetail {
		t.Fatalf("view = %v, want detail", m.view)
	}
	out := m.renderDetail()
	for _, want := range []string{"Granite", "Quartz", "35.0%", "glassy grains", "Dimension stone"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q", want)
		}
	}

	m, _ = press(t, m, "esc")
	if m.view != viewList {
		t.Errorf("esc should return to the list")
	}
}

func TestBrowse_EnterOnEmptyPaneStaysInList(t *testing.T) {
	m := sized(newBrowseModel(testSamples(), nil, Options{}))
	m, _ = press(t, m, "tab")
	m, _ = press(t, m, "enter")
	if m.view != viewList {
		t.Errorf("view = %v, want list", m.view)
	}
}

func TestBrowse_SummaryUsesActivePane(t *testing.T) {
	all := testSamples()
	sum := &stubSummarizer{text: "# Digest\n\nTwo rocks."}
	m := sized(newBrowseModel(all, all[1:], Options{Summarizer: sum}))
	m, _ = press(t, m, "tab")

	m, cmd := press(t, m, "s")
	if m.view != viewSummary || !m.summaryLoading {
		t.Fatalf("view = %v loading = %v", m.view, m.summaryLoading)
	}
	if cmd == nil {
		t.Fatal("expected a summarize command")
	}

	next, _ := m.Update(cmd())
	m = next.(browseModel)
	if sum.calls != 1 || len(sum.got) != 1 || sum.got[0].RockName != "Basalt" {
		t.Errorf("summarizer got %+v (calls %d)", sum.got, sum.calls)
	}
	if m.summaryLoading || m.summaryText != sum.text {
		t.Errorf("summary state = %q loading=%v", m.summaryText, m.summaryLoading)
	}
	if !strings.Contains(m.renderSummary(), "rocks.") {
		t.Errorf("rendered summary missing body: %q", m.renderSummary())
	}
}

func TestBrowse_SummaryError(t *testing.T) {
	sum := &stubSummarizer{err: errors.New("model offline")}
	m := sized(newBrowseModel(testSamples(), nil, Options{Summarizer: sum}))

	m, cmd := press(t, m, "s")
	next, _ := m.Update(cmd())
	m = next.(browseModel)
	if !strings.Contains(m.renderSummary(), "model offline") {
		t.Errorf("summary view = %q", m.renderSummary())
	}
}

func TestBrowse_SummaryWithoutSummarizer(t *testing.T) {
	m := sized(newBrowseModel(testSamples(), nil, Options{}))
	m, cmd := press(t, m, "s")
	if cmd != nil || m.view != viewList {
		t.Errorf("summary should be disabled")
	}
	if m.status == "" {
		t.Error("expected a status message")
	}
}

func TestBrowse_ExportWritesCSV(t *testing.T) {
	dir := t.TempDir()
	d := export.NewDownloader(export.NewDirTarget(dir), nil, nil)
	m := sized(newBrowseModel(testSamples(), nil, Options{Downloader: d}))

	m, cmd := press(t, m, "e")
	if cmd == nil {
		t.Fatal("expected an export command")
	}
	next, _ := m.Update(cmd())
	m = next.(browseModel)
	if m.lastLocation == "" {
		t.Fatalf("export failed: %s", m.status)
	}
	body, err := os.ReadFile(m.lastLocation)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"Granite"`) {
		t.Errorf("csv = %q", body)
	}
}

func TestBrowse_QuitVersusBack(t *testing.T) {
	m := sized(newBrowseModel(testSamples(), nil, Options{}))

	quit, _ := press(t, m, "q")
	if !quit.wantQuit {
		t.Error("q should request quit")
	}
	back, _ := press(t, m, "esc")
	if back.wantQuit {
		t.Error("esc should return to the picker")
	}
}

func TestPicker_Options(t *testing.T) {
	d := stats.Build(testSamples())
	m := newPickerModel(d)

	if len(m.options) != 3 {
		t.Fatalf("got %d options, want 3", len(m.options))
	}
	if m.options[0].rock != "" || m.options[0].label != "All samples (2)" {
		t.Errorf("first option = %+v", m.options[0])
	}

	next, _ := m.Update(key("j"))
	next, _ = next.Update(key("enter"))
	final := next.(pickerModel)
	if final.chosen != 1 || final.options[final.chosen].rock == "" {
		t.Errorf("chosen = %d", final.chosen)
	}
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("coarse grained pink feldspar", 14)
	want := "coarse grained\npink feldspar"
	if got != want {
		t.Errorf("wordWrap = %q, want %q", got, want)
	}
}
