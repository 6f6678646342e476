// Package browse is the interactive terminal browser for analyzed samples.
package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/geolens/internal/export"
	"github.com/amishk599/geolens/internal/intake"
	"github.com/amishk599/geolens/internal/model"
	"github.com/amishk599/geolens/internal/stats"
)

// Lines per sample in the list view (title + subtitle + blank separator).
const sampleItemHeight = 3

const summaryTimeout = 2 * time.Minute

type viewState int

const (
	viewList viewState = iota
	viewDetail
	viewSummary
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("136")) // ochre

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("136"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	sampleTitleStyle = lipgloss.NewStyle().
				Bold(true)

	sampleSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("58"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("58"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("136")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// Options wires optional actions into the browser.
type Options struct {
	Title      string             // right pane header, e.g. "Granite"
	Summarizer intake.Summarizer  // nil disables 's'
	Downloader *export.Downloader // nil disables exports
}

type summaryDoneMsg struct {
	text string
	err  error
}

type exportDoneMsg struct {
	location string
	err      error
}

type browseModel struct {
	allSamples     []model.Sample
	matchedSamples []model.Sample
	matchedTitle   string
	leftViewport   viewport.Model
	rightViewport  viewport.Model
	activePane     int // 0=left, 1=right
	leftCursor     int
	rightCursor    int
	width          int
	height         int
	ready          bool

	view           viewState
	detailSample   model.Sample
	detailViewport viewport.Model

	summarizer     intake.Summarizer
	summaryLoading bool
	summaryText    string
	summaryError   string

	downloader   *export.Downloader
	status       string
	lastLocation string

	wantQuit bool
}

func newBrowseModel(all, matched []model.Sample, opts Options) browseModel {
	title := opts.Title
	if title == "" {
		title = "Matched"
	}
	return browseModel{
		allSamples:     all,
		matchedSamples: matched,
		matchedTitle:   title,
		summarizer:     opts.Summarizer,
		downloader:     opts.Downloader,
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view != viewList {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderCurrent())
		}
		return m, nil

	case summaryDoneMsg:
		m.summaryLoading = false
		if msg.err != nil {
			m.summaryError = fmt.Sprintf("summary failed: %v", msg.err)
		} else {
			m.summaryError = ""
			m.summaryText = msg.text
		}
		if m.view == viewSummary {
			m.detailViewport.SetContent(m.renderSummary())
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			m.status = "saved " + msg.location
			m.lastLocation = msg.location
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case viewDetail, viewSummary:
			return m.updateScrollView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	case "s":
		return m.openSummaryView()
	case "e":
		return m, m.exportCmd("samples", export.SampleRecords(m.activeSamples()))
	case "m":
		return m, m.exportCmd("minerals", export.MineralRecords(m.activeSamples()))
	case "o":
		if m.lastLocation != "" {
			openURL(m.lastLocation)
		}
		return m, nil
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m browseModel) updateScrollView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "w":
		if m.view == viewSummary && m.summaryText != "" && m.downloader != nil {
			return m, m.saveSummaryCmd(m.summaryText)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	samples := m.activeSamples()
	if len(samples) == 0 {
		return m, nil
	}
	m.view = viewDetail
	m.detailSample = samples[m.activeCursor()]
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

// openSummaryView summarizes the active pane. Reopening the view while a
// digest is in flight does not start another.
func (m browseModel) openSummaryView() (tea.Model, tea.Cmd) {
	if m.summarizer == nil {
		m.status = "summaries are not configured"
		return m, nil
	}
	m.view = viewSummary
	m.detailViewport = viewport.New(m.width-4, m.height-4)

	var cmd tea.Cmd
	if !m.summaryLoading {
		m.summaryLoading = true
		m.summaryError = ""
		m.summaryText = ""
		cmd = m.summarizeCmd(model.Analyses(m.activeSamples()))
	}
	m.detailViewport.SetContent(m.renderSummary())
	return m, cmd
}

func (m browseModel) summarizeCmd(analyses model.AnalysisList) tea.Cmd {
	summarizer := m.summarizer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
		defer cancel()
		text, err := summarizer.Summarize(ctx, analyses)
		return summaryDoneMsg{text: text, err: err}
	}
}

func (m *browseModel) exportCmd(base string, records []export.Record) tea.Cmd {
	if m.downloader == nil {
		m.status = "exports are not configured"
		return nil
	}
	d := m.downloader
	name := exportName(base, "csv")
	return func() tea.Msg {
		loc, err := d.DownloadAsCSV(context.Background(), records, name)
		return exportDoneMsg{location: loc, err: err}
	}
}

func (m browseModel) saveSummaryCmd(text string) tea.Cmd {
	d := m.downloader
	name := exportName("summary", "txt")
	return func() tea.Msg {
		loc, err := d.DownloadAsText(context.Background(), text, name)
		return exportDoneMsg{location: loc, err: err}
	}
}

func exportName(base, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, time.Now().Format("20060102-150405"), ext)
}

func (m *browseModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.allSamples)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matchedSamples)-1, 0))
	}
}

func (m *browseModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * sampleItemHeight
	cursorBottom := cursorTop + sampleItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.leftViewport.SetContent(renderSamples(m.allSamples, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderSamples(m.matchedSamples, m.rightCursor, m.activePane == 1))
}

func (m browseModel) activeSamples() []model.Sample {
	if m.activePane == 0 {
		return m.allSamples
	}
	return m.matchedSamples
}

func (m browseModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.view {
	case viewDetail:
		return m.viewScroll("Sample Details", " esc/backspace back  ↑/↓ scroll  q quit")
	case viewSummary:
		title := "Field Digest"
		if m.summaryLoading {
			title += "  (generating...)"
		}
		return m.viewScroll(title, " w save  esc/backspace back  ↑/↓ scroll  q quit")
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Samples (%d)", len(m.allSamples))
	rightHeader := fmt.Sprintf(" %s (%d)", m.matchedTitle, len(m.matchedSamples))

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	leftPane := leftBorder.Render(m.leftViewport.View())
	rightPane := rightBorder.Render(m.rightViewport.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	statusText := m.status
	if statusText == "" {
		statusText = fmt.Sprintf("%d total | %d shown", len(m.allSamples), len(m.matchedSamples))
	}
	statusText = " " + statusText + "    Tab switch  Enter detail  s digest  e/m export  o open  Esc back  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewScroll(title, hints string) string {
	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(hints)
	return detailTitleStyle.Render(title) + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderCurrent() string {
	if m.view == viewSummary {
		return m.renderSummary()
	}
	return m.renderDetail()
}

func (m browseModel) renderDetail() string {
	s := m.detailSample
	a := s.Analysis
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Rock", a.RockName)
	addField("File", s.FileName)
	addField("Type", s.MIMEType)
	addField("Sample ID", s.ID)
	if !s.CreatedAt.IsZero() {
		addField("Analyzed", s.CreatedAt.Local().Format("2006-01-02 15:04 MST"))
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	if a.Description != "" {
		b.WriteString("\n" + divider("── Description ") + "\n\n")
		b.WriteString(wordWrap(a.Description, wrapWidth) + "\n")
	}

	b.WriteString("\n" + divider("── Minerals ") + "\n\n")
	if len(a.IdentifiedMinerals) == 0 {
		b.WriteString(hintStyle.Render("  no minerals identified") + "\n")
	}
	for _, me := range a.IdentifiedMinerals {
		addField(me.Name, fmt.Sprintf("%5.1f%%", me.Percentage))
		if me.Description != "" {
			b.WriteString(hintStyle.Render(indent(wordWrap(me.Description, wrapWidth-4), "    ")) + "\n")
		}
	}

	if a.EconomicPotential != "" {
		b.WriteString("\n" + divider("── Economic Potential ") + "\n\n")
		b.WriteString(wordWrap(a.EconomicPotential, wrapWidth) + "\n")
	}

	return b.String()
}

func (m browseModel) renderSummary() string {
	switch {
	case m.summaryLoading:
		return hintStyle.Render("  generating digest...")
	case m.summaryError != "":
		return errorStyle.Render("⚠ " + m.summaryError)
	}
	return renderMarkdown(m.summaryText, max(m.width-8, 20))
}

// renderMarkdown falls back to the raw text if glamour cannot render it.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func renderSamples(samples []model.Sample, cursor int, isActive bool) string {
	if len(samples) == 0 {
		return "  (no samples)"
	}

	var b strings.Builder
	for i, s := range samples {
		isSelected := isActive && i == cursor

		titleSt := sampleTitleStyle
		subtitleSt := sampleSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		rock := strings.TrimSpace(s.Analysis.RockName)
		if rock == "" {
			rock = stats.UnknownRock
		}
		b.WriteString(prefix)
		b.WriteString(titleSt.Render(rock))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %d minerals · %s",
			s.FileName, len(s.Analysis.IdentifiedMinerals), s.CreatedAt.Format("2006-01-02"))))
		b.WriteByte('\n')

		if i < len(samples)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sortSamplesNewestFirst(samples []model.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].CreatedAt.After(samples[j].CreatedAt)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func indent(text, prefix string) string {
	return prefix + strings.ReplaceAll(text, "\n", "\n"+prefix)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens a file path or URL with the system handler, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunBrowseTUI launches the split-pane sample browser. Both slices are
// sorted newest first in place.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed esc to return to the picker.
func RunBrowseTUI(all, matched []model.Sample, opts Options) (bool, error) {
	sortSamplesNewestFirst(all)
	sortSamplesNewestFirst(matched)

	p := tea.NewProgram(newBrowseModel(all, matched, opts), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(browseModel)
	return final.wantQuit, nil
}
