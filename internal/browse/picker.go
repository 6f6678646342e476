package browse

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/geolens/internal/stats"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("136")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("136")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// pickerOption is one line in the rock picker. An empty rock means all samples.
type pickerOption struct {
	label string
	rock  string
}

type pickerModel struct {
	options []pickerOption
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

func newPickerModel(d stats.Dashboard) pickerModel {
	options := []pickerOption{{label: fmt.Sprintf("All samples (%d)", d.SampleCount)}}
	for _, rc := range d.RockTypes {
		options = append(options, pickerOption{
			label: fmt.Sprintf("%s (%d)", rc.Name, rc.Count),
			rock:  rc.Name,
		})
	}
	return pickerModel{options: options, chosen: -1}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("GeoLens: select a rock type")
	s += "\n"

	for i, o := range m.options {
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+o.label) + "\n"
		} else {
			s += pickerItemStyle.Render(o.label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunRockPicker lets the user pick a rock type from the dashboard.
// rock is "" for all samples; ok is false if the user quit.
func RunRockPicker(d stats.Dashboard) (rock string, ok bool, err error) {
	p := tea.NewProgram(newPickerModel(d))
	result, err := p.Run()
	if err != nil {
		return "", false, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return "", false, nil
	}
	return final.options[final.chosen].rock, true, nil
}
