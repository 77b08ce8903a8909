// Package tui renders a live view of an optimization's fit quality by
// tailing the status log while the run is in progress.
package tui

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// fitLine matches the per-combination status lines, e.g.
// "pair A-B, state state-1.000, iteration 3: 0.912345".
var fitLine = regexp.MustCompile(`^pair (\S+), state (\S+), iteration (\d+): ([0-9.eE+-]+)$`)

type series struct {
	pair  string
	state string
	fits  []float64
}

type tickMsg time.Time

// Model is the bubbletea model of the live fit monitor.
type Model struct {
	statusFile string
	series     []series
	index      map[string]int
	selected   int
	iteration  int
	err        error
}

// NewModel creates a monitor for a status log file.
func NewModel(statusFile string) Model {
	return Model{statusFile: statusFile, index: make(map[string]int)}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			if len(m.series) > 0 {
				m.selected = (m.selected + 1) % len(m.series)
			}
		case "shift+tab", "left", "h":
			if len(m.series) > 0 {
				m.selected = (m.selected - 1 + len(m.series)) % len(m.series)
			}
		}
	case tickMsg:
		m.reload()
		return m, tick()
	}
	return m, nil
}

// reload re-parses the status log. The log is append-only, so rebuilding
// the series from scratch each second is simpler than tracking offsets
// and cheap at realistic run lengths.
func (m *Model) reload() {
	data, err := os.ReadFile(m.statusFile)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.series = m.series[:0]
	m.index = make(map[string]int)

	for _, line := range strings.Split(string(data), "\n") {
		match := fitLine.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		key := match[1] + "/" + match[2]
		idx, ok := m.index[key]
		if !ok {
			idx = len(m.series)
			m.index[key] = idx
			m.series = append(m.series, series{pair: match[1], state: match[2]})
		}
		if fit, err := strconv.ParseFloat(match[4], 64); err == nil {
			m.series[idx].fits = append(m.series[idx].fits, fit)
		}
		if n, err := strconv.Atoi(match[3]); err == nil && n > m.iteration {
			m.iteration = n
		}
	}
	if m.selected >= len(m.series) {
		m.selected = 0
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("msibi fit monitor"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(fmt.Sprintf("waiting for %s: %v\n", m.statusFile, m.err))
		b.WriteString(footerStyle.Render("q: quit"))
		return b.String()
	}
	if len(m.series) == 0 {
		b.WriteString("no fit results yet\n")
		b.WriteString(footerStyle.Render("q: quit"))
		return b.String()
	}

	s := m.series[m.selected]
	b.WriteString(labelStyle.Render(fmt.Sprintf("pair %s, state %s (%d/%d) - iteration %d",
		s.pair, s.state, m.selected+1, len(m.series), m.iteration)))
	b.WriteString("\n")

	if len(s.fits) > 1 {
		b.WriteString(asciigraph.Plot(s.fits, asciigraph.Height(12), asciigraph.Width(60)))
	} else if len(s.fits) == 1 {
		b.WriteString(fmt.Sprintf("f_fit = %.6f", s.fits[0]))
	}
	b.WriteString("\n")

	for _, sr := range m.series {
		last := 0.0
		if len(sr.fits) > 0 {
			last = sr.fits[len(sr.fits)-1]
		}
		b.WriteString(fmt.Sprintf("  %-24s %-16s %.6f\n", sr.pair, sr.state, last))
	}
	b.WriteString(footerStyle.Render("tab: next series  q: quit"))
	return b.String()
}

// Run starts the live monitor and blocks until the user quits.
func Run(statusFile string) error {
	_, err := tea.NewProgram(NewModel(statusFile)).Run()
	return err
}
