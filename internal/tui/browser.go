// Package tui provides an interactive terminal browser for rejected elements.
package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/cli"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const allReasons = -1

// Model lists rejection records and filters them by reason and search text.
type Model struct {
	keys      KeyMap
	title     string
	records   []model.RejectionRecord
	visible   []int
	reasons   []model.RejectionReason
	help      help.Model
	search    textinput.Model
	table     table.Model
	reasonIdx int
	width     int
	height    int
	searching bool
}

// New creates a browser over records.
func New(title string, records []model.RejectionRecord) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Element", Width: 16},
			{Title: "Region", Width: 16},
			{Title: "Reason", Width: 22},
			{Title: "Keyword", Width: 24},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(cli.SubtleColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#1a1a1a")).
		Background(cli.PrimaryColor)
	t.SetStyles(s)

	search := textinput.New()
	search.Placeholder = "keyword, element or region"
	search.Prompt = "/ "
	search.CharLimit = 64

	present := make(map[model.RejectionReason]bool)
	for _, r := range records {
		present[r.Reason] = true
	}
	var reasons []model.RejectionReason
	for _, reason := range model.AllReasons() {
		if present[reason] {
			reasons = append(reasons, reason)
		}
	}

	m := Model{
		keys:      DefaultKeyMap(),
		title:     title,
		records:   records,
		reasons:   reasons,
		help:      help.New(),
		search:    search,
		table:     t,
		reasonIdx: allReasons,
		width:     80,
		height:    24,
	}
	m.applyFilter()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(msg.Height-9, 3))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextReason):
			m.cycleReason(1)
			return m, nil
		case key.Matches(msg, m.keys.PrevReason):
			m.cycleReason(-1)
			return m, nil
		case key.Matches(msg, m.keys.Search):
			m.searching = true
			return m, m.search.Focus()
		case key.Matches(msg, m.keys.Clear):
			m.reasonIdx = allReasons
			m.search.SetValue("")
			m.applyFilter()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) cycleReason(step int) {
	if len(m.reasons) == 0 {
		return
	}
	// allReasons sits between the last and the first reason.
	n := len(m.reasons) + 1
	pos := (m.reasonIdx + 1 + step + n) % n
	m.reasonIdx = pos - 1
	m.applyFilter()
}

func (m *Model) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))

	m.visible = make([]int, 0, len(m.records))
	rows := make([]table.Row, 0, len(m.records))
	for i, r := range m.records {
		if m.reasonIdx != allReasons && r.Reason != m.reasons[m.reasonIdx] {
			continue
		}
		if query != "" && !matches(r, query) {
			continue
		}
		m.visible = append(m.visible, i)
		rows = append(rows, table.Row{
			fmt.Sprintf("%s/%s", r.ElementKind, r.ElementID),
			r.Region,
			r.Reason.Label(),
			r.Keyword,
		})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func matches(r model.RejectionRecord, query string) bool {
	return strings.Contains(strings.ToLower(r.Keyword), query) ||
		strings.Contains(strings.ToLower(r.ElementID), query) ||
		strings.Contains(strings.ToLower(r.Region), query)
}

// Visible returns the records that pass the current filters.
func (m Model) Visible() []model.RejectionRecord {
	out := make([]model.RejectionRecord, len(m.visible))
	for i, idx := range m.visible {
		out[i] = m.records[idx]
	}
	return out
}

// Selected returns the record under the cursor.
func (m Model) Selected() (model.RejectionRecord, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return model.RejectionRecord{}, false
	}
	return m.records[m.visible[cursor]], true
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(cli.FormatTitle(fmt.Sprintf("Rejections: %s", m.title)))
	b.WriteString("\n")

	filter := "All reasons"
	if m.reasonIdx != allReasons {
		filter = m.reasons[m.reasonIdx].Label()
	}
	b.WriteString(cli.SubtleStyle.Render(fmt.Sprintf("%s · %d of %d", filter, len(m.visible), len(m.records))))
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if r, ok := m.Selected(); ok {
		location := "no location"
		if r.Center != nil {
			location = fmt.Sprintf("%.5f, %.5f", r.Center.Lat, r.Center.Lon)
		}
		b.WriteString(cli.InfoStyle.Render(fmt.Sprintf("https://www.openstreetmap.org/%s/%s  (%s)", r.ElementKind, r.ElementID, location)))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}
