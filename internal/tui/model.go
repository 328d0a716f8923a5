package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"document-search/internal/models"
)

// Querier is the TUI-facing subset of the pipeline.
type Querier interface {
	Query(ctx context.Context, text string) (*models.SearchResult, error)
}

// Model is the Bubble Tea model for the interactive query screen.
type Model struct {
	querier   Querier
	input     textinput.Model
	viewport  viewport.Model
	matches   []models.Match
	document  string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

func New(querier Querier, document string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{querier: querier, input: ti, viewport: vp, document: document, status: "Loaded. Type to search."}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+document, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			res, err := m.querier.Query(context.Background(), q)
			if err != nil {
				m.status = "Error: " + err.Error()
				m.matches = nil
			} else {
				m.status = fmt.Sprintf("%d results for %q", len(res.Matches), q)
				m.matches = res.Matches
				m.cursor = 0
				m.lastQuery = q
			}
			m.viewport.SetContent(m.renderCurrentResult())
			return m, nil
		case "down":
			if len(m.matches) > 0 {
				m.cursor = (m.cursor + 1) % len(m.matches)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.matches) > 0 {
				m.cursor = (m.cursor - 1 + len(m.matches)) % len(m.matches)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Search")
	document := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.document)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + document + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.matches) == 0 {
		return "No results yet."
	}
	r := m.matches[m.cursor]
	title := titleStyle.Render(fmt.Sprintf("Result %d/%d  chunk=%d  distance=%.4f", m.cursor+1, len(m.matches), r.Position, r.Distance))
	return title + "\n\n" + r.Content
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
