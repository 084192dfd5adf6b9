// Package tui is an interactive terminal front end for the retrieval
// engine: a query box, the ranked chunks, and keyboard navigation between
// them.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driving"
)

// searchTimeout bounds one query round trip.
const searchTimeout = 30 * time.Second

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// resultsMsg carries a finished search back into the update loop.
type resultsMsg struct {
	query   string
	results []domain.ScoredChunk
	err     error
}

// Model is the Bubble Tea model for the search view.
type Model struct {
	searcher driving.Searcher
	opts     domain.SearchOptions

	input     textinput.Model
	viewport  viewport.Model
	results   []domain.ScoredChunk
	status    string
	cursor    int
	ready     bool
	searching bool
	lastQuery string
}

// New creates the search view over a searcher.
func New(searcher driving.Searcher, opts domain.SearchOptions) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu consulta y presiona Enter"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		searcher: searcher,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Listo. Escribe para buscar.",
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, spacer, query box, status line
		vh := msg.Height - reserved - rh
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case resultsMsg:
		m.searching = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("%d resultados para %q", len(msg.results), msg.query)
			m.results = msg.results
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "esc":
			return m, tea.Quit
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query != "" && !m.searching {
				m.searching = true
				m.status = "Buscando..."
				return m, m.search(query)
			}
		case "down", "ctrl+n":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up", "ctrl+p":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := headerStyle.Render("piolet search")
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + results + "\n" + input + "\n" + status
}

// search runs the query off the update loop.
func (m Model) search(query string) tea.Cmd {
	searcher := m.searcher
	opts := m.opts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		results, err := searcher.Search(ctx, query, opts)
		return resultsMsg{query: query, results: results, err: err}
	}
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "Sin resultados todavía."
	}
	r := m.results[m.cursor]

	header := fmt.Sprintf("Resultado %d/%d", m.cursor+1, len(m.results))
	meta := metaStyle.Render(fmt.Sprintf("similitud %.3f  [%s]  %s#%d",
		r.Similarity, r.Source, r.Chunk.DocID, r.Chunk.ChunkIndex))
	title := sourceStyle.Render(r.Chunk.Title)

	body := r.Chunk.Text
	if r.Chunk.URL != nil {
		body += "\n\n" + metaStyle.Render(*r.Chunk.URL)
	}
	return header + "  " + meta + "\n" + title + "\n\n" + body
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
