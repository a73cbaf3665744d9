package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"medisearch/internal/domain"
)

const disclaimer = "Not medical advice. Always consult a qualified healthcare provider."

const historySize = 5

// Model is the Bubble Tea model for the diagnosis chat.
type Model struct {
	retriever domain.Retriever
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	matches   []domain.Match
	history   []string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(retriever domain.Retriever, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe your symptoms and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		retriever: retriever,
		topK:      topK,
		input:     ti,
		viewport:  vp,
		status:    "Index loaded. Describe your symptoms.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + history
		totalFooterLines := 2 // status + disclaimer
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentMatch())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			d, err := m.retriever.Diagnose(context.Background(), q, m.topK)
			switch {
			case errors.Is(err, domain.ErrEmptyQuery):
				m.status = "Please describe at least one symptom."
				m.matches = nil
			case err != nil:
				m.status = "Error: " + err.Error()
				m.matches = nil
			default:
				m.matches = d.Matches
				m.cursor = 0
				m.lastQuery = q
				m.history = appendHistory(m.history, q)
				if len(d.Matches) == 0 {
					m.status = fmt.Sprintf("No conditions found for %q.", q)
				} else {
					m.status = fmt.Sprintf("Found %d possible condition(s) for %q.", len(d.Matches), q)
				}
			}
			m.viewport.SetContent(m.renderCurrentMatch())
			return m, nil
		case "down":
			if len(m.matches) > 0 {
				m.cursor = (m.cursor + 1) % len(m.matches)
				m.viewport.SetContent(m.renderCurrentMatch())
				return m, nil
			}
		case "up":
			if len(m.matches) > 0 {
				m.cursor = (m.cursor - 1 + len(m.matches)) % len(m.matches)
				m.viewport.SetContent(m.renderCurrentMatch())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the current match.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Medisearch — Symptom Checker")
	history := historyStyle.Render(m.renderHistory())
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	footer := disclaimerStyle.Render(disclaimer)
	return header + "\n" + history + "\n" + results + "\n" + input + "\n" + status + "\n" + footer
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No queries yet."
	}
	return "Recent: " + strings.Join(m.history, " | ")
}

func (m Model) renderCurrentMatch() string {
	if len(m.matches) == 0 {
		return "No results yet."
	}
	match := m.matches[m.cursor]
	r := match.Record

	var b strings.Builder
	fmt.Fprintf(&b, "Match %d/%d  %s  (%.1f%% confidence)\n",
		m.cursor+1, len(m.matches), titleStyle.Render(r.Name), confidencePercent(match.Score))
	if match.LowConfidence {
		b.WriteString(warningStyle.Render("Weak match — symptoms did not closely resemble any known condition. Consult a professional.") + "\n")
	}
	b.WriteString("\nSymptoms: " + r.Symptoms + "\n")
	b.WriteString("\nMedicines:\n" + bulletList(r.Medicines, "No specific medicines listed."))
	b.WriteString("\nPrecautions:\n" + bulletList(r.Precautions, "No specific precautions listed."))
	return b.String()
}

func bulletList(items []string, empty string) string {
	if len(items) == 0 {
		return "  " + empty + "\n"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("  • " + item + "\n")
	}
	return b.String()
}

// confidencePercent maps a cosine score to a display percentage, capped at 95
// so the UI never claims near-certainty.
func confidencePercent(score float32) float64 {
	pct := float64(score) * 100
	if pct > 95 {
		pct = 95
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func appendHistory(history []string, query string) []string {
	history = append(history, query)
	if len(history) > historySize {
		history = history[len(history)-historySize:]
	}
	return history
}

var (
	resultBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle      = lipgloss.NewStyle().Bold(true)
	historyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	disclaimerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
