package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"marketrag/internal/domain"
)

// Analyst is the TUI-facing subset of the query engine.
type Analyst interface {
	Answer(ctx context.Context, query string, filters domain.Filters) (*domain.AnswerResult, error)
}

// Model is the Bubble Tea model for the interactive analyst session.
type Model struct {
	engine    Analyst
	input     textinput.Model
	viewport  viewport.Model
	result    *domain.AnswerResult
	summary   string
	status    string
	cursor    int
	ready     bool
	waiting   bool
	lastQuery string
}

type answerMsg struct {
	query  string
	result *domain.AnswerResult
	err    error
}

// New creates a new TUI model instance.
func New(engine Analyst, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the reports and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{engine: engine, input: ti, viewport: vp, summary: summary, status: "Index loaded. Ask a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(query string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.Answer(context.Background(), query, domain.Filters{})
		return answerMsg{query: query, result: res, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			m.status = fmt.Sprintf("Answer for %q", msg.query)
			m.result = msg.result
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.waiting = true
				m.status = "Thinking..."
				return m, m.ask(q)
			}
		case "down":
			if m.result != nil && len(m.result.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.result.Sources)
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		case "up":
			if m.result != nil && len(m.result.Sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.result.Sources)) % len(m.result.Sources)
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Market Research Analyst")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.result == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render(m.result.Answer))
	if m.result.Sentiment != nil {
		b.WriteString(fmt.Sprintf("\n\nsentiment=%.2f", *m.result.Sentiment))
	}
	if len(m.result.Sources) > 0 {
		src := m.result.Sources[m.cursor]
		title := fmt.Sprintf("Source %d/%d  %s  confidence=%.3f",
			m.cursor+1, len(m.result.Sources), src.Document, src.Confidence)
		b.WriteString("\n\n" + sourceTitleStyle.Render(title) + "\n")
		b.WriteString(highlightBestSentence(src.Text, m.lastQuery))
	}
	return b.String()
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
