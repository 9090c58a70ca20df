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

	"nutrirag/internal/domain"
	"nutrirag/internal/meal"
)

// Backend is what the chat needs from the services. Analyzer and Intake are
// optional; the /meal and /today commands are disabled without them.
type Backend struct {
	Assistant interface {
		Ask(ctx context.Context, question string) (string, error)
	}
	Retriever interface {
		Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	}
	Analyzer interface {
		Analyze(ctx context.Context, req meal.Request) (meal.Result, error)
	}
	Intake interface {
		TodayIntake(ctx context.Context) (domain.DailyIntake, error)
	}
	TopK int
}

type entry struct {
	question string
	answer   string
	sources  []domain.SearchResult
	err      error
}

type answerMsg entry

// Model is the Bubble Tea model for the knowledge-base chat.
type Model struct {
	ctx      context.Context
	backend  Backend
	input    textinput.Model
	viewport viewport.Model
	history  []entry
	status   string
	busy     bool
	ready    bool
}

// New creates a chat bound to ctx; in-flight requests are cancelled with it.
func New(ctx context.Context, backend Backend) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a nutrition question, /meal <description>, /today"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, backend: backend, input: ti, viewport: vp, status: "Ready."}
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
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		m.history = append(m.history, entry(msg))
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Ready."
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Thinking..."
			return m, m.dispatch(q)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch runs a question or slash command off the UI goroutine.
func (m Model) dispatch(q string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	switch {
	case q == "/today":
		return func() tea.Msg { return today(ctx, b) }
	case strings.HasPrefix(q, "/meal"):
		desc := strings.TrimSpace(strings.TrimPrefix(q, "/meal"))
		return func() tea.Msg { return analyze(ctx, b, q, desc) }
	}
	return func() tea.Msg {
		e := answerMsg{question: q}
		if b.Retriever != nil {
			e.sources, e.err = b.Retriever.Search(ctx, q, b.TopK)
			if e.err != nil {
				return e
			}
		}
		e.answer, e.err = b.Assistant.Ask(ctx, q)
		return e
	}
}

func today(ctx context.Context, b Backend) answerMsg {
	e := answerMsg{question: "/today"}
	if b.Intake == nil {
		e.err = fmt.Errorf("meal log is not configured")
		return e
	}
	in, err := b.Intake.TodayIntake(ctx)
	if err != nil {
		e.err = err
		return e
	}
	e.answer = fmt.Sprintf("%s: %d meals, protein %.1fg, carbs %.1fg, fats %.1fg",
		in.Date, in.Meals, in.Protein, in.Carbs, in.Fats)
	return e
}

func analyze(ctx context.Context, b Backend, q, desc string) answerMsg {
	e := answerMsg{question: q}
	if b.Analyzer == nil {
		e.err = fmt.Errorf("meal analysis is not configured")
		return e
	}
	res, err := b.Analyzer.Analyze(ctx, meal.Request{Description: desc})
	if err != nil {
		e.err = err
		return e
	}
	e.answer = fmt.Sprintf("%s [%s]\nprotein %.1fg, carbs %.1fg, fats %.1fg\n%s",
		res.FoodName, res.Source, res.Protein, res.Carbs, res.Fats, res.Advice)
	return e
}

// View renders the TUI layout and the conversation.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Nutrition Assistant")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + e.question))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render("Error: " + e.err.Error()))
			continue
		}
		b.WriteString(e.answer)
		for j, s := range e.sources {
			fmt.Fprintf(&b, "\n%s", sourceStyle.Render(fmt.Sprintf("[%d] %s p.%d  distance=%.3f", j+1, s.Chunk.Source, s.Chunk.Page, s.Distance)))
			b.WriteString("\n    " + highlightBestSentence(s.Chunk.Text, e.question))
		}
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence of a source excerpt sharing
// the most words with the question.
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
