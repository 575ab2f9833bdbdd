package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/runtime"
)

const (
	replPrompt   = "egg> "
	defaultWidth = 80
)

func replHelp() string {
	return `
Commands:

  :help    Print this message
  :vars    List variables in scope
  :funcs   List functions
  :clear   Clear screen
  :quit    Exit

Usage:
  Type an expression to evaluate it; assignments persist for the session
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Use Up/Down arrows for history navigation
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	typeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

func newReplCmd() *cobra.Command {
	var (
		flags    engineFlags
		varsPath string
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive expression prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, reg, err := newEngine(flags)
			if err != nil {
				return err
			}
			scope, err := scopeFromFile(varsPath)
			if err != nil {
				return err
			}
			m := newModel(cmd.Context(), eng, reg.Names(), scope)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&varsPath, "vars", "", "YAML or JSON file of initial variables")
	return cmd
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctx        context.Context
	engine     *engine.Engine
	funcs      []string
	scope      *runtime.VariableScope
	input      textinput.Model
	history    []string
	historyIdx int
	matches    fuzzy.Matches // current fuzzy match results
	wordStart  int           // byte offset of current word start
	wordEnd    int           // byte offset of current word end
	suggIdx    int           // selected candidate index
	tabActive  bool          // whether user is tab-cycling
	width      int
	quitting   bool
}

func newModel(ctx context.Context, eng *engine.Engine, funcs []string, scope *runtime.VariableScope) model {
	if ctx == nil {
		ctx = context.Background()
	}
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(replPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctx:    ctx,
		engine: eng,
		funcs:  funcs,
		scope:  scope,
		input:  ti,
		width:  defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(replPrompt) - 2
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case strings.TrimSpace(m.input.Value()) == "":
		b.WriteString(hintStyle.Render("Type an expression, or :help"))
	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width))
	}
	b.WriteString("\n")
	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = len(m.history)
		m.refreshMatches()
		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyEnter:
		if m.tabActive && len(m.matches) > 0 {
			// Lock in the current candidate without executing.
			m.tabActive = false
			m.refreshMatches()
			return m, nil
		}
		return m.execute()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.historyMove(-1), nil

	case tea.KeyDown:
		return m.historyMove(1), nil
	}

	var cmd tea.Cmd
	m.tabActive = false
	m.historyIdx = len(m.history)
	m.input, cmd = m.input.Update(msg)
	m.refreshMatches()
	return m, cmd
}

// cycle moves the selected candidate by step and writes it into the input.
func (m model) cycle(step int) model {
	if len(m.matches) == 0 {
		return m
	}
	if len(m.matches) == 1 {
		m.replaceWord(m.matches[0].Str)
		m.tabActive = false
		m.matches = nil
		return m
	}
	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + len(m.matches)) % len(m.matches)
	} else {
		m.tabActive = true
		m.suggIdx = 0
	}
	m.replaceWord(m.matches[m.suggIdx].Str)
	return m
}

func (m *model) replaceWord(s string) {
	v := m.input.Value()
	m.input.SetValue(v[:m.wordStart] + s + v[m.wordEnd:])
	m.wordEnd = m.wordStart + len(s)
	m.input.SetCursor(m.wordEnd)
}

// refreshMatches recomputes completions for the word at the cursor.
func (m *model) refreshMatches() {
	word, start, end := wordBounds(m.input.Value(), m.input.Position())
	m.wordStart, m.wordEnd = start, end
	m.matches = complete(word, m.funcs, m.scope)
	m.suggIdx = 0
}

func (m model) historyMove(step int) model {
	idx := m.historyIdx + step
	if idx < 0 || idx > len(m.history) {
		return m
	}
	m.historyIdx = idx
	if idx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[idx])
	}
	m.input.CursorEnd()
	m.matches = nil
	return m
}

func (m model) execute() (model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	m.matches = nil
	m.tabActive = false
	if line == "" {
		return m, nil
	}
	if len(m.history) == 0 || m.history[len(m.history)-1] != line {
		m.history = append(m.history, line)
	}
	m.historyIdx = len(m.history)

	echo := promptStyle.Render(replPrompt) + inputStyle.Render(line)

	if strings.HasPrefix(line, ":") {
		switch strings.TrimPrefix(line, ":") {
		case "help":
			return m, tea.Println(echo + "\n" + hintStyle.Render(replHelp()))
		case "vars":
			return m, tea.Println(echo + "\n" + m.describeVars())
		case "funcs":
			return m, tea.Println(echo + "\n" + strings.Join(m.funcs, "  "))
		case "clear":
			return m, tea.ClearScreen
		case "quit", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, tea.Println(echo + "\n" + errorStyle.Render("unknown command "+line))
	}

	return m, tea.Println(echo + "\n" + m.evaluate(line))
}

// evaluate runs line against the session scope and renders the outcome.
func (m model) evaluate(line string) string {
	v, err := m.engine.Eval(m.ctx, line, m.scope)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	return resultStyle.Render(v.String()) + " " + typeStyle.Render("("+v.Type().String()+")")
}

func (m model) describeVars() string {
	keys := m.scope.Keys()
	if len(keys) == 0 {
		return hintStyle.Render("(no variables)")
	}
	lines := make([]string, len(keys))
	for i, k := range keys {
		v, _ := m.scope.Get(k)
		lines[i] = fmt.Sprintf("%s = %s", k, v.String())
	}
	return strings.Join(lines, "\n")
}

// renderCandidateBar renders matches on one line, highlighting the matched
// characters and the selected candidate.
func renderCandidateBar(matches fuzzy.Matches, selected int, active bool, width int) string {
	const sep = "  "
	var (
		b    strings.Builder
		used int
	)
	for i, match := range matches {
		w := len(match.Str) + len(sep)
		if used+w > width && i > 0 {
			b.WriteString(hintStyle.Render("..."))
			break
		}
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(renderCandidate(match, active && i == selected))
		used += w
	}
	return b.String()
}

func renderCandidate(match fuzzy.Match, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)
	if selected {
		baseStyle = selectedStyle
		highlightStyle = selectedStyle.Bold(true)
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder
	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}
	return b.String()
}
