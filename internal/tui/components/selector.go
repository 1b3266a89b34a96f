package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Option is one answer offered by a Selector.
type Option struct {
	Label       string
	Description string
	Value       string

	// Shortcut selects the option directly when pressed ("y", "n").
	Shortcut string
}

// Selector asks a single question with a fixed set of answers.
type Selector struct {
	title     string
	options   []Option
	cursor    int
	selected  int
	showHelp  bool
	keyMap    selectorKeyMap
	styles    selectorStyles
	cancelled bool
}

type selectorKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

type selectorStyles struct {
	Title       lipgloss.Style
	Selected    lipgloss.Style
	Unselected  lipgloss.Style
	Description lipgloss.Style
	Help        lipgloss.Style
}

func defaultSelectorStyles() selectorStyles {
	return selectorStyles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Selected:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		Unselected:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginLeft(4),
		Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1),
	}
}

func defaultSelectorKeyMap() selectorKeyMap {
	return selectorKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

// NewSelector creates a selector with the cursor on the first option.
func NewSelector(title string, options []Option) Selector {
	return Selector{
		title:    title,
		options:  options,
		selected: -1,
		showHelp: true,
		keyMap:   defaultSelectorKeyMap(),
		styles:   defaultSelectorStyles(),
	}
}

// WithShowHelp enables or disables the help line.
func (s Selector) WithShowHelp(show bool) Selector {
	s.showHelp = show
	return s
}

func (s Selector) Init() tea.Cmd {
	return nil
}

func (s Selector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch {
	case key.Matches(keyMsg, s.keyMap.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(keyMsg, s.keyMap.Down):
		if s.cursor < len(s.options)-1 {
			s.cursor++
		}
	case key.Matches(keyMsg, s.keyMap.Select):
		s.selected = s.cursor
		return s, tea.Quit
	case key.Matches(keyMsg, s.keyMap.Quit):
		s.cancelled = true
		return s, tea.Quit
	default:
		for i, opt := range s.options {
			if opt.Shortcut != "" && strings.EqualFold(keyMsg.String(), opt.Shortcut) {
				s.cursor = i
				s.selected = i
				return s, tea.Quit
			}
		}
	}
	return s, nil
}

func (s Selector) View() string {
	var b strings.Builder

	b.WriteString(s.styles.Title.Render(s.title))
	b.WriteString("\n\n")

	for i, opt := range s.options {
		cursor, symbol, style := "  ", "○", s.styles.Unselected
		if i == s.cursor {
			cursor, symbol, style = "› ", "●", s.styles.Selected
		}

		label := opt.Label
		if opt.Shortcut != "" {
			label += " (" + opt.Shortcut + ")"
		}
		b.WriteString(cursor)
		b.WriteString(style.Render(symbol + " " + label))
		b.WriteString("\n")

		if opt.Description != "" {
			b.WriteString(s.styles.Description.Render(opt.Description))
			b.WriteString("\n")
		}
	}

	if s.showHelp {
		b.WriteString(s.styles.Help.Render("↑/↓ navigate • enter select • q quit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Selected returns the selected option index, or -1 if none selected.
func (s Selector) Selected() int {
	return s.selected
}

// Cancelled returns true if the user quit without choosing.
func (s Selector) Cancelled() bool {
	return s.cancelled
}

// Value returns the value of the selected option, or "" if none selected.
func (s Selector) Value() string {
	if s.selected >= 0 && s.selected < len(s.options) {
		return s.options[s.selected].Value
	}
	return ""
}
