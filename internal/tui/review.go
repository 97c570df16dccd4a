// Package tui holds the terminal review view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/studywise/pkg/review"
)

// KeyMap defines the review key bindings.
type KeyMap struct {
	Flip key.Binding
	Next key.Binding
	Prev key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Flip: key.NewBinding(key.WithKeys(" ", "space", "enter", "f"), key.WithHelp("space", "flip")),
		Next: key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→", "next")),
		Prev: key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←", "previous")),
		Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Flip, k.Prev, k.Next, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type styles struct {
	title  lipgloss.Style
	card   lipgloss.Style
	front  lipgloss.Style
	muted  lipgloss.Style
	banner lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		card:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(1, 2),
		front:  lipgloss.NewStyle().Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		banner: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("10")),
	}
}

// Model is the bubbletea model of a review session.
type Model struct {
	title    string
	session  *review.Session
	renderer *review.Renderer
	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	styles   styles

	width    int
	height   int
	quitting bool
}

// New creates a review model over session. title names the deck (course name).
func New(title string, session *review.Session, renderer *review.Renderer) Model {
	vp := viewport.New(76, 16)
	m := Model{
		title:    title,
		session:  session,
		renderer: renderer,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		viewport: vp,
		styles:   defaultStyles(),
		width:    80,
		height:   24,
	}
	m.refresh()
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
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Flip):
			m.session.Flip()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Next):
			m.session.Next()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.session.Prev()
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	pos, total := m.session.Position()
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.title.Render("Review: "+m.title),
		"  ",
		m.styles.muted.Render(fmt.Sprintf("Card %d of %d", pos, total)),
	)

	side := "front"
	if m.session.Flipped() {
		side = "back"
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.card.Width(m.cardWidth()).Render(m.viewport.View()))
	sb.WriteString("\n")
	sb.WriteString(m.styles.muted.Render(side))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// Session exposes the underlying session.
func (m Model) Session() *review.Session {
	return m.session
}

func (m *Model) setSize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	m.viewport.Width = m.cardWidth() - 4
	// Header, card border and padding, side label and help.
	m.viewport.Height = max(h-10, 3)
	m.refresh()
}

func (m Model) cardWidth() int {
	return max(m.width-2, 20)
}

// refresh loads the visible side of the current card into the viewport.
func (m *Model) refresh() {
	card := m.session.Current()
	var content string
	if m.session.Flipped() {
		content = m.renderer.Render(card.Back)
		if strings.TrimSpace(content) == "" {
			content = m.styles.muted.Render("(empty)")
		}
	} else {
		content = m.styles.front.Render(card.Front) + "\n\n" + m.styles.banner.Render("press space to flip")
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

// Run starts a full-screen review until the user quits or ctx ends.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
