// Package tui is the terminal front end for players: a Bubble Tea model that
// draws the game from received packets and turns keys into moves and chat.
// It runs locally or behind the Wish SSH server.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/netpac/internal/client"
	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/protocol"
)

// Conn is the player connection the model drives. *client.Client implements it.
type Conn interface {
	ID() int32
	Name() string
	Packets() <-chan protocol.Packet
	Err() error
	Move(dir core.Direction) error
	Say(text string) error
	Quit() error
}

var _ Conn = (*client.Client)(nil)

// Layout constants
const (
	sidebarWidth = 26
	chatLines    = 5
)

type packetMsg struct{ p protocol.Packet }

type closedMsg struct{ err error }

// waitForPacket returns a command that waits for the next server packet.
func waitForPacket(c Conn) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-c.Packets()
		if !ok {
			return closedMsg{err: c.Err()}
		}
		return packetMsg{p: p}
	}
}

type styles struct {
	palette palette
	title   lipgloss.Style
	box     lipgloss.Style
	dim     lipgloss.Style
	self    lipgloss.Style
	alert   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		palette: newPalette(r),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("245")),
		self:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		alert:   r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Model is the Bubble Tea model of the game screen.
type Model struct {
	conn     Conn
	state    *client.State
	keys     KeyMap
	help     help.Model
	input    textinput.Model
	styles   styles
	chatting bool
	width    int
	height   int
	err      error
	closed   bool
	quitting bool
}

// NewModel creates the game screen for a joined connection. A nil renderer
// uses the default one.
func NewModel(conn Conn, r *lipgloss.Renderer) Model {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	in := textinput.New()
	in.Placeholder = "say something"
	in.Prompt = "> "
	in.CharLimit = 200

	return Model{
		conn:   conn,
		state:  client.NewState(conn.ID(), conn.Name()),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		input:  in,
		styles: newStyles(r),
	}
}

// Init starts listening for packets.
func (m Model) Init() tea.Cmd {
	return waitForPacket(m.conn)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case packetMsg:
		m.state.Apply(msg.p)
		return m, waitForPacket(m.conn)

	case closedMsg:
		m.closed = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if m.chatting {
			return m.handleChatKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		_ = m.conn.Quit()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Chat):
		m.chatting = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if dir, ok := m.keys.Direction(msg); ok {
		_ = m.conn.Move(dir)
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		_ = m.conn.Quit()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Send):
		if text := strings.TrimSpace(m.input.Value()); text != "" {
			_ = m.conn.Say(text)
		}
		m.stopChat()
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.stopChat()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopChat() {
	m.chatting = false
	m.input.Reset()
	m.input.Blur()
}

// Err returns why the connection ended, if it ended on its own.
func (m Model) Err() error {
	if !m.closed || m.err == nil || errors.Is(m.err, io.EOF) {
		return nil
	}
	return m.err
}

// View renders the board, the sidebar, the chat and the help line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.closed {
		return m.styles.alert.Render("Disconnected from server.") + "\n"
	}

	board := m.viewBoard()
	top := lipgloss.JoinHorizontal(lipgloss.Top, board, " ", m.viewSidebar())

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	b.WriteString(m.viewChat())
	b.WriteString("\n")
	if m.chatting {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m Model) viewBoard() string {
	st := m.state
	if !st.InRound || len(st.Tiles) == 0 {
		w := max(st.Width*cellWidth, 30)
		msg := "Waiting for players..."
		if st.Rounds > 0 {
			msg = "Round over. Waiting for the next one..."
		}
		return m.styles.box.Width(w).Height(max(st.Height, 5)).Render(m.styles.dim.Render(msg))
	}
	return m.styles.box.Render(RenderScreen(DrawBoard(st), m.styles.palette))
}

func (m Model) viewSidebar() string {
	st := m.state
	var b strings.Builder

	b.WriteString(m.styles.title.Render("NETPAC"))
	b.WriteString("\n")
	me := st.Me()
	if me.Active {
		b.WriteString(fmt.Sprintf("You: %s (%s)\n", me.Name, me.Role))
		if me.State != core.StateNormal {
			b.WriteString(m.styles.dim.Render(me.State.String()) + "\n")
		}
	} else {
		b.WriteString(fmt.Sprintf("You: %s\n", me.Name))
	}
	b.WriteString("\n")

	for i, p := range st.Ranking() {
		line := fmt.Sprintf("%2d. %-12.12s %5d", i+1, p.Name, p.Score)
		switch {
		case p.ID == st.Self:
			line = m.styles.self.Render(line)
		case !p.Active:
			line = m.styles.dim.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return m.styles.box.Width(sidebarWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) viewChat() string {
	chat := m.state.Chat
	if len(chat) > chatLines {
		chat = chat[len(chat)-chatLines:]
	}
	lines := make([]string, 0, chatLines)
	for _, c := range chat {
		lines = append(lines, fmt.Sprintf("%s: %s", m.styles.title.Render(c.Name), c.Text))
	}
	for len(lines) < chatLines {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// Run plays on conn in the current terminal until the player quits, the
// server closes the connection or ctx is done.
func Run(ctx context.Context, conn Conn) error {
	p := tea.NewProgram(
		NewModel(conn, nil),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
