package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// noticeModel shows one message and exits on any key.
type noticeModel struct {
	text  string
	style lipgloss.Style
}

func newNoticeModel(r *lipgloss.Renderer, text string) noticeModel {
	return noticeModel{
		text:  text,
		style: r.NewStyle().Foreground(lipgloss.Color("9")).Padding(1, 2),
	}
}

func (m noticeModel) Init() tea.Cmd { return nil }

func (m noticeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

func (m noticeModel) View() string {
	return m.style.Render(m.text+"\n\nPress any key to leave.") + "\n"
}
