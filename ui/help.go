package ui

import (
	"github.com/charmbracelet/lipgloss"
)

func renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	title := green.Render("botchat - Keyboard Shortcuts")

	blue := lipgloss.NewStyle().Foreground(accentColor)

	chatActions := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Chat Actions"),
		"• Enter         Send message",
		"• Alt+Enter     New line",
		"• Alt+1..9      Send a suggested reply",
		"• Ctrl+Y        Copy last bot reply",
		"• Alt+Y         Copy conversation",
		"• Alt+F         Search this conversation",
		"• Alt+X         Export transcript",
		"• Alt+H         Toggle this help",
		"• Alt+Q         Quit",
	)

	navigation := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Transcript Navigation"),
		"• Alt+K/Alt+J   Half page up/down",
		"• PgUp/PgDn     Full page up/down",
		"• Alt+g         Jump to top",
		"• Alt+G         Jump to bottom",
	)

	tips := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Tips"),
		"• New replies follow only while you are at the bottom",
		"• Cards are shown as text summaries",
	)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		chatActions,
		"",
		navigation,
		"",
		tips,
		"",
		lipgloss.NewStyle().Foreground(dimColor).Render("Press Alt+H or Esc to close this help"),
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		helpBox.Render(content),
	)
}
