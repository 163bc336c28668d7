package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"botchat/activity"
	"botchat/storage"
)

// searchState is the in-conversation message search.
type searchState struct {
	active   bool
	input    textinput.Model
	results  []storage.MessageMatch
	selected int
	scroll   int
}

func newSearchInput() textinput.Model {
	in := textinput.New()
	in.Prompt = "Search: "
	in.CharLimit = 100
	return in
}

func (a AppView) openSearch() (AppView, tea.Cmd) {
	a.search.active = true
	a.search.input.SetValue("")
	a.search.results = nil
	a.search.selected = 0
	a.search.scroll = 0
	a.textarea.Blur()
	return a, a.search.input.Focus()
}

func (a AppView) closeSearch() (AppView, tea.Cmd) {
	a.search.active = false
	a.search.input.Blur()
	return a, a.textarea.Focus()
}

func (a AppView) handleSearchKey(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch msg.String() {
	case "esc", "alt+f":
		return a.closeSearch()

	case "down", "ctrl+n", "alt+j":
		if a.search.selected < len(a.search.results)-1 {
			a.search.selected++
			if a.search.selected >= a.search.scroll+a.visibleSearchResults() {
				a.search.scroll++
			}
		}
		return a, nil

	case "up", "ctrl+p", "alt+k":
		if a.search.selected > 0 {
			a.search.selected--
			if a.search.selected < a.search.scroll {
				a.search.scroll = a.search.selected
			}
		}
		return a, nil

	case "enter":
		if len(a.search.results) == 0 {
			return a, nil
		}
		idx := a.search.results[a.search.selected].MessageIndex
		if idx < len(a.messageLines) {
			a.viewport.SetYOffset(a.messageLines[idx])
		}
		return a.closeSearch()
	}

	var cmd tea.Cmd
	a.search.input, cmd = a.search.input.Update(msg)
	a.search.results = storage.SearchMessages(a.search.input.Value(), a.model.Messages)
	a.search.selected = 0
	a.search.scroll = 0
	return a, cmd
}

// visibleSearchResults estimates how many results fit on screen.
func (a AppView) visibleSearchResults() int {
	// border, padding, title, input, count, footer and the blanks between
	const fixedOverhead = 12
	const scrollIndicatorSpace = 4
	const linesPerResult = 3

	n := (a.height - fixedOverhead - scrollIndicatorSpace) / linesPerResult
	if n < 1 {
		n = 1
	}
	return n
}

func (a AppView) renderMessageSearch() string {
	modalWidth := a.width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	title := TitleStyle.Render("Search Conversation")
	results := a.search.results

	resultsView := ""
	if len(results) == 0 {
		if a.search.input.Value() == "" {
			resultsView = DimStyle.Render("Type to search messages in this conversation...")
		} else {
			resultsView = DimStyle.Render("No matches found")
		}
	} else {
		startIdx := a.search.scroll
		endIdx := startIdx + a.visibleSearchResults()
		if endIdx > len(results) {
			endIdx = len(results)
		}

		resultsView = fmt.Sprintf("Found %d matches:\n\n", len(results))
		if startIdx > 0 {
			resultsView += DimStyle.Render(fmt.Sprintf("↑ %d more above\n\n", startIdx))
		}

		for i := startIdx; i < endIdx; i++ {
			match := results[i]

			role := UserStyle.Render("You")
			if match.Role == activity.RoleBot {
				role = BotStyle.Render("Bot")
			}
			matchText := fmt.Sprintf("%s %s\n  %s", role, DimStyle.Render(formatTimestamp(match.Timestamp)), match.Preview)

			if i == a.search.selected {
				matchText = SelectedStyle.Render("> ") + matchText
			} else {
				matchText = "  " + matchText
			}
			resultsView += matchText + "\n\n"
		}

		if endIdx < len(results) {
			resultsView += DimStyle.Render(fmt.Sprintf("↓ %d more below", len(results)-endIdx))
		}
	}

	footer := FormatFooter("Type", "to search", "Up/Down", "Navigate", "Enter", "Jump", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		a.search.input.View(),
		"",
		resultsView,
		"",
		footer,
	)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
