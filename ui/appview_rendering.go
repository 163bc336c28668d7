package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"botchat/activity"
	"botchat/config"
	"botchat/transcript"
)

const (
	emptyPlaceholder = "Start a conversation..."
	streamCursor     = "▋"
	maxButtonWidth   = 28
)

// Pre-compiled regex patterns for better performance
var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// scrollSnapshot is the part of the model that decides auto-scrolling.
type scrollSnapshot struct {
	count     int
	streaming string
	open      bool
	thinking  bool
}

func snapshotOf(m transcript.RenderModel) scrollSnapshot {
	s := scrollSnapshot{count: len(m.Messages), thinking: m.IsBotThinking}
	if m.StreamingText != nil {
		s.open = true
		s.streaming = *m.StreamingText
	}
	return s
}

// shouldAutoScroll follows new content only while the reader is at the
// bottom of the transcript.
func shouldAutoScroll(prev, next scrollSnapshot, atBottom bool) bool {
	return atBottom && prev != next
}

// refreshViewport re-renders the transcript into the viewport.
func (a *AppView) refreshViewport() {
	// Check position before the content changes under it
	atBottom := a.viewport.AtBottom()
	a.viewport.SetContent(a.renderTranscript())

	next := snapshotOf(a.model)
	if shouldAutoScroll(a.last, next, atBottom) {
		a.viewport.GotoBottom()
	}
	a.last = next
}

func (a *AppView) renderTranscript() string {
	if a.model.Empty() && !a.model.IsBotThinking {
		return DimStyle.Render(emptyPlaceholder)
	}

	// Markdown wraps to the width, so a resize invalidates the cache
	if a.renderedWidth != a.width {
		a.rendered = make(map[string]string)
		a.renderedWidth = a.width
	}

	var content strings.Builder
	lines := 0
	write := func(s string) {
		content.WriteString(s)
		lines += strings.Count(s, "\n")
	}

	// Finalized messages
	a.messageLines = a.messageLines[:0]
	for _, msg := range a.model.Messages {
		a.messageLines = append(a.messageLines, lines)
		timestamp := DimStyle.Render(formatTimestamp(msg.Timestamp))

		if msg.Role == activity.RoleUser {
			write(formatUserMessage(timestamp, UserStyle.Render("You"), msg.Text, a.width))
			continue
		}

		// Bot messages: cached markdown, then cards and citations
		body, ok := a.rendered[msg.ID]
		if !ok || msg.ID == "" {
			body = renderMarkdown(msg.Text, a.width)
			if msg.ID != "" {
				a.rendered[msg.ID] = body
			}
		}
		write(fmt.Sprintf("%s %s\n%s\n", timestamp, BotStyle.Render("Bot"), strings.TrimRight(body, "\n")))
		if cards := renderAttachments(msg.Attachments); cards != "" {
			write(cards + "\n")
		}
		if notes := renderCitations(msg.Citations); notes != "" {
			write(notes + "\n")
		}
		write("\n")
	}

	// Streaming bubble: plain text with a cursor until the final message lands
	if a.model.StreamingText != nil {
		timestamp := DimStyle.Render(formatTimestamp(time.Now()))
		write(fmt.Sprintf("%s %s\n%s%s\n\n", timestamp, BotStyle.Render("Bot"), *a.model.StreamingText, streamCursor))
	}

	// Typing dots
	if a.model.IsBotThinking {
		write(a.dots.View() + "\n")
	}

	return content.String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "[--:--]"
	}
	return t.Local().Format("[15:04]")
}

// formatUserMessage draws a user message with a green bar down its left
// side. Long lines wrap under the bar.
func formatUserMessage(timestamp, role, content string, width int) string {
	greenBold := "\x1b[32;1m"
	reset := "\x1b[0m"
	bar := greenBold + "┃" + reset

	var result strings.Builder

	// Header line
	result.WriteString(fmt.Sprintf("%s %s %s\n", bar, timestamp, role))

	// Content lines, blank ones kept
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			result.WriteString(bar + "\n")
			continue
		}
		result.WriteString(wrapWithPrefix(line, bar+" ", width))
	}

	// Spacing after message
	result.WriteString("\n")
	return result.String()
}

// wrapWithPrefix word-wraps text to maxWidth and starts every line with
// prefix. Each line ends in a newline.
func wrapWithPrefix(text, prefix string, maxWidth int) string {
	// Calculate available width for text
	prefixLen := runewidth.StringWidth(stripANSI(prefix))
	availableWidth := maxWidth - prefixLen

	if availableWidth <= 0 {
		return prefix + text + "\n"
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return prefix + "\n"
	}

	var result strings.Builder
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		// Check if adding this word would exceed width
		testWidth := lineWidth
		if lineWidth > 0 {
			testWidth++ // Space before word
		}
		testWidth += wordWidth

		if testWidth > availableWidth && lineWidth > 0 {
			// Flush current line
			result.WriteString(prefix + currentLine.String() + "\n")
			currentLine.Reset()
			lineWidth = 0
		}

		// Add word to current line
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Flush remaining line
	result.WriteString(prefix + currentLine.String() + "\n")
	return result.String()
}

func renderAttachments(atts []activity.Attachment) string {
	var cards []string
	for _, att := range atts {
		lines := activity.CardSummary(att)
		if len(lines) == 0 {
			continue
		}
		cards = append(cards, CardStyle.Render(strings.Join(lines, "\n")))
	}
	return strings.Join(cards, "\n")
}

func renderCitations(cites []transcript.Citation) string {
	if len(cites) == 0 {
		return ""
	}
	lines := make([]string, 0, len(cites))
	for i, c := range cites {
		label := c.Name
		switch {
		case label == "":
			label = c.URL
		case c.URL != "":
			label += " " + c.URL
		}
		lines = append(lines, CitationStyle.Render(fmt.Sprintf("[%d] %s", i+1, label)))
	}
	return strings.Join(lines, "\n")
}

// renderSuggestedActions lays the quick replies out as numbered buttons.
// Only the first nine are reachable from the keyboard.
func renderSuggestedActions(actions []activity.CardAction, width int) string {
	if len(actions) == 0 {
		return ""
	}
	var buttons []string
	used := 0
	for i, act := range actions {
		// Keyboard shortcuts stop at alt+9
		if i == 9 {
			break
		}
		label := runewidth.Truncate(fmt.Sprintf("%d %s", i+1, act.Title), maxButtonWidth, "…")
		button := ButtonStyle.Render(label)
		// Drop what doesn't fit on one row
		w := lipgloss.Width(button)
		if width > 0 && used+w > width {
			break
		}
		used += w
		buttons = append(buttons, button)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

func renderMarkdown(content string, width int) string {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[ui] rendering markdown - length: %d chars", len(content))
	}

	// Convert [text](url) links to plain urls before rendering
	content = preprocessLinks(content)

	// Render with go-term-markdown.
	// Autolink off: plain URLs stay plain for the terminal to detect
	customExt := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(customExt)
	r := markdown.NewRenderer(width-4, 0)
	doc := p.Parse([]byte(content))
	rendered := gomarkdown.Render(doc, r)

	// Post-process: fix inline code colors and frame code blocks
	return postProcessMarkdown(string(rendered), width)
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = fixInlineCode(rendered)
	rendered = fixMarkdownLinks(rendered)
	return frameCodeBlocks(rendered, width)
}

// preprocessLinks strips [text](url) down to the url.
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode swaps the renderer's blue background for red text.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func fixMarkdownLinks(s string) string {
	redColor := "\x1b[31m"
	reset := "\x1b[0m"

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		// code block lines carry the ┃ prefix
		if !strings.Contains(line, "┃") {
			lines[i] = urlRegex.ReplaceAllString(line, redColor+"$1"+reset)
		}
	}
	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	lines := strings.Split(s, "\n")
	var result []string
	var codeBlockLines []string
	inCodeBlock := false

	darkGray := "\x1b[90m"
	reset := "\x1b[0m"
	lineLen := width - 4
	if lineLen < 8 {
		lineLen = 8
	}
	bottom := darkGray + strings.Repeat("━", lineLen) + reset

	for _, line := range lines {
		if strings.Contains(line, "┃") {
			// Opening a new code block
			if !inCodeBlock {
				inCodeBlock = true
				codeBlockLines = []string{}

				// Top border with the label centered
				label := "[code]"
				leftLen := (lineLen - len(label)) / 2
				rightLen := lineLen - len(label) - leftLen
				top := darkGray + strings.Repeat("━", leftLen) + reset + label + darkGray + strings.Repeat("━", rightLen) + reset
				result = append(result, "", top, "")
			}
			codeBlockLines = append(codeBlockLines, stripCodeBlockPrefix(line))
			continue
		}

		// Closing the code block
		if inCodeBlock {
			result = append(result, codeBlockLines...)
			result = append(result, "", bottom, "")
			codeBlockLines = nil
			inCodeBlock = false
		}
		result = append(result, line)
	}

	// Handle a code block that runs to the end
	if inCodeBlock && len(codeBlockLines) > 0 {
		result = append(result, codeBlockLines...)
		result = append(result, "", bottom, "")
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, "┃")
	if idx < 0 {
		return line
	}
	// Skip the bar and one space after it
	after := idx + len("┃")
	if after < len(line) && line[after] == ' ' {
		after++
	}
	if after < len(line) {
		return line[after:]
	}
	return ""
}

// stripANSI removes ANSI escape codes for accurate length calculation
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
