// Package ui renders the interactive session in the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"video-assistant/internal/assistant"
	"video-assistant/internal/memory"
	"video-assistant/internal/window"
)

const (
	defaultWidth = 80
	maxWidth     = 100
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5F5F")).
			Padding(0, 2)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	timeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	analysisTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// Display writes the session to a terminal
type Display struct {
	out      io.Writer
	width    int
	renderer *glamour.TermRenderer
}

// NewDisplay creates a display on stdout sized to the terminal
func NewDisplay() *Display {
	return NewDisplayTo(os.Stdout, terminalWidth(os.Stdout))
}

// NewDisplayTo creates a display writing to out with the given width.
// Markdown is rendered only when out is a terminal.
func NewDisplayTo(out io.Writer, width int) *Display {
	if width <= 0 {
		width = defaultWidth
	}
	width = min(width, maxWidth)

	d := &Display{out: out, width: width}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		d.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-4),
		)
	}
	return d
}

// terminalWidth returns the width of the terminal behind f, or the default
func terminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	fmt.Fprint(d.out, "\033[2J\033[H")
}

// PrintWelcome displays the banner and session settings
func (d *Display) PrintWelcome(videoID, model, mode string) {
	fmt.Fprintln(d.out, titleStyle.Render("video-assistant · questions sur la vidéo"))
	fmt.Fprintf(d.out, "%s %s\n", labelStyle.Render("Video:"), videoID)
	fmt.Fprintf(d.out, "%s %s\n", labelStyle.Render("Model:"), model)
	fmt.Fprintf(d.out, "%s %s\n", labelStyle.Render("Mode: "), mode)
	fmt.Fprintln(d.out, dimStyle.Render("Commands: @MM:SS question | /time MM:SS | /mode <"+strings.Join(assistant.Modes, "|")+"> | /history | /clear | /stats | /exit"))
	fmt.Fprintln(d.out)
}

// PrintSeparator prints a horizontal rule
func (d *Display) PrintSeparator() {
	fmt.Fprintln(d.out, dimStyle.Render(strings.Repeat("─", min(d.width, 80))))
}

// PrintPrompt displays the input prompt with the playback position
func (d *Display) PrintPrompt(position float64) {
	fmt.Fprintf(d.out, "\n%s %s ", timeStyle.Render("["+window.FormatTimestamp(position)+"]"), promptStyle.Render("❯"))
}

// PrintUserMessage echoes a question
func (d *Display) PrintUserMessage(position float64, content string, at time.Time) {
	fmt.Fprintf(d.out, "\n%s\n", dimStyle.Render(fmt.Sprintf("┌─ You · %s · video %s", at.Format("15:04:05"), window.FormatTimestamp(position))))
	fmt.Fprintf(d.out, "%s %s\n", dimStyle.Render("│"), content)
	fmt.Fprintln(d.out, dimStyle.Render("└"))
}

// PrintAnswer renders an answer as markdown followed by its metadata
func (d *Display) PrintAnswer(answer *assistant.Answer, elapsed time.Duration) {
	fmt.Fprintf(d.out, "\n%s\n", dimStyle.Render("┌─ Assistant · "+time.Now().Format("15:04:05")))

	if a := answer.Analysis; a != nil {
		tag := fmt.Sprintf("%s · %s · %s (%.0f%%)", a.QuestionType, a.ContextStrategy, a.ResponseStyle, a.Confidence*100)
		if a.Defaulted {
			tag += " · default"
		}
		fmt.Fprintf(d.out, "%s %s\n", dimStyle.Render("│"), analysisTag.Render(tag))
	}

	for _, line := range strings.Split(d.render(answer.Response), "\n") {
		fmt.Fprintf(d.out, "%s %s\n", dimStyle.Render("│"), line)
	}

	meta := fmt.Sprintf("%s · %d segments around %s", formatDuration(elapsed), answer.ContextUsed, window.FormatTimestamp(answer.CurrentTime))
	if answer.ConversationLength != nil {
		meta += fmt.Sprintf(" · %d exchanges remembered", *answer.ConversationLength)
	}
	fmt.Fprintf(d.out, "%s\n%s %s\n", dimStyle.Render("│"), dimStyle.Render("│"), dimStyle.Render(meta))
	fmt.Fprintln(d.out, dimStyle.Render("└"))
}

// render formats markdown when a renderer is available
func (d *Display) render(markdown string) string {
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(markdown); err == nil {
			return strings.Trim(rendered, "\n")
		}
	}
	return markdown
}

// PrintHistory shows the remembered exchanges
func (d *Display) PrintHistory(messages []memory.Message) {
	if len(messages) == 0 {
		d.PrintInfo("No conversation history yet")
		return
	}

	d.PrintSeparator()
	fmt.Fprintln(d.out, labelStyle.Render("Conversation History"))
	d.PrintSeparator()

	for i, msg := range messages {
		at := timeStyle.Render("[" + window.FormatTimestamp(msg.OccurredAt) + "]")
		fmt.Fprintf(d.out, "\n%s %s %s\n", at, labelStyle.Render(fmt.Sprintf("Q%d:", i+1)), msg.Question)
		fmt.Fprintf(d.out, "%s\n", window.Preview(msg.Response, 300))
	}

	d.PrintSeparator()
}

// PrintStats shows the memory store snapshot
func (d *Display) PrintStats(stats memory.Stats) {
	fmt.Fprintf(d.out, "%s %d\n", labelStyle.Render("Active sessions:"), stats.ActiveSessions)
	fmt.Fprintf(d.out, "%s %d\n", labelStyle.Render("Total messages: "), stats.TotalMessages)
	if stats.OldestSessionCreatedAt != nil {
		fmt.Fprintf(d.out, "%s %s\n", labelStyle.Render("Oldest session: "), stats.OldestSessionCreatedAt.Format(time.RFC3339))
	}
}

// PrintInfo displays an info message
func (d *Display) PrintInfo(msg string) {
	fmt.Fprintln(d.out, infoStyle.Render("ℹ "+msg))
}

// PrintWarning displays a warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Fprintln(d.out, warnStyle.Render("⚠ "+msg))
}

// PrintError displays an error message
func (d *Display) PrintError(err error) {
	fmt.Fprintln(d.out, errorStyle.Render(fmt.Sprintf("✗ Error: %v", err)))
}

// PrintSuccess displays a success message
func (d *Display) PrintSuccess(msg string) {
	fmt.Fprintln(d.out, successStyle.Render("✓ "+msg))
}

// PrintGoodbye displays the goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Fprintf(d.out, "\n%s\n", infoStyle.Bold(true).Render("À bientôt ! 👋"))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
