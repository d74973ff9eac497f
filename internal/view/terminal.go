// Package view renders conversations and chat history. Message content is
// always passed through format.Markup before it reaches any output.
package view

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/bizanalyst/internal/api"
	"github.com/comigor/bizanalyst/internal/chart"
	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/session"
)

var (
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	activeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	chartStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// maxCharts bounds how many numeric columns are drawn for one upload.
const maxCharts = 3

// TerminalView writes the conversation to a terminal. It is safe to call
// from the delayed chart timer while the main loop is printing.
type TerminalView struct {
	mu         sync.Mutex
	out        io.Writer
	now        func() time.Time
	chartWidth int
}

func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out, now: time.Now, chartWidth: 40}
}

func (v *TerminalView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

// Welcome prints the greeting shown for a new chat.
func (v *TerminalView) Welcome() {
	v.printf("%s %s\n", assistantLabel.Render("💡 Assistant:"), ToTerminal(welcomeText))
}

const welcomeText = `## Hello! I'm your AI Business Analyzer.
I can help you with:
• Generate unique business ideas
• Analyze market potential
• Evaluate competitors
• Create financial projections
• Develop marketing strategies
• Analyze your business data (/upload a .txt, .csv or .json file)
What would you like to explore today?`

// Prompt marks that input is expected.
func (v *TerminalView) Prompt() {
	v.printf("› ")
}

// Busy shows or clears the waiting indicator while a turn is outstanding.
func (v *TerminalView) Busy(busy bool) {
	if busy {
		v.printf("%s\n", dimStyle.Render("⏳ thinking…"))
	}
}

// Message prints one conversation entry.
func (v *TerminalView) Message(m session.Message) {
	label := userLabel.Render("👤 You:")
	if m.Role == session.RoleAssistant {
		label = assistantLabel.Render("💡 Assistant:")
	}
	v.printf("%s %s\n\n", label, ToTerminal(m.Content))
}

// Transcript reprints a whole conversation, e.g. after loading a chat.
func (v *TerminalView) Transcript(messages []session.Message) {
	for _, m := range messages {
		v.Message(m)
	}
}

// Charts draws bar charts for the numeric columns of an uploaded file.
func (v *TerminalView) Charts(name string, data []byte) {
	series := chart.Parse(name, data)
	if len(series) == 0 {
		v.printf("%s\n\n", dimStyle.Render("📈 No tabular numeric data to chart in "+name))
		return
	}

	var b strings.Builder
	for i, s := range series {
		if i == maxCharts {
			fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("… %d more numeric columns", len(series)-maxCharts)))
			break
		}
		fmt.Fprintf(&b, "%s\n%s\n", chartStyle.Render("📈 "+s.Name), chart.Render(s, v.chartWidth))
	}
	v.printf("%s", b.String())
}

// Saved acknowledges a persisted record.
func (v *TerminalView) Saved(rec history.Record) {
	v.printf("%s\n", dimStyle.Render("💾 saved as "+rec.ID))
}

// Notice prints a user-facing informational line.
func (v *TerminalView) Notice(text string) {
	v.printf("%s\n", dimStyle.Render(text))
}

// Error prints a user-facing validation or command error.
func (v *TerminalView) Error(err error) {
	v.printf("%s\n", errStyle.Render("✗ "+err.Error()))
}

// Health prints the backend status line.
func (v *TerminalView) Health(h api.Health, err error) {
	switch {
	case err != nil:
		v.printf("%s\n", errStyle.Render("● Offline"))
	case h.APIKeyConfigured:
		v.printf("%s\n", okStyle.Render("● Connected"))
	default:
		v.printf("%s\n", errStyle.Render("● API Key Missing"))
	}
}

// History lists saved chats newest first, numbered for /load, with the
// active chat highlighted.
func (v *TerminalView) History(records []history.Record, activeID string) {
	if len(records) == 0 {
		v.printf("%s\n", dimStyle.Render("No chat history yet"))
		return
	}

	now := v.now()
	var b strings.Builder
	for i, rec := range records {
		marker := "  "
		title := rec.Title
		if rec.ID == activeID {
			marker = "▸ "
			title = activeStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s%2d. %s %s\n", marker, i+1, title,
			dimStyle.Render(fmt.Sprintf("(%s · %s)", RelativeDate(rec.Timestamp, now), rec.ID)))
	}
	v.printf("%s", b.String())
}
