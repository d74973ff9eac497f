package view

import (
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/bizanalyst/internal/format"
)

var (
	strongRe  = regexp.MustCompile(`<strong>(.*?)</strong>`)
	emRe      = regexp.MustCompile(`<em>(.*?)</em>`)
	headingRe = regexp.MustCompile(`<h[23]>(.*?)</h[23]>`)

	boldStyle    = lipgloss.NewStyle().Bold(true)
	italicStyle  = lipgloss.NewStyle().Italic(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("14"))
)

// ToTerminal formats raw message content for a terminal: the text goes through
// format.Markup and the resulting elements are mapped to terminal styles.
func ToTerminal(content string) string {
	return markupToTerminal(format.Markup(content))
}

func markupToTerminal(markup string) string {
	out := strongRe.ReplaceAllStringFunc(markup, func(m string) string {
		return boldStyle.Render(strongRe.FindStringSubmatch(m)[1])
	})
	out = emRe.ReplaceAllStringFunc(out, func(m string) string {
		return italicStyle.Render(emRe.FindStringSubmatch(m)[1])
	})
	out = headingRe.ReplaceAllStringFunc(out, func(m string) string {
		return headingStyle.Render(headingRe.FindStringSubmatch(m)[1]) + "\n"
	})
	out = strings.ReplaceAll(out, format.LineBreak, "\n")
	return html.UnescapeString(out)
}
