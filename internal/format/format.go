// Package format turns the lightweight markup used in assistant replies
// (bold, italic, headings, bullets) into display markup.
package format

import (
	"html"
	"regexp"
	"strings"
)

// LineBreak is the token newlines are rewritten to. Heading patterns end on it.
const LineBreak = "<br>"

var (
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
	h3Re     = regexp.MustCompile(`###\s(.*?)(<br>|$)`)
	h2Re     = regexp.MustCompile(`##\s(.*?)(<br>|$)`)
)

// Markup formats raw message text for display. The text is HTML-escaped
// first, so conversation content can never smuggle its own tags through.
// The substitutions then run in a fixed order: bold, italic, line breaks,
// level-3 headings, level-2 headings, bullets.
func Markup(text string) string {
	out := html.EscapeString(text)
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")
	out = strings.ReplaceAll(out, "\n", LineBreak)
	out = replaceHeading(out, h3Re, "h3")
	out = replaceHeading(out, h2Re, "h2")
	out = strings.ReplaceAll(out, "•", "&bull;")
	return out
}

// replaceHeading wraps every match of re that starts a line in tag. The
// trailing line break, if any, is consumed by the heading element.
func replaceHeading(s string, re *regexp.Regexp, tag string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start != 0 && !strings.HasSuffix(s[:start], LineBreak) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString("<" + tag + ">")
		b.WriteString(s[m[2]:m[3]])
		b.WriteString("</" + tag + ">")
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}
