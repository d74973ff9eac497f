package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkup(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "just text", "just text"},
		{"bold and italic", "**bold** and *it*", "<strong>bold</strong> and <em>it</em>"},
		{"italic before bold", "*a* **b**", "<em>a</em> <strong>b</strong>"},
		{"line breaks", "line1\nline2", "line1<br>line2"},
		{"h3 consumes break", "### Title\nbody", "<h3>Title</h3>body"},
		{"h2 at end of text", "## Sub", "<h2>Sub</h2>"},
		{"h2 mid text", "intro\n## Sub\nmore", "intro<br><h2>Sub</h2>more"},
		{"consecutive headings", "### A\n### B", "<h3>A</h3><h3>B</h3>"},
		{"heading not at line start", "a ### not heading", "a ### not heading"},
		{"bold inside heading", "### **Big**", "<h3><strong>Big</strong></h3>"},
		{"bullet", "• item", "&bull; item"},
		{"escapes tags", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Markup(tc.in))
		})
	}
}

// A single pass over markup that already contains tags must not wrap them again.
func TestMarkup_DoesNotDoubleWrap(t *testing.T) {
	out := Markup("<strong>x</strong> and <h2>y</h2>")
	require.NotContains(t, out, "<strong>")
	require.NotContains(t, out, "<h2>")
	require.Equal(t, 1, strings.Count(out, "x"))
}

func TestMarkup_Deterministic(t *testing.T) {
	in := "## Plan\n• **Revenue**: up\n• *Costs*: flat"
	require.Equal(t, Markup(in), Markup(in))
	require.Equal(t,
		"<h2>Plan</h2>&bull; <strong>Revenue</strong>: up<br>&bull; <em>Costs</em>: flat",
		Markup(in))
}
