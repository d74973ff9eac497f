package view

import (
	"html/template"
	"io"
	"time"

	"github.com/comigor/bizanalyst/internal/format"
	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/session"
)

var pageTmpl = template.Must(template.New("chat").Funcs(template.FuncMap{
	// Markup output is already escaped by format.Markup.
	"markup": func(content string) template.HTML { return template.HTML(format.Markup(content)) },
	"avatar": func(r session.Role) string {
		if r == session.RoleAssistant {
			return "💡"
		}
		return "👤"
	},
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#111827;color:#e5e7eb;max-width:860px;margin:2rem auto;padding:0 1rem}
.message{display:flex;gap:.75rem;margin:1rem 0}
.message-avatar{font-size:1.5rem}
.message-content{background:#1f2937;border-radius:8px;padding:.75rem 1rem;flex:1}
.user-message .message-content{background:#1e3a8a}
.chat-date{color:#9ca3af;font-size:.8rem}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="chat-date">{{.ID}} · saved {{stamp .Timestamp}}</div>
{{range .Messages}}<div class="message {{.Role}}-message">
<div class="message-avatar">{{avatar .Role}}</div>
<div class="message-content">{{markup .Content}}</div>
</div>
{{end}}</body>
</html>
`))

// WriteHTML renders rec as a standalone HTML page.
func WriteHTML(w io.Writer, rec history.Record) error {
	return pageTmpl.Execute(w, rec)
}
