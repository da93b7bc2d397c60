// ABOUTME: Human-readable status page: session state, tool groups, recent history.
// ABOUTME: Renders markdown docs through goldmark into a small HTML template.

package webstatus

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/matlab-gateway/internal/gate"
	"github.com/2389/matlab-gateway/internal/session"
	"github.com/2389/matlab-gateway/internal/store"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>matlab-gateway status</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 56rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1, h2 { border-bottom: 1px solid #ddd; padding-bottom: .25rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: .3rem .6rem; border-bottom: 1px solid #eee; font-size: .9rem; }
code { background: #f4f4f4; padding: .1rem .3rem; border-radius: 3px; }
.err { color: #b00020; }
.docs { background: #fafafa; padding: 1rem; border-radius: 6px; margin-top: 2rem; }
</style>
</head>
<body>
<h1>matlab-gateway</h1>

<h2>Session</h2>
<table>
<tr><th>Kind</th><td>{{if .Session.Connected}}{{.SessionKind}}{{else}}none{{end}}</td></tr>
{{if .Session.Name}}<tr><th>Name</th><td>{{.Session.Name}}</td></tr>{{end}}
<tr><th>Connected</th><td>{{.Session.Connected}}</td></tr>
{{if .Session.Connected}}<tr><th>Uptime</th><td>{{.Uptime}}</td></tr>{{end}}
{{if .Session.LastError}}<tr><th>Last error</th><td class="err">{{.Session.LastError}}</td></tr>{{end}}
</table>

<h2>Enabled tool groups</h2>
<p>{{range $i, $g := .Groups}}{{if $i}}, {{end}}<code>{{$g}}</code>{{end}}</p>

{{if .Invocations}}
<h2>Recent invocations</h2>
<table>
<tr><th>Time</th><th>Tool</th><th>Op</th><th>Duration</th><th>Error</th></tr>
{{range .Invocations}}
<tr>
<td>{{.CreatedAt.Format "15:04:05"}}</td>
<td><code>{{.Tool}}</code></td>
<td>{{.Op}}</td>
<td>{{.DurationMs}}ms</td>
<td class="err">{{.ErrorKind}}</td>
</tr>
{{end}}
</table>
{{end}}

{{if .Docs}}
<div class="docs">{{.Docs}}</div>
{{end}}
</body>
</html>
`

// Handler serves the status page.
type Handler struct {
	sessions *session.Manager
	groups   *gate.Gate
	history  store.Store
	docs     []byte // raw markdown rendered at the bottom of the page
	logger   *slog.Logger
	tmpl     *template.Template
}

// Config holds construction options for the status handler.
type Config struct {
	Sessions *session.Manager
	Gate     *gate.Gate
	History  store.Store // optional
	Docs     string      // optional markdown appended to the page
	Logger   *slog.Logger
}

// New creates the status page handler.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: cfg.Sessions,
		groups:   cfg.Gate,
		history:  cfg.History,
		docs:     []byte(cfg.Docs),
		logger:   logger.With("component", "webstatus"),
		tmpl:     template.Must(template.New("status").Parse(pageTemplate)),
	}
}

// ServeHTTP renders the status page. Only snapshot state is read; the page
// never blocks behind an in-flight engine call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.sessions.Current()

	var invocations []*store.Invocation
	if h.history != nil {
		recent, err := h.history.RecentInvocations(r.Context(), 20)
		if err != nil {
			h.logger.Warn("reading invocation history", "error", err)
		} else {
			invocations = recent
		}
	}

	var docsHTML template.HTML
	if len(h.docs) > 0 {
		var buf bytes.Buffer
		if err := goldmark.Convert(h.docs, &buf); err != nil {
			h.logger.Error("failed to convert markdown", "error", err)
		} else {
			docsHTML = template.HTML(buf.String())
		}
	}

	data := struct {
		Session     session.Snapshot
		SessionKind string
		Uptime      string
		Groups      []string
		Invocations []*store.Invocation
		Docs        template.HTML
	}{
		Session:     snap,
		SessionKind: string(snap.Kind),
		Uptime:      snap.Uptime.Round(time.Second).String(),
		Groups:      h.groups.Enabled(),
		Invocations: invocations,
		Docs:        docsHTML,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render status page", "error", err)
		fmt.Fprint(w, "<p>render error</p>")
	}
}
