package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
	"github.com/codeready-toolchain/crewviz/pkg/graph"
	"github.com/codeready-toolchain/crewviz/pkg/models"
	"github.com/codeready-toolchain/crewviz/pkg/stream"
)

// recentMessages is how many log entries the page lists.
const recentMessages = 15

var pageFuncs = template.FuncMap{
	"stateColor": func(s stream.State) string {
		switch s {
		case stream.StateOpen:
			return "#22c55e"
		case stream.StateConnecting, stream.StateClosed:
			return "#f59e0b"
		case stream.StateExhausted:
			return "#ef4444"
		default:
			return "#8b949e"
		}
	},
	"tint": func(n graph.NodeState) template.CSS {
		return template.CSS("border-color:" + n.Color)
	},
	"last": func(ms []models.Message) models.Message {
		return ms[len(ms)-1]
	},
	"stroke": func(e graph.EdgeState) template.CSS {
		if e.Stroke == "" {
			return ""
		}
		return template.CSS("color:" + e.Stroke)
	},
}

var pageTemplate = template.Must(template.New("page").Funcs(pageFuncs).Parse(tmplPage))

type pageData struct {
	View    dashboard.View
	Crews   []crewRow
	Flow    []graph.EdgeState
	Recent  []models.Message
	Skipped int
}

type crewRow struct {
	Node    graph.NodeState
	Members []graph.NodeState
}

// pageHandler handles GET /: the scene rendered as HTML. The page listens on
// /ws and reloads itself on every scene update.
func (s *Server) pageHandler(c *gin.Context) {
	view := s.dashboard.View()
	data := buildPageData(view, s.dashboard.Messages())

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.Error("Failed to render page", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func buildPageData(view dashboard.View, log []models.Message) pageData {
	data := pageData{View: view}
	scene := view.Scene
	if scene == nil {
		return data
	}

	// Crew and output nodes in graph order, each followed by its agents.
	members := make(map[string][]graph.NodeState)
	for _, e := range scene.Edges {
		if e.Kind != graph.EdgeKindMembership {
			if e.Kind == graph.EdgeKindFlow {
				data.Flow = append(data.Flow, e)
			}
			continue
		}
		if n, ok := scene.Node(e.Target); ok {
			members[e.Source] = append(members[e.Source], n)
		}
	}
	for _, n := range scene.Nodes {
		if n.Kind == graph.NodeKindAgent {
			continue
		}
		data.Crews = append(data.Crews, crewRow{Node: n, Members: members[n.ID]})
	}

	if len(log) > recentMessages {
		data.Skipped = len(log) - recentMessages
		log = log[data.Skipped:]
	}
	data.Recent = log
	return data
}

const tmplPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>crewviz</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:'JetBrains Mono',monospace,sans-serif;background:#0d1117;color:#c9d1d9;font-size:13px;line-height:1.5}
nav{background:#161b22;border-bottom:1px solid #30363d;padding:8px 16px;display:flex;gap:16px;align-items:center}
nav .brand{color:#f0f6fc;font-weight:700;font-size:15px}
.dot{display:inline-block;width:8px;height:8px;border-radius:50%;margin-right:6px}
.err{color:#f85149;margin-left:auto}
main{padding:16px}
h2{font-size:13px;font-weight:600;color:#8b949e;text-transform:uppercase;letter-spacing:.06em;margin:16px 0 8px}
.crews{display:flex;gap:12px;flex-wrap:wrap}
.crew{background:#161b22;border:2px solid #30363d;border-radius:6px;padding:12px 16px;min-width:220px}
.crew.active{box-shadow:0 0 0 2px #3b82f6}
.crew .name{font-weight:700;color:#f0f6fc}
.crew .sub{font-size:11px;color:#8b949e}
.agent{border-left:3px solid #30363d;padding:2px 8px;margin-top:6px}
.agent.active{font-weight:700;color:#f0f6fc}
table{width:100%;border-collapse:collapse;font-size:12px}
th{text-align:left;padding:6px 10px;border-bottom:1px solid #30363d;color:#8b949e;font-size:11px;text-transform:uppercase}
td{padding:5px 10px;border-bottom:1px solid #21262d;vertical-align:top}
.anim{font-weight:700}
.muted{color:#8b949e}
</style>
</head>
<body>
<nav>
<span class="brand">crewviz</span>
<span><span class="dot" style="background:{{stateColor .View.Status.State}}"></span>{{.View.Status.State}}{{if .View.Status.ReconnectAttempt}} (attempt {{.View.Status.ReconnectAttempt}}){{end}}</span>
<span class="muted">{{.View.MessageCount}} messages</span>
{{with .View.Status.LastError}}<span class="err">{{.}}</span>{{end}}
</nav>
<main>
<h2>Crews</h2>
<div class="crews">
{{range .Crews}}<div class="crew{{if .Node.Active}} active{{end}}" id="node-{{.Node.ID}}" style="{{tint .Node}}">
<div class="name">{{.Node.Label}}</div>
{{with .Node.Subtitle}}<div class="sub">{{.}}</div>{{end}}
{{range .Members}}<div class="agent{{if .Active}} active{{end}}" id="node-{{.ID}}" style="{{tint .}}">{{.Label}}</div>
{{end}}</div>
{{end}}</div>
<h2>Flow</h2>
<table>
<tr><th>Edge</th><th>Label</th><th>Messages</th><th>Latest</th></tr>
{{range .Flow}}<tr id="edge-{{.ID}}"><td style="{{stroke .}}"{{if .Animated}} class="anim"{{end}}>{{.Source}} → {{.Target}}</td><td>{{.Label}}</td><td>{{len .MessageHistory}}</td><td>{{with .MessageHistory}}{{(last .).Message}}{{else}}<span class="muted">none</span>{{end}}</td></tr>
{{end}}</table>
<h2>Messages</h2>
<table>
<tr><th>Stage</th><th>Message</th><th>Time</th></tr>
{{if .Skipped}}<tr><td colspan="3" class="muted">{{.Skipped}} earlier messages</td></tr>{{end}}
{{range .Recent}}<tr><td>{{.Stage}}</td><td>{{.Message}}</td><td class="muted">{{.Timestamp}}</td></tr>
{{else}}<tr><td colspan="3" class="muted">Waiting for messages…</td></tr>
{{end}}</table>
</main>
<script>
(function(){
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function(ev){
    try { if (JSON.parse(ev.data).type === "scene.updated") location.reload(); } catch(e) {}
  };
})();
</script>
</body>
</html>
`
