package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/crewviz/pkg/config"
	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
	"github.com/codeready-toolchain/crewviz/pkg/events"
	"github.com/codeready-toolchain/crewviz/pkg/graph"
	"github.com/codeready-toolchain/crewviz/pkg/models"
	"github.com/codeready-toolchain/crewviz/pkg/stream"
)

// fakeDashboard implements DashboardService for tests.
type fakeDashboard struct {
	mu         sync.Mutex
	log        []models.Message
	status     stream.Status
	reconnects int
	err        error
}

func (f *fakeDashboard) View() dashboard.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dashboard.View{
		Scene:        graph.Project(graph.Builtin(), f.log),
		Status:       f.status,
		MessageCount: len(f.log),
	}
}

func (f *fakeDashboard) Messages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.log
}

func (f *fakeDashboard) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reconnects++
	f.status.State = stream.StateConnecting
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Source: config.DefaultSourceConfig(),
		Server: config.DefaultServerConfig(),
	}
}

func sampleLog() []models.Message {
	return []models.Message{
		{Stage: models.StageSystem, Message: "Connected to CrewAI WebSocket Server"},
		{Stage: models.StageResearch, Message: "Starting research phase with EduResearchCrew"},
		{Stage: models.StageResearch, Message: "Research phase completed"},
		{Stage: models.StageContent, Message: "Agent 'Editor' is editing <b>intro</b>"},
	}
}

func setupTestServer(t *testing.T, dash *fakeDashboard, withWS bool) *httptest.Server {
	t.Helper()
	var cm *events.ConnectionManager
	if withWS {
		cm = events.NewConnectionManager(dash, 5*time.Second)
	}
	s := NewServer(testConfig(), dash, cm)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, target any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if target != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
	}
	return resp
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		status stream.Status
		want   string
	}{
		{
			name:   "connected",
			status: stream.Status{State: stream.StateOpen, Connected: true},
			want:   "healthy",
		},
		{
			name:   "reconnecting",
			status: stream.Status{State: stream.StateClosed, LastError: "Connection error occurred", ReconnectAttempt: 2},
			want:   "degraded",
		},
		{
			name:   "exhausted",
			status: stream.Status{State: stream.StateExhausted, LastError: "Unable to connect after 5 attempts. Please check if the server is running."},
			want:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t, &fakeDashboard{log: sampleLog(), status: tt.status}, true)

			var body HealthResponse
			resp := getJSON(t, ts.URL+"/health", &body)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, body.Status)
			assert.NotEmpty(t, body.Version)
			assert.Equal(t, tt.status, body.Source)
			assert.Equal(t, 4, body.Messages)
			assert.Equal(t, 0, body.WebSocketClients)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{}, false)

	resp := getJSON(t, ts.URL+"/health", nil)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", resp.Header.Get("Referrer-Policy"))
	assert.Equal(t, "camera=(), microphone=(), geolocation=()", resp.Header.Get("Permissions-Policy"))
}

func TestScene(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{log: sampleLog()}, false)

	var scene graph.Scene
	resp := getJSON(t, ts.URL+"/api/v1/scene", &scene)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, scene.Nodes, 8)
	assert.Len(t, scene.Edges, 7)
	assert.Equal(t, []string{graph.NodeContentCrew, graph.NodeEditor}, scene.ActiveNodeIDs())
	assert.Equal(t, []string{graph.EdgeContentToOutput}, scene.ActiveEdgeIDs())

	research, ok := scene.Edge(graph.EdgeResearchToContent)
	require.True(t, ok)
	assert.Len(t, research.MessageHistory, 2)
}

func TestView(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{log: sampleLog(), status: stream.Status{State: stream.StateOpen, Connected: true}}, false)

	var view dashboard.View
	getJSON(t, ts.URL+"/api/v1/view", &view)
	assert.Equal(t, 4, view.MessageCount)
	assert.True(t, view.Status.Connected)
	require.NotNil(t, view.Scene)
}

func TestStatus(t *testing.T) {
	want := stream.Status{State: stream.StateClosed, LastError: "Connection error occurred", ReconnectAttempt: 1, URL: "ws://localhost:8765"}
	ts := setupTestServer(t, &fakeDashboard{status: want}, false)

	var got stream.Status
	getJSON(t, ts.URL+"/api/v1/status", &got)
	assert.Equal(t, want, got)
}

func TestMessages(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{log: sampleLog()}, false)

	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{
			name:   "all",
			query:  "",
			status: http.StatusOK,
			want: []string{
				"Connected to CrewAI WebSocket Server",
				"Starting research phase with EduResearchCrew",
				"Research phase completed",
				"Agent 'Editor' is editing <b>intro</b>",
			},
		},
		{
			name:   "stage filter",
			query:  "?stage=research",
			status: http.StatusOK,
			want:   []string{"Starting research phase with EduResearchCrew", "Research phase completed"},
		},
		{
			name:   "since",
			query:  "?since=3",
			status: http.StatusOK,
			want:   []string{"Agent 'Editor' is editing <b>intro</b>"},
		},
		{
			name:   "since past the end",
			query:  "?since=99",
			status: http.StatusOK,
			want:   []string{},
		},
		{
			name:   "since and stage",
			query:  "?since=2&stage=research",
			status: http.StatusOK,
			want:   []string{"Research phase completed"},
		},
		{
			name:   "bad since",
			query:  "?since=-1",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/v1/messages" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				var body ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.NotEmpty(t, body.Error)
				return
			}

			var body MessagesResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, 4, body.Total)
			got := make([]string, 0, len(body.Messages))
			for _, m := range body.Messages {
				got = append(got, m.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconnect(t *testing.T) {
	dash := &fakeDashboard{status: stream.Status{State: stream.StateExhausted}}
	ts := setupTestServer(t, dash, false)

	resp, err := http.Post(ts.URL+"/api/v1/reconnect", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body ReconnectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, stream.StateConnecting, body.Status.State)
	dash.mu.Lock()
	defer dash.mu.Unlock()
	assert.Equal(t, 1, dash.reconnects)
}

func TestReconnectAfterStop(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{err: dashboard.ErrStopped}, false)

	resp, err := http.Post(ts.URL+"/api/v1/reconnect", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSocket(t *testing.T) {
	dash := &fakeDashboard{log: sampleLog(), status: stream.Status{State: stream.StateOpen, Connected: true}}
	ts := setupTestServer(t, dash, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var established map[string]any
	require.NoError(t, json.Unmarshal(data, &established))
	assert.Equal(t, events.EventTypeConnectionEstablished, established["type"])

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	var snapshot events.ViewEvent
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, events.EventTypeSceneSnapshot, snapshot.Type)
	assert.Equal(t, 4, snapshot.View.MessageCount)

	var health HealthResponse
	getJSON(t, ts.URL+"/health", &health)
	assert.Equal(t, 1, health.WebSocketClients)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{}, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.example.com"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketUnavailable(t *testing.T) {
	ts := setupTestServer(t, &fakeDashboard{}, false)

	var body ErrorResponse
	resp := getJSON(t, ts.URL+"/ws", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "WebSocket not available", body.Error)
}

func TestPage(t *testing.T) {
	dash := &fakeDashboard{
		log:    sampleLog(),
		status: stream.Status{State: stream.StateClosed, LastError: "Connection error occurred", ReconnectAttempt: 1},
	}
	ts := setupTestServer(t, dash, false)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	page := buf.String()

	assert.Contains(t, page, "EduResearchCrew")
	assert.Contains(t, page, "Quality Reviewer")
	assert.Contains(t, page, `class="crew active" id="node-2"`)
	assert.Contains(t, page, `class="agent active" id="node-7"`)
	assert.Contains(t, page, "Connection error occurred")
	assert.Contains(t, page, "(attempt 1)")
	// Message text is escaped.
	assert.Contains(t, page, "&lt;b&gt;intro&lt;/b&gt;")
	assert.NotContains(t, page, "<b>intro</b>")
}

func TestBuildPageData(t *testing.T) {
	log := make([]models.Message, 0, recentMessages+5)
	for i := 0; i < recentMessages+5; i++ {
		log = append(log, models.Message{Stage: models.StageContent, Message: "Generating content"})
	}
	view := dashboard.View{Scene: graph.Project(graph.Builtin(), log), MessageCount: len(log)}

	data := buildPageData(view, log)
	assert.Equal(t, 5, data.Skipped)
	assert.Len(t, data.Recent, recentMessages)

	require.Len(t, data.Crews, 3)
	assert.Equal(t, graph.NodeResearchCrew, data.Crews[0].Node.ID)
	assert.Len(t, data.Crews[0].Members, 2)
	assert.Len(t, data.Crews[1].Members, 3)
	assert.Empty(t, data.Crews[2].Members)
	require.Len(t, data.Flow, 2)
	assert.Len(t, data.Flow[1].MessageHistory, len(log))

	empty := buildPageData(dashboard.View{}, nil)
	assert.Empty(t, empty.Crews)
}
