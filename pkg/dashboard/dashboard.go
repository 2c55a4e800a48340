// Package dashboard wires a message channel to the graph projection.
//
// A Dashboard is the explicit owner of one watch session: Start mounts it
// (subscribe and connect), Stop unmounts it (unsubscribe and disconnect).
// Every channel notification recomputes the scene from the full log and
// fans the result out to subscribers.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/crewviz/pkg/graph"
	"github.com/codeready-toolchain/crewviz/pkg/models"
	"github.com/codeready-toolchain/crewviz/pkg/stream"
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("dashboard stopped")

// Source is the subset of *stream.Channel used by the dashboard.
type Source interface {
	Connect(ctx context.Context)
	Disconnect()
	Snapshot() stream.Snapshot
	Subscribe(fn stream.Listener) func()
}

// View is what renderers draw: the scene and the connection indicator.
type View struct {
	Scene        *graph.Scene  `json:"scene"`
	Status       stream.Status `json:"status"`
	MessageCount int           `json:"message_count"`
}

// Listener receives every recomputed view. It runs on the source's loop
// goroutine and must return promptly.
type Listener func(View)

// Dashboard owns a source and projects its log onto a graph.
type Dashboard struct {
	source Source
	graph  *graph.Graph

	// lifeMu serialises Start, Stop and Reconnect so a Stop racing a
	// Start never leaves the source connected.
	lifeMu sync.Mutex

	mu          sync.RWMutex
	view        View
	messages    []models.Message
	listeners   map[uint64]Listener
	nextID      uint64
	unsubscribe func()
	started     bool
	stopped     bool
}

// New creates a dashboard for source over g. The initial view is the
// projection of the source's current log.
func New(source Source, g *graph.Graph) *Dashboard {
	d := &Dashboard{
		source:    source,
		graph:     g,
		listeners: make(map[uint64]Listener),
	}
	d.view, d.messages = d.project(source.Snapshot())
	return d
}

// Start subscribes to the source and connects it. Calling Start twice is a no-op.
//
// The catch-up view is delivered to listeners before Start returns, so
// listeners must be able to receive by then.
func (d *Dashboard) Start(ctx context.Context) error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	if d.started {
		d.mu.Unlock()
		slog.Warn("Dashboard already started, ignoring duplicate Start call")
		return nil
	}
	d.started = true
	d.mu.Unlock()

	unsubscribe := d.source.Subscribe(d.onSnapshot)

	d.mu.Lock()
	d.unsubscribe = unsubscribe
	d.mu.Unlock()

	// Catch up on anything that arrived before the subscription.
	d.onSnapshot(d.source.Snapshot())

	d.source.Connect(ctx)
	slog.Info("Dashboard started", "nodes", len(d.graph.Nodes), "edges", len(d.graph.Edges))
	return nil
}

// Stop disconnects the source and then unsubscribes, so the final idle
// status reaches the view. It is safe to call more than once.
func (d *Dashboard) Stop() {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.source.Disconnect()

	d.mu.Lock()
	unsubscribe := d.unsubscribe
	d.unsubscribe = nil
	d.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	slog.Info("Dashboard stopped")
}

// Reconnect asks the source to connect again, e.g. after retries ran out.
func (d *Dashboard) Reconnect(ctx context.Context) error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	d.mu.RLock()
	stopped := d.stopped
	d.mu.RUnlock()
	if stopped {
		return ErrStopped
	}
	d.source.Connect(ctx)
	return nil
}

// View returns the latest view.
func (d *Dashboard) View() View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view
}

// Scene returns the latest scene.
func (d *Dashboard) Scene() *graph.Scene {
	return d.View().Scene
}

// Status returns the latest connection status.
func (d *Dashboard) Status() stream.Status {
	return d.View().Status
}

// Messages returns the full message log the latest view was computed from.
func (d *Dashboard) Messages() []models.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.messages
}

// Graph returns the static graph.
func (d *Dashboard) Graph() *graph.Graph {
	return d.graph
}

// Subscribe registers fn for view updates and returns a function that removes it.
func (d *Dashboard) Subscribe(fn Listener) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

func (d *Dashboard) onSnapshot(snap stream.Snapshot) {
	view, messages := d.project(snap)

	d.mu.Lock()
	if len(messages) < len(d.messages) {
		// An older snapshot raced with a newer one; keep the newer.
		d.mu.Unlock()
		return
	}
	d.view = view
	d.messages = messages
	listeners := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}
	d.mu.Unlock()

	for _, l := range listeners {
		l(view)
	}
}

func (d *Dashboard) project(snap stream.Snapshot) (View, []models.Message) {
	return View{
		Scene:        graph.Project(d.graph, snap.Messages),
		Status:       snap.Status,
		MessageCount: len(snap.Messages),
	}, snap.Messages
}
