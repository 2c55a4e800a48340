package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/crewviz/pkg/masking"
	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// Channel is a receive-only connection to the message source with an
// append-only message log. Create it with New; it is idle until Connect.
type Channel struct {
	cfg    Config
	dialer Dialer
	// displayURL is cfg.URL with credentials masked, for logs and status.
	displayURL string

	// Published state, read by any goroutine.
	mu        sync.RWMutex
	log       []models.Message
	status    Status
	listeners map[uint64]Listener
	nextID    uint64

	// Lifecycle of the loop goroutine.
	lifeMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	wg         sync.WaitGroup

	// connectReq coalesces Connect calls; buffered so Connect never blocks.
	connectReq chan struct{}
	// events carries helper results to the loop. Unbuffered: a send only
	// succeeds if the loop takes it, which lets helpers clean up after teardown.
	events chan any
}

// loopState is owned by the loop goroutine.
type loopState struct {
	conn       Conn
	dialing    bool
	dialSeq    uint64
	dialCancel context.CancelFunc
	timer      *time.Timer
	timerC     <-chan time.Time
}

type dialResult struct {
	seq  uint64
	conn Conn
	err  error
}

type frameEvent struct {
	conn Conn
	data []byte
}

type readFailed struct {
	conn Conn
	err  error
}

// New creates an idle channel.
func New(cfg Config, dialer Dialer) *Channel {
	return &Channel{
		cfg:        cfg,
		dialer:     dialer,
		displayURL: masking.URL(cfg.URL),
		status:     Status{State: StateIdle, URL: masking.URL(cfg.URL)},
		listeners:  make(map[uint64]Listener),
		connectReq: make(chan struct{}, 1),
		events:     make(chan any),
	}
}

// Connect starts connecting to the message source. It never blocks on I/O.
//
// If the connection is open this is a no-op. A connection attempt still in
// progress is abandoned and restarted, a pending reconnect timer is cancelled,
// and an exhausted channel gets a fresh set of reconnect attempts.
// The channel stays alive until Disconnect or until ctx is cancelled.
func (c *Channel) Connect(ctx context.Context) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.loopCancel != nil {
		select {
		case <-c.loopDone:
			// The parent context ended the previous lifecycle.
			c.stopLocked()
		default:
		}
	}

	if c.loopCancel == nil {
		loopCtx, cancel := context.WithCancel(ctx)
		c.loopCancel = cancel
		c.loopDone = make(chan struct{})
		c.wg.Add(1)
		go c.run(loopCtx, c.loopDone)
	}

	select {
	case c.connectReq <- struct{}{}:
	default:
		// A request is already pending.
	}
}

// Disconnect tears the channel down: it cancels any pending reconnect timer,
// abandons an in-flight dial, closes the open connection, and waits until every
// helper goroutine has exited. No connection is made after Disconnect returns.
// The message log is kept. Calling Disconnect on an idle channel is a no-op.
func (c *Channel) Disconnect() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.loopCancel == nil {
		return
	}
	c.stopLocked()
}

// stopLocked cancels the loop and waits for it and its helpers. lifeMu must be held.
func (c *Channel) stopLocked() {
	c.loopCancel()
	c.loopCancel = nil
	c.wg.Wait()

	// Drop a request that raced with teardown so it cannot leak into the next lifecycle.
	select {
	case <-c.connectReq:
	default:
	}
}

// Messages returns the log in arrival order. The slice must not be modified.
func (c *Channel) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log[:len(c.log):len(c.log)]
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Snapshot returns the log and status as observed at one instant.
func (c *Channel) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (c *Channel) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Channel) snapshotLocked() Snapshot {
	return Snapshot{
		Messages: c.log[:len(c.log):len(c.log)],
		Status:   c.status,
	}
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	ls := &loopState{}
	defer c.teardown(ls)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.connectReq:
			c.handleConnect(ctx, ls)
		case <-ls.timerC:
			ls.timer, ls.timerC = nil, nil
			c.dial(ctx, ls)
		case ev := <-c.events:
			switch ev := ev.(type) {
			case dialResult:
				c.handleDialResult(ctx, ls, ev)
			case frameEvent:
				c.handleFrame(ls, ev)
			case readFailed:
				c.handleReadFailed(ctx, ls, ev)
			}
		}
	}
}

func (c *Channel) handleConnect(ctx context.Context, ls *loopState) {
	if ls.conn != nil {
		slog.Debug("Message source already connected", "url", c.displayURL)
		return
	}

	ls.stopTimer()
	if ls.dialing {
		slog.Debug("Restarting in-flight connection attempt", "url", c.displayURL)
		ls.dialCancel()
		ls.dialing = false
	}

	if c.Status().State == StateExhausted {
		c.updateStatus(func(s *Status) { s.ReconnectAttempt = 0 })
	}
	c.dial(ctx, ls)
}

func (c *Channel) dial(ctx context.Context, ls *loopState) {
	ls.dialSeq++
	seq := ls.dialSeq
	dialCtx, cancel := context.WithCancel(ctx)
	ls.dialing = true
	ls.dialCancel = cancel

	c.updateStatus(func(s *Status) { s.State = StateConnecting })
	slog.Info("Connecting to message source",
		"url", c.displayURL, "reconnect_attempt", c.Status().ReconnectAttempt)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		conn, err := c.dialer.Dial(dialCtx, c.cfg.URL)
		select {
		case c.events <- dialResult{seq: seq, conn: conn, err: err}:
		case <-ctx.Done():
			if conn != nil {
				_ = conn.Close()
			}
		}
	}()
}

func (c *Channel) handleDialResult(ctx context.Context, ls *loopState, res dialResult) {
	if res.seq != ls.dialSeq || !ls.dialing || ctx.Err() != nil {
		// Superseded attempt or teardown in progress.
		if res.conn != nil {
			_ = res.conn.Close()
		}
		return
	}
	ls.dialing = false
	ls.dialCancel()

	if res.err != nil {
		slog.Warn("Cannot connect to message source", "url", c.displayURL, "error", maskErr(res.err))
		c.handleError(false)
		c.handleClose(ls)
		return
	}

	ls.conn = res.conn
	c.updateStatus(func(s *Status) {
		s.State = StateOpen
		s.Connected = true
		s.LastError = ""
		s.ReconnectAttempt = 0
	})
	slog.Info("Connected to message source", "url", c.displayURL)

	c.wg.Add(1)
	go c.readLoop(ctx, res.conn)
}

// readLoop forwards frames from conn until it fails or the loop exits.
func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	defer c.wg.Done()
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			select {
			case c.events <- readFailed{conn: conn, err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case c.events <- frameEvent{conn: conn, data: data}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) handleFrame(ls *loopState, ev frameEvent) {
	if ev.conn != ls.conn {
		return
	}

	msg, err := models.ParseMessage(ev.data)
	if err != nil {
		slog.Warn("Dropping malformed message", "error", err, "bytes", len(ev.data))
		return
	}

	c.mu.Lock()
	c.log = append(c.log, msg)
	c.mu.Unlock()

	slog.Debug("Received message", "stage", msg.Stage, "message", msg.Message)
	c.notify()
}

func (c *Channel) handleReadFailed(ctx context.Context, ls *loopState, ev readFailed) {
	if ev.conn != ls.conn || ctx.Err() != nil {
		return
	}
	ls.conn = nil
	_ = ev.conn.Close()

	if errors.Is(ev.err, ErrConnClosed) {
		slog.Info("Message source closed the connection", "url", c.displayURL)
	} else {
		slog.Warn("Message source connection lost", "url", c.displayURL, "error", maskErr(ev.err))
		c.handleError(true)
	}
	c.handleClose(ls)
}

// handleError records a transport error. wasOpen tells a dropped session apart
// from a source that could not be reached at all.
func (c *Channel) handleError(wasOpen bool) {
	c.updateStatus(func(s *Status) {
		s.Connected = false
		if wasOpen {
			s.LastError = "Connection error occurred"
		} else {
			s.LastError = fmt.Sprintf(
				"Cannot connect to message source at %s: please ensure the backend is running", c.displayURL)
		}
	})
}

// handleClose applies the reconnect policy after a connection ends.
func (c *Channel) handleClose(ls *loopState) {
	status := c.Status()
	if status.ReconnectAttempt < c.cfg.MaxReconnectAttempts {
		attempt := status.ReconnectAttempt + 1
		c.updateStatus(func(s *Status) {
			s.State = StateClosed
			s.Connected = false
			s.ReconnectAttempt = attempt
		})
		slog.Info("Scheduling reconnect",
			"attempt", attempt,
			"max_attempts", c.cfg.MaxReconnectAttempts,
			"delay", c.cfg.ReconnectDelay)
		ls.timer = time.NewTimer(c.cfg.ReconnectDelay)
		ls.timerC = ls.timer.C
		return
	}

	c.updateStatus(func(s *Status) {
		s.State = StateExhausted
		s.Connected = false
		s.LastError = fmt.Sprintf(
			"Unable to connect after %d attempts. Please check if the server is running.",
			c.cfg.MaxReconnectAttempts)
	})
	slog.Error("Giving up on message source", "url", c.displayURL, "attempts", c.cfg.MaxReconnectAttempts)
}

// teardown runs when the loop exits and releases everything the loop owns.
func (c *Channel) teardown(ls *loopState) {
	ls.stopTimer()
	if ls.dialing {
		ls.dialCancel()
		ls.dialing = false
	}
	if ls.conn != nil {
		if err := ls.conn.Close(); err != nil {
			slog.Debug("Error closing message source connection", "error", maskErr(err))
		}
		ls.conn = nil
	}

	c.updateStatus(func(s *Status) {
		s.State = StateIdle
		s.Connected = false
		s.LastError = ""
		s.ReconnectAttempt = 0
	})
	slog.Info("Disconnected from message source", "url", c.displayURL)
}

// maskErr renders err with source credentials masked. Transport errors
// often quote the dialed URL.
func maskErr(err error) string {
	return masking.URL(err.Error())
}

func (ls *loopState) stopTimer() {
	if ls.timer != nil {
		ls.timer.Stop()
		ls.timer, ls.timerC = nil, nil
	}
}

// updateStatus mutates the status and notifies listeners if it changed.
func (c *Channel) updateStatus(fn func(*Status)) {
	c.mu.Lock()
	before := c.status
	fn(&c.status)
	changed := before != c.status
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *Channel) notify() {
	c.mu.RLock()
	snap := c.snapshotLocked()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}
