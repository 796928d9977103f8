package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gra-pca/sentinel/pkg/audit"
	"gra-pca/sentinel/pkg/simulation"
)

// Event types sent to websocket clients.
const (
	EventProgress   = "progress"
	EventSimulation = "simulation"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Event is the JSON envelope written to websocket clients.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// SimulationSummary is the payload of a simulation event.
type SimulationSummary struct {
	ID                 string  `json:"id"`
	RulePackID         string  `json:"rule_pack_id"`
	TotalDeclarations  int     `json:"total_declarations"`
	ViolationsDetected int     `json:"violations_detected"`
	Precision          float64 `json:"precision"`
	Recall             float64 `json:"recall"`
	F1Score            float64 `json:"f1_score"`
}

// Subscription receives encoded events until it is closed.
type Subscription struct {
	C <-chan []byte

	ch chan []byte
	b  *Broadcaster
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.b.remove(s)
}

// Broadcaster fans events out to subscribers without ever blocking the
// publisher.
type Broadcaster struct {
	buffer   int
	logger   *slog.Logger
	now      func() time.Time
	upgrader websocket.Upgrader

	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	closed  bool
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster with a per-client buffer of size
// buffer (at least 1).
func NewBroadcaster(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		buffer: buffer,
		logger: logger.With("component", "monitor.broadcaster"),
		now:    time.Now,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: writeWait,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber. On a closed broadcaster the returned
// subscription's channel is already closed.
func (b *Broadcaster) Subscribe() *Subscription {
	ch := make(chan []byte, b.buffer)
	sub := &Subscription{C: ch, ch: ch, b: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish broadcasts an audit progress snapshot. It matches
// audit.ProgressFunc.
func (b *Broadcaster) Publish(p audit.Progress) {
	b.Broadcast(Event{Type: EventProgress, Timestamp: p.Timestamp, Data: p})
}

// ObserveSimulation broadcasts a summary of a completed simulation. It
// satisfies simulation.Observer.
func (b *Broadcaster) ObserveSimulation(r *simulation.Result) {
	if r == nil {
		return
	}
	b.Broadcast(Event{
		Type:      EventSimulation,
		Timestamp: r.CompletedAt,
		Data: SimulationSummary{
			ID:                 r.ID,
			RulePackID:         r.RulePackID,
			TotalDeclarations:  r.TotalDeclarations,
			ViolationsDetected: r.ViolationsDetected,
			Precision:          r.Precision,
			Recall:             r.Recall,
			F1Score:            r.F1Score,
		},
	})
}

// Broadcast sends e to every subscriber whose buffer has room.
func (b *Broadcaster) Broadcast(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}
	msg, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("failed to encode event", "type", e.Type, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
}

// Clients returns the number of live subscribers.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many per-client deliveries were skipped.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close disconnects every subscriber. Later publishes are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects or the broadcaster closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := b.Subscribe()
	defer sub.Close()
	b.logger.DebugContext(r.Context(), "websocket client connected", "remote_addr", r.RemoteAddr)

	// Inbound messages are ignored; reading processes control frames and
	// notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			b.logger.DebugContext(r.Context(), "websocket client disconnected", "remote_addr", r.RemoteAddr)
			return
		}
	}
}
