package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/riverrake/holdem/pkg/engine"
)

// Transport and keepalive tuning, grounded in the same
// gorilla/websocket read/write-pump shape as the rest of the
// retrieval pack's websocket servers.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	outboxSize     = 32
)

// ActionMessage is the client-to-server wire shape for a submitted
// action: {"kind":"RAISE","amount":200}. amount is ignored for
// FOLD/CHECK/CALL/ALL_IN.
type ActionMessage struct {
	Kind   string `json:"kind"`
	Amount int64  `json:"amount"`
}

// Bridge is a gorilla/websocket implementation of Sink: one
// *websocket.Conn per seated connection, a per-table membership map
// pruned on disconnect, and best-effort broadcast that drops slow
// recipients rather than blocking the table worker (spec.md §4.5,
// §5 "Backpressure").
type Bridge struct {
	log slog.Logger

	mu      sync.RWMutex
	members map[string]map[int]*wsConn // tableID -> seat -> conn
}

// NewBridge returns an empty Bridge.
func NewBridge(log slog.Logger) *Bridge {
	if log == nil {
		log = slog.Disabled
	}
	return &Bridge{log: log, members: make(map[string]map[int]*wsConn)}
}

// Join registers conn as tableID's seat and starts its read/write
// pumps. onAction is invoked once per decoded client message (malformed
// messages are logged and dropped, not fatal to the connection).
func (b *Bridge) Join(tableID string, seat int, conn *websocket.Conn, onAction func(ActionMessage)) {
	c := newWSConn(conn, b.log)

	b.mu.Lock()
	if b.members[tableID] == nil {
		b.members[tableID] = make(map[int]*wsConn)
	}
	b.members[tableID][seat] = c
	b.mu.Unlock()

	c.start(onAction)
	go b.pruneOnDisconnect(tableID, seat, c)
}

func (b *Bridge) pruneOnDisconnect(tableID string, seat int, c *wsConn) {
	<-c.ctx.Done()
	b.mu.Lock()
	if members, ok := b.members[tableID]; ok {
		if cur, ok := members[seat]; ok && cur == c {
			delete(members, seat)
		}
		if len(members) == 0 {
			delete(b.members, tableID)
		}
	}
	b.mu.Unlock()
}

// Broadcast implements Sink. It iterates a snapshot of tableID's
// membership, builds one personalized View per recipient (honoring
// hole-card hiding), and delivers it best-effort.
func (b *Bridge) Broadcast(tableID string, eng *engine.Engine) {
	b.mu.RLock()
	members := b.members[tableID]
	conns := make(map[int]*wsConn, len(members))
	for seat, c := range members {
		conns[seat] = c
	}
	b.mu.RUnlock()

	for seat, c := range conns {
		seat := seat
		view := eng.Snapshot(&seat)
		env := Envelope{ViewWire: NewViewWire(tableID, view), YourSeat: seat}
		c.send(env)
	}
}

// wsConn wraps one *websocket.Conn with an outbound buffer, a
// read pump that decodes ActionMessages, and a write pump that
// drains the buffer plus keepalive pings. Modeled on the
// Connection type the broader retrieval pack's websocket servers use.
type wsConn struct {
	conn   *websocket.Conn
	outbox chan Envelope
	log    slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, log slog.Logger) *wsConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsConn{
		conn:   conn,
		outbox: make(chan Envelope, outboxSize),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *wsConn) start(onAction func(ActionMessage)) {
	go c.writePump()
	go c.readPump(onAction)
}

// send delivers env without blocking the caller: if the outbox is
// full the connection is dropped outright (spec.md §5: "If a
// recipient's send would block beyond a short bound, the sink drops
// that recipient").
func (c *wsConn) send(env Envelope) {
	select {
	case c.outbox <- env:
	case <-c.ctx.Done():
	default:
		c.log.Warnf("registry: websocket recipient buffer full, dropping connection")
		c.Close()
	}
}

// Close tears the connection down exactly once; safe to call from any
// goroutine (readPump on read error, writePump on write error, send on
// backpressure, or the registry on table shutdown).
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

func (c *wsConn) readPump(onAction func(ActionMessage)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ActionMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("registry: websocket read error: %v", err)
			}
			return
		}
		if onAction != nil {
			onAction(msg)
		}
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case env, ok := <-c.outbox:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.log.Errorf("registry: websocket write error: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// EncodeEnvelope is a convenience for callers (e.g. an HTTP snapshot
// endpoint) that want the same wire bytes Broadcast sends over
// websocket, without a live connection.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
