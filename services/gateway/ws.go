package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
)

// Control message types of the subscription subprotocol.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// wsMessage is one control frame in either direction.
type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	Subprotocols:    []string{"graphql-transport-ws"},
	// Origin policy is enforced by the CORS layer on the HTTP surface.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn owns one subscription transport: a single writer goroutine,
// a set of active subscription cancels, and the read loop.
type wsConn struct {
	svc  *Service
	conn *websocket.Conn
	out  chan wsMessage

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

// handleWS upgrades the connection and speaks the subscription
// protocol until the transport closes.
func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &wsConn{
		svc:  s,
		conn: conn,
		out:  make(chan wsMessage, 256),
		subs: make(map[string]context.CancelFunc),
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.writeLoop(ctx)
	c.readLoop(ctx)

	c.mu.Lock()
	for _, cancelSub := range c.subs {
		cancelSub()
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) send(msg wsMessage) {
	select {
	case c.out <- msg:
	default:
		// The transport writer is wedged; the read loop will notice the
		// dead connection and tear everything down.
	}
}

func (c *wsConn) readLoop(ctx context.Context) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		frame := gjson.ParseBytes(raw)
		switch frame.Get("type").String() {
		case msgConnectionInit:
			c.send(wsMessage{Type: msgConnectionAck})

		case msgSubscribe:
			id := frame.Get("id").String()
			if id == "" {
				continue
			}
			c.subscribe(ctx, id,
				frame.Get("payload.query").String(),
				frame.Get("payload.variables"))

		case msgComplete:
			c.cancelSub(frame.Get("id").String())
		}
	}
}

func (c *wsConn) cancelSub(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.subs[id]; ok {
		cancel()
		delete(c.subs, id)
	}
}

// sendError delivers an error frame for one subscription id; the
// transport itself stays open.
func (c *wsConn) sendError(id, message string) {
	payload, _ := json.Marshal([]map[string]string{{"message": message}})
	c.send(wsMessage{ID: id, Type: msgError, Payload: payload})
}

// next wraps an event in a next frame under the operation field.
func (c *wsConn) next(id, field string, event interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{field: event},
	})
	if err != nil {
		return
	}
	c.send(wsMessage{ID: id, Type: msgNext, Payload: payload})
}

// complete terminates one subscription id cleanly. A slow-consumer
// drop arrives here too: terminal complete, not an error.
func (c *wsConn) complete(id string) {
	c.send(wsMessage{ID: id, Type: msgComplete})
	c.cancelSub(id)
}

func (c *wsConn) subscribe(ctx context.Context, id, query string, variables gjson.Result) {
	op := Request{Query: query}.Operation()
	vars := Vars{raw: variables}

	subCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.subs[id] = cancel
	c.mu.Unlock()

	b := c.svc.broker
	switch op {
	case "engagementEvents":
		convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
		if err != nil {
			c.sendError(id, err.Error())
			return
		}
		run(c, subCtx, id, op, b.Engagements.Subscribe(), func(ev ops.EngagementEvent) bool {
			return ev.ConvoyID == convoyID
		})

	case "allEngagementEvents":
		run(c, subCtx, id, op, b.Engagements.Subscribe(), func(ops.EngagementEvent) bool { return true })

	case "rankingUpdates":
		convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
		if err != nil {
			c.sendError(id, err.Error())
			return
		}
		run(c, subCtx, id, op, b.Rankings.Subscribe(), func(ev ops.RankingUpdateEvent) bool {
			return ev.ConvoyID == convoyID
		})

	case "assetStatusChanges":
		convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
		if err != nil {
			c.sendError(id, err.Error())
			return
		}
		run(c, subCtx, id, op, b.DroneStatus.Subscribe(), func(ev ops.DroneStatusEvent) bool {
			return ev.ConvoyID == convoyID
		})

	case "alerts":
		convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
		if err != nil {
			c.sendError(id, err.Error())
			return
		}
		minSeverity := ops.AlertSeverity(vars.Get("minSeverity").String())
		run(c, subCtx, id, op, b.Alerts.Subscribe(), func(ev ops.AlertEvent) bool {
			return ev.ConvoyID == convoyID && ev.Severity.AtLeast(minSeverity)
		})

	case "assetTelemetry":
		droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
		if err != nil {
			c.sendError(id, err.Error())
			return
		}
		run(c, subCtx, id, op, b.Telemetry.Subscribe(), func(ev ops.TelemetrySnapshot) bool {
			return ev.DroneID == droneID
		})

	case "heartbeat":
		go c.heartbeat(subCtx, id)

	default:
		c.sendError(id, "unknown subscription "+op)
	}
}

// run bridges one broker subscription onto the transport, applying the
// subscriber-side filter. The stream ends when the caller cancels, the
// transport closes, or the topic drops the subscriber.
func run[T any](c *wsConn, ctx context.Context, id, field string, sub *broker.Subscription[T], match func(T) bool) {
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, open := <-sub.C():
				if !open {
					c.complete(id)
					return
				}
				if match(ev) {
					c.next(id, field, ev)
				}
			}
		}
	}()
}

// heartbeat emits a UTC timestamp every second.
func (c *wsConn) heartbeat(ctx context.Context, id string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.next(id, "heartbeat", time.Now().UTC().Format(time.RFC3339))
		}
	}
}
