package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/pkg/metrics"
)

// wsMessage is sent from client to drive its session.
type wsMessage struct {
	Action   string  `json:"action"` // click | swap | reset | fit | dismiss | window | measure
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	ToastID  string  `json:"toast_id"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scroll   float64 `json:"scroll"`
	Viewport float64 `json:"viewport"`
	Index    int     `json:"index"`
	Size     float64 `json:"size"`
}

// wsReply answers a client action.
type wsReply struct {
	Type   string      `json:"type"` // ack | error
	Action string      `json:"action,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// WebSocketHandler returns a handler that relays a session's events to the
// client and applies the actions the client sends.
// Clients connect with /ws?session=<id> and send JSON such as
// {"action":"click","lat":43.26,"lng":-2.93}.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID, _ := c.Locals("session").(string)
		logger := slog.Default().With("session_id", sessionID, "remote", c.RemoteAddr().String())
		logger.Info("ws client connected")

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Relay session events
		if deps.Subscriber != nil {
			unsubscribe, err := deps.Subscriber.SubscribeSession(ctx, sessionID, func(data []byte) {
				_ = writeJSON(json.RawMessage(data))
			})
			if err != nil {
				logger.Warn("ws subscribe failed", "error", err)
			} else {
				defer unsubscribe()
			}
		}

		// Initial state so the client does not wait for the next change
		if snap, err := deps.Sessions.Get(ctx, sessionID); err == nil {
			_ = writeJSON(domain.SessionEvent{Type: domain.EventState, SessionID: sessionID, State: snap, At: time.Now()})
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()
		defer close(done)

		limiter := rate.NewLimiter(rate.Limit(10), 20)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			if !limiter.Allow() {
				_ = writeJSON(wsReply{Type: "error", Error: "rate limit exceeded"})
				continue
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(wsReply{Type: "error", Error: "invalid JSON"})
				continue
			}

			data, err := applyAction(ctx, deps, sessionID, &m)
			if err != nil {
				_ = writeJSON(wsReply{Type: "error", Action: m.Action, Error: err.Error()})
				continue
			}
			_ = writeJSON(wsReply{Type: "ack", Action: m.Action, Data: data})
		}

		logger.Info("ws client disconnected")
	}
}

type unknownActionError string

func (e unknownActionError) Error() string { return "unknown action: " + string(e) }

func applyAction(ctx context.Context, deps *Dependencies, id string, m *wsMessage) (interface{}, error) {
	svc := deps.Sessions
	switch m.Action {
	case "click":
		return svc.Click(ctx, id, domain.GeoPoint{Lat: m.Lat, Lng: m.Lng})
	case "swap":
		return svc.Swap(ctx, id)
	case "reset":
		return svc.Reset(ctx, id)
	case "fit":
		var vp *domain.Viewport
		if m.Width > 0 && m.Height > 0 {
			vp = &domain.Viewport{Width: m.Width, Height: m.Height}
		}
		cam, fitted, err := svc.FitToBounds(ctx, id, vp)
		if err != nil {
			return nil, err
		}
		return FitResponse{Fitted: fitted, Camera: cam}, nil
	case "dismiss":
		n, err := svc.DismissToast(ctx, id, m.ToastID)
		if err != nil {
			return nil, err
		}
		return map[string]int{"dismissed": n}, nil
	case "window":
		return svc.RouteWindow(ctx, id, m.Scroll, m.Viewport)
	case "measure":
		ok, err := svc.MeasureRow(ctx, id, m.Index, m.Size)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"measured": ok}, nil
	default:
		return nil, unknownActionError(m.Action)
	}
}
