package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/maproute/internal/adapters/valkey"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions   *usecases.SessionService
	Subscriber ports.EventSubscriber // nil disables the WebSocket event relay
	NATS       *nats.Conn
	Cache      *valkey.Cache

	RequestTimeout time.Duration // per-request timeout for REST handlers, default 15s
	RateLimit      int           // requests per minute per IP, default 120
	Version        string
	OpenAPIPath    string // default api/openapi.yaml
}
