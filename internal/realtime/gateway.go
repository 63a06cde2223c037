// Package realtime exposes the fanout registry over websockets.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketguard/internal/fanout"
	"marketguard/internal/logger"
	apperrors "marketguard/pkg/errors"
	"marketguard/pkg/logging"
	"marketguard/pkg/metrics"
)

// IdentityValidator reports whether a user or pro exists.
type IdentityValidator interface {
	Exists(ctx context.Context, identity fanout.Identity) (bool, error)
}

// Registry is the part of the fanout hub the gateway drives.
type Registry interface {
	Register(identity fanout.Identity, handle fanout.Handle)
	Unregister(handle fanout.Handle)
}

type Options struct {
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	PingInterval   time.Duration
	ReadLimit      int64
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 90 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.IdleTimeout {
		o.PingInterval = o.IdleTimeout * 2 / 3
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	return o
}

// connectedFrame is the first message on every accepted connection.
type connectedFrame struct {
	Type         string    `json:"type"`
	IdentityKind string    `json:"identity_kind"`
	IdentityID   string    `json:"identity_id"`
	Timestamp    time.Time `json:"timestamp"`
}

type Gateway struct {
	registry  Registry
	validator IdentityValidator
	upgrader  websocket.Upgrader
	opts      Options
	logger    logger.Logger

	mu    sync.Mutex
	conns map[string]*conn
}

func NewGateway(registry Registry, validator IdentityValidator, opts Options, log logger.Logger) *Gateway {
	opts = opts.withDefaults()
	if log == nil {
		log = logger.NopLogger()
	}
	g := &Gateway{
		registry:  registry,
		validator: validator,
		opts:      opts,
		logger:    log,
		conns:     make(map[string]*conn),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/:kind/:id", g.Handle)
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Handle upgrades the request and serves the session until the peer goes
// away. Identity problems are reported with a close frame, not an HTTP
// status, so browsers can read the reason.
// @Summary Open a real-time session
// @Description Upgrades to a websocket delivering events for one user or pro
// @Tags realtime
// @Param kind path string true "Identity kind" Enums(user, pro)
// @Param id path string true "Identity ID (UUID)"
// @Success 101 "Switching Protocols"
// @Router /ws/{kind}/{id} [get]
func (g *Gateway) Handle(c *gin.Context) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		metrics.IncWebsocketConnection("upgrade_failed")
		g.logger.WarnwCtx(c.Request.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	g.serve(context.WithoutCancel(c.Request.Context()), newConn(ws, g.opts.WriteTimeout), c.Param("kind"), c.Param("id"))
}

// Shutdown closes every open session with 1001 (going away).
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	conns := make([]*conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

func (g *Gateway) track(c *conn) func() {
	g.mu.Lock()
	g.conns[c.ID()] = c
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.conns, c.ID())
		g.mu.Unlock()
	}
}

func (g *Gateway) serve(ctx context.Context, c *conn, kind, id string) {
	ctx = logging.WithConnectionID(ctx, c.ID())
	defer g.track(c)()
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanic(r)
			metrics.IncWebsocketConnection("panic")
			g.logger.ErrorwCtx(ctx, "Recovered panic in websocket session", "error", err)
			c.close(apperrors.CloseInternalError, "internal error")
		}
	}()

	identity, err := g.authorize(ctx, kind, id)
	if err != nil {
		g.reject(ctx, c, err)
		return
	}
	ctx = logging.WithIdentity(ctx, identity.Key())

	g.registry.Register(identity, c)
	defer g.registry.Unregister(c)
	metrics.IncWebsocketConnection("accepted")
	started := time.Now()
	defer func() { metrics.ObserveWebsocketSession(time.Since(started)) }()
	g.logger.InfowCtx(ctx, "Websocket session opened")

	err = c.writeJSON(connectedFrame{
		Type:         fanout.EventConnected,
		IdentityKind: string(identity.Kind),
		IdentityID:   identity.ID,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		g.logger.WarnwCtx(ctx, "Failed to send connected frame", "error", err)
		c.close(websocket.CloseInternalServerErr, "internal error")
		return
	}

	done := make(chan struct{})
	defer close(done)
	go g.keepAlive(ctx, c, done)

	code, reason := g.readLoop(ctx, c)
	c.close(code, reason)
	g.logger.InfowCtx(ctx, "Websocket session closed", "close_code", code)
}

// authorize parses the path identity and consults the validator.
func (g *Gateway) authorize(ctx context.Context, kind, id string) (fanout.Identity, error) {
	k, err := fanout.ParseKind(kind)
	if err != nil {
		return fanout.Identity{}, apperrors.ErrMalformedIdentity.WithCause(err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fanout.Identity{}, apperrors.ErrMalformedIdentity.WithCause(err)
	}
	identity := fanout.Identity{Kind: k, ID: parsed.String()}

	exists, err := g.validator.Exists(ctx, identity)
	if err != nil {
		return identity, apperrors.ErrInternal.WithCause(fmt.Errorf("validate identity %s: %w", identity.Key(), err))
	}
	if !exists {
		return identity, apperrors.ErrNotFound.WithDetail("identity", identity.Key())
	}
	return identity, nil
}

func (g *Gateway) reject(ctx context.Context, c *conn, err error) {
	code := apperrors.ToCloseCode(err)
	var reason, outcome string
	switch code {
	case apperrors.CloseMalformedIdentity:
		reason, outcome = "malformed identity", "malformed"
		g.logger.InfowCtx(ctx, "Rejected websocket with malformed identity", "error", err)
	case apperrors.CloseIdentityNotFound:
		reason, outcome = "identity not found", "not_found"
		g.logger.InfowCtx(ctx, "Rejected websocket for unknown identity", "error", err)
	default:
		reason, outcome = "internal error", "error"
		g.logger.ErrorwCtx(ctx, "Identity validation failed", "error", err)
	}
	metrics.IncWebsocketConnection(outcome)
	c.close(code, reason)
}

// readLoop blocks on the socket until the peer closes it or violates the
// protocol, and returns the close frame to answer with.
func (g *Gateway) readLoop(ctx context.Context, c *conn) (int, string) {
	c.ws.SetReadLimit(g.opts.ReadLimit)
	extend := func() error {
		return c.ws.SetReadDeadline(time.Now().Add(g.opts.IdleTimeout))
	}
	_ = extend()
	c.ws.SetPongHandler(func(string) error { return extend() })

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				g.logger.DebugwCtx(ctx, "Websocket read failed", "error", err)
			}
			if err == websocket.ErrReadLimit {
				return websocket.CloseMessageTooBig, "message too big"
			}
			return websocket.CloseNormalClosure, ""
		}
		_ = extend()

		switch messageType {
		case websocket.BinaryMessage:
			g.logger.InfowCtx(ctx, "Closing websocket after binary frame")
			return websocket.CloseUnsupportedData, "binary frames are not supported"
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) == "ping" {
				if err := c.writeText("pong"); err != nil {
					return websocket.CloseNormalClosure, ""
				}
			}
		}
	}
}

func (g *Gateway) keepAlive(ctx context.Context, c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(g.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				g.logger.DebugwCtx(ctx, "Websocket ping failed", "error", err)
				c.close(websocket.CloseGoingAway, "")
				return
			}
		}
	}
}
