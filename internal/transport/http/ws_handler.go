package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/url"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/auth"
	"github.com/mindora/relay-server/internal/config"
	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/metrics"
	"github.com/mindora/relay-server/internal/proto"
	"github.com/mindora/relay-server/internal/ratelimit"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub     *core.Hub
	jwt     *auth.JWTConfig
	metrics *metrics.Metrics
	log     *zerolog.Logger

	accept          websocket.AcceptOptions
	maxMessageBytes int64
	eventsPerMinute int
	pointerLimit    int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, jwtCfg *auth.JWTConfig, m *metrics.Metrics, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:             hub,
		jwt:             jwtCfg,
		metrics:         m,
		log:             logger,
		accept:          acceptOptions(cfg.AllowedOrigins),
		maxMessageBytes: cfg.MaxMessageBytes,
		eventsPerMinute: cfg.MaxEventsPerMinute,
		pointerLimit:    cfg.MaxPointerEventsPerMinute,
	}
}

// acceptOptions turns configured origins into websocket origin patterns, which
// match on host only.
func acceptOptions(origins []string) websocket.AcceptOptions {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return websocket.AcceptOptions{OriginPatterns: patterns}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	logger := h.log.With().Logger()
	if h.jwt.Enabled() {
		claims, err := auth.ValidateToken(h.jwt, requestToken(r))
		if err != nil {
			h.log.Debug().Err(err).Msg("ws upgrade rejected")
			stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
			return
		}
		logger = logger.With().Str("subject", claims.Subject).Logger()
	}

	accept := h.accept
	conn, err := websocket.Accept(w, r, &accept)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := core.NewClient(uuid.NewString())
	logger = logger.With().Str("client_id", client.ID).Logger()
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)
	logger.Info().Msg("ws client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	logger.Info().Msg("ws client disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	// Windows are keyed by event type so a pointer stream never starves chat.
	chat := ratelimit.NewWindow(h.eventsPerMinute, time.Minute)
	pointer := ratelimit.NewWindow(h.pointerLimit, time.Minute)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var env proto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn().Err(err).Msg("malformed ws frame dropped")
			continue
		}

		payload, err := proto.Decode(env)
		if err != nil {
			logger.Warn().Err(err).Str("event", env.Event).Msg("invalid ws event dropped")
			continue
		}

		limiter := chat
		if env.Event == proto.EventDrawAction || env.Event == proto.EventCursorMove {
			limiter = pointer
		}
		if !limiter.Take(env.Event) {
			h.metrics.EventDropped()
			logger.Debug().Str("event", env.Event).Msg("ws event rate limited")
			continue
		}

		cmd := commandFromPayload(payload)
		if cmd == nil {
			continue
		}
		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
