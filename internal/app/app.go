package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/assistant"
	"github.com/mindora/relay-server/internal/callengine"
	"github.com/mindora/relay-server/internal/callengine/livekit"
	"github.com/mindora/relay-server/internal/config"
	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/metrics"
	"github.com/mindora/relay-server/internal/ratelimit"
	"github.com/mindora/relay-server/internal/service/voice"
	"github.com/mindora/relay-server/internal/store"
	"github.com/mindora/relay-server/internal/store/sqlite"
	transporthttp "github.com/mindora/relay-server/internal/transport/http"
)

const mentionKeyPrefix = "mindora:mentions:"

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	relay           *assistant.Relay
	store           store.Store
	redis           *redis.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}
	a.redis = connectRedis(ctx, cfg.Redis, logger)

	m := metrics.New()
	hubOpts := []core.Option{core.WithLogger(logger), core.WithMetrics(m)}

	var gemini *assistant.GeminiAnswerer
	if cfg.Assistant.GeminiAPIKey != "" {
		gemini, err = assistant.NewGeminiAnswerer(ctx, cfg.Assistant.GeminiAPIKey, cfg.Assistant.GeminiModel, cfg.Assistant.GeminiBaseURL)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init gemini: %w", err)
		}
	}

	if answerer, source := selectAnswerer(cfg.Assistant, gemini); answerer != nil {
		a.relay = assistant.NewRelay(answerer, assistant.Options{
			Label:       cfg.Assistant.Label,
			Timeout:     cfg.Assistant.Timeout,
			MaxInFlight: cfg.Assistant.MaxInFlight,
			Limiter:     a.mentionLimiter(cfg.Assistant.MentionsPerMinute),
			Metrics:     m,
			Logger:      logger,
		})
		hubOpts = append(hubOpts, core.WithMentions(a.relay))
		logger.Info().Str("answerer", source).Msg("assistant mentions enabled")
	} else {
		logger.Info().Msg("assistant mentions disabled: no answer service configured")
	}

	a.hub = core.NewHub(hubOpts...)

	var engine callengine.Engine
	if cfg.LiveKit.Enabled() {
		engine = livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.URL)
		logger.Info().Str("url", cfg.LiveKit.URL).Msg("livekit voice enabled")
	}

	deps := transporthttp.Deps{
		Hub:     a.hub,
		Voice:   voice.New(st, engine, a.hub, logger),
		Metrics: m,
	}
	// /api/ask talks to Gemini directly; an external answer URL may itself point here.
	if gemini != nil {
		deps.Asker = gemini
	}

	a.server = transporthttp.NewServer(deps, cfg, logger)
	return a, nil
}

// selectAnswerer prefers an external answer URL over Gemini.
func selectAnswerer(cfg config.AssistantConfig, gemini *assistant.GeminiAnswerer) (assistant.Answerer, string) {
	switch {
	case cfg.URL != "":
		return assistant.NewHTTPAnswerer(cfg.URL), "http"
	case gemini != nil:
		return gemini, "gemini"
	default:
		return nil, ""
	}
}

// connectRedis returns nil when Redis is not configured or not reachable.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *zerolog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, using in-process rate limits")
		_ = rdb.Close()
		return nil
	}
	logger.Info().Str("addr", cfg.Addr).Msg("redis connected")
	return rdb
}

func (a *App) mentionLimiter(perMinute int) ratelimit.Limiter {
	if perMinute <= 0 {
		return ratelimit.Unlimited{}
	}
	if a.redis != nil {
		return ratelimit.NewRedis(a.redis, mentionKeyPrefix, perMinute, time.Minute)
	}
	return ratelimit.NewWindow(perMinute, time.Minute)
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("relay listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.stop(stopHub)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)
		a.stop(stopHub)
		if err != nil {
			return err
		}
		return <-serverErr
	}
}

// stop halts the hub and waits for it to exit before cleanup, so no mention can
// be scheduled while the relay is drained.
func (a *App) stop(stopHub context.CancelFunc) {
	stopHub()
	<-a.hub.Done()
	a.cleanup()
}

// cleanup waits for pending assistant requests, then closes the database and Redis.
func (a *App) cleanup() {
	if a.relay != nil {
		a.relay.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis")
		}
	}
}
