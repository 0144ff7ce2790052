package http

import (
	stdhttp "net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/assistant"
	"github.com/mindora/relay-server/internal/auth"
	"github.com/mindora/relay-server/internal/config"
	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/metrics"
	"github.com/mindora/relay-server/internal/service/voice"
)

// Deps are the components the HTTP layer serves. Hub is required; a nil Voice
// or Asker leaves the corresponding routes unregistered.
type Deps struct {
	Hub     *core.Hub
	Voice   *voice.Service
	Asker   assistant.Answerer
	Metrics *metrics.Metrics
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the HTTP server for the relay.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every route and wraps them in the CORS policy.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(deps.Hub, cfg, jwtCfg, deps.Metrics, logger)))

	api := router.Group("/api")
	if jwtCfg.Enabled() {
		api.Use(AuthMiddleware(jwtCfg, logger))
	}

	if deps.Asker != nil {
		ask := NewAskHandlers(deps.Asker, cfg.Assistant.Timeout, logger)
		api.POST("/ask", ask.Ask)
	}

	rooms := NewRoomHandlers(deps.Hub, deps.Voice, logger)
	api.GET("/rooms/:id/online", rooms.Online)
	if deps.Voice != nil {
		api.GET("/rooms/:id/voice", rooms.VoiceStatus)
		api.GET("/rooms/:id/voice/history", rooms.VoiceHistory)
		api.POST("/rooms/:id/voice/start", rooms.StartVoice)
		api.POST("/rooms/:id/voice/end", rooms.EndVoice)
		api.GET("/rooms/:id/voice/token", rooms.VoiceToken)
	}

	return corsPolicy(cfg.AllowedOrigins).Handler(router)
}

func corsPolicy(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = origins
		opts.AllowCredentials = true
	}
	return cors.New(opts)
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
