package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/auth"
)

const (
	// ContextKeySubject is the context key for the authenticated subject.
	ContextKeySubject = "subject"
	// ContextKeyName is the context key for the authenticated display name.
	ContextKeyName = "name"
)

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(jwtCfg *auth.JWTConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ValidateToken(jwtCfg, requestToken(c.Request))
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected request token")
			c.AbortWithStatusJSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyName, claims.DisplayName())
		c.Next()
	}
}

// requestToken extracts a token from "Authorization: Bearer <token>" or, for
// browsers that cannot set headers on websocket upgrades, the token query parameter.
func requestToken(r *stdhttp.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// websocket sessions log their own lifecycle
		if c.Request.URL.Path == "/ws" {
			return
		}
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
