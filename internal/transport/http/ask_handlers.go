package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/assistant"
)

// AskHandlers serves the question-answering endpoint.
type AskHandlers struct {
	answerer assistant.Answerer
	timeout  time.Duration
	log      *zerolog.Logger
}

// NewAskHandlers creates ask handlers. timeout bounds each answer request.
func NewAskHandlers(answerer assistant.Answerer, timeout time.Duration, logger *zerolog.Logger) *AskHandlers {
	if timeout <= 0 {
		timeout = assistant.DefaultTimeout
	}
	return &AskHandlers{
		answerer: answerer,
		timeout:  timeout,
		log:      logger,
	}
}

// AskRequest represents the ask request body.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse represents the ask response body.
type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask answers a question.
// POST /api/ask
func (h *AskHandlers) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid ask request")
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "no question provided"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	answer, err := h.answerer.Answer(ctx, req.Question)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to answer question")
		c.JSON(stdhttp.StatusBadGateway, ErrorResponse{Error: "failed to get answer"})
		return
	}

	c.JSON(stdhttp.StatusOK, AskResponse{Answer: answer})
}
