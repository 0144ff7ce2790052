package http

import (
	"errors"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/proto"
	"github.com/mindora/relay-server/internal/service/voice"
	"github.com/mindora/relay-server/internal/store"
)

// RoomHandlers provides HTTP handlers for room presence and voice endpoints.
type RoomHandlers struct {
	hub   *core.Hub
	voice *voice.Service
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, voiceSvc *voice.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub:   hub,
		voice: voiceSvc,
		log:   logger,
	}
}

// StartVoiceRequest represents the start voice request body.
type StartVoiceRequest struct {
	UserID string `json:"userId"`
}

// VoiceSessionResponse represents a voice session in API responses.
type VoiceSessionResponse struct {
	SessionID string  `json:"sessionId"`
	RoomID    string  `json:"roomId"`
	Host      string  `json:"host"`
	Status    string  `json:"status"`
	StartedAt string  `json:"startedAt"`
	EndedAt   *string `json:"endedAt,omitempty"`
}

// Online lists the connections present in a room.
// GET /api/rooms/:id/online
func (h *RoomHandlers) Online(c *gin.Context) {
	members, err := h.hub.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read room members")
		c.JSON(stdhttp.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable"})
		return
	}
	c.JSON(stdhttp.StatusOK, onlineUsers(members))
}

// StartVoice opens the room's voice channel.
// POST /api/rooms/:id/voice/start
func (h *RoomHandlers) StartVoice(c *gin.Context) {
	var req StartVoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}
	host := req.UserID
	if host == "" {
		host = c.GetString(ContextKeySubject)
	}

	session, err := h.voice.Start(c.Request.Context(), c.Param("id"), host)
	if err != nil {
		h.writeVoiceError(c, err)
		return
	}
	c.JSON(stdhttp.StatusCreated, toVoiceSessionResponse(session))
}

// EndVoice closes the room's voice channel.
// POST /api/rooms/:id/voice/end
func (h *RoomHandlers) EndVoice(c *gin.Context) {
	session, err := h.voice.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeVoiceError(c, err)
		return
	}
	c.JSON(stdhttp.StatusOK, toVoiceSessionResponse(session))
}

// VoiceStatus reports the room's voice channel.
// GET /api/rooms/:id/voice
func (h *RoomHandlers) VoiceStatus(c *gin.Context) {
	status, err := h.voice.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeVoiceError(c, err)
		return
	}
	c.JSON(stdhttp.StatusOK, proto.VoiceStatus{
		Active:    status.Active,
		Host:      status.Host,
		SessionID: status.SessionID,
	})
}

// VoiceToken issues media credentials for the room's voice channel.
// GET /api/rooms/:id/voice/token?identity=&name=
func (h *RoomHandlers) VoiceToken(c *gin.Context) {
	if !h.voice.Enabled() {
		h.writeVoiceError(c, voice.ErrVoiceDisabled)
		return
	}

	identity := c.Query("identity")
	if identity == "" {
		identity = c.GetString(ContextKeySubject)
	}
	name := c.Query("name")
	if name == "" {
		name = c.GetString(ContextKeyName)
	}

	info, err := h.voice.JoinToken(c.Request.Context(), c.Param("id"), identity, name)
	if err != nil {
		h.writeVoiceError(c, err)
		return
	}
	c.JSON(stdhttp.StatusOK, info)
}

// VoiceHistory lists the room's voice sessions, newest first.
// GET /api/rooms/:id/voice/history?limit=
func (h *RoomHandlers) VoiceHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	sessions, err := h.voice.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeVoiceError(c, err)
		return
	}
	resp := make([]VoiceSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toVoiceSessionResponse(s))
	}
	c.JSON(stdhttp.StatusOK, resp)
}

func (h *RoomHandlers) writeVoiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, voice.ErrInvalidInput):
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, voice.ErrNoActiveVoice):
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, voice.ErrVoiceActive):
		c.JSON(stdhttp.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, voice.ErrVoiceDisabled):
		c.JSON(stdhttp.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("room", c.Param("id")).Msg("voice request failed")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func toVoiceSessionResponse(s *store.VoiceSession) VoiceSessionResponse {
	resp := VoiceSessionResponse{
		SessionID: s.ID,
		RoomID:    s.RoomID,
		Host:      s.HostID,
		Status:    string(s.Status),
		StartedAt: s.CreatedAt.Format(time.RFC3339),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &ended
	}
	return resp
}
