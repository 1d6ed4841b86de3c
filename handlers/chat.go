package handlers

import (
	"net/http"
	"strings"
	"time"

	"bookio/services/dialogue"
	"bookio/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatRequest is one inbound message from the transport.
type ChatRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Text           string `json:"text" binding:"required"`
}

// ChatResponse is the bot's reply for one turn.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Completed      bool   `json:"completed"`
}

// ChatHandler adapts HTTP chat traffic onto the dialogue engine. It is a
// pass-through: command words become control signals, everything else is
// forwarded as a raw utterance.
type ChatHandler struct {
	Engine *dialogue.Engine
	Logger *zap.Logger
}

// NewChatHandler returns a ChatHandler backed by the given engine.
func NewChatHandler(engine *dialogue.Engine, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{Engine: engine, Logger: logger}
}

// HandleChat processes POST /api/chat.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid chat request", err.Error())
		return
	}

	var (
		reply dialogue.Reply
		err   error
	)
	switch command(req.Text) {
	case "/start", "/reset":
		reply, err = h.Engine.Reset(c.Request.Context(), req.ConversationID, time.Now())
	case "/cancel":
		reply, err = h.Engine.Cancel(c.Request.Context(), req.ConversationID)
	default:
		reply, err = h.Engine.HandleMessage(c.Request.Context(), req.ConversationID, req.Text, time.Now())
	}
	if err != nil {
		// The engine already degraded the reply; the user still gets a prompt.
		h.Logger.Error("turn processing error",
			zap.String("conversationId", req.ConversationID), zap.Error(err))
	}

	c.JSON(http.StatusOK, ChatResponse{
		ConversationID: req.ConversationID,
		Reply:          reply.Text,
		Completed:      reply.Completed,
	})
}

// HandleReset processes POST /api/chat/reset for transports that deliver
// control signals out of band.
func (h *ChatHandler) HandleReset(c *gin.Context) {
	h.handleControl(c, "/reset")
}

// HandleCancel processes POST /api/chat/cancel.
func (h *ChatHandler) HandleCancel(c *gin.Context) {
	h.handleControl(c, "/cancel")
}

type controlRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

func (h *ChatHandler) handleControl(c *gin.Context, cmd string) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid control request", err.Error())
		return
	}

	var (
		reply dialogue.Reply
		err   error
	)
	if cmd == "/cancel" {
		reply, err = h.Engine.Cancel(c.Request.Context(), req.ConversationID)
	} else {
		reply, err = h.Engine.Reset(c.Request.Context(), req.ConversationID, time.Now())
	}
	if err != nil {
		h.Logger.Error("control processing error",
			zap.String("conversationId", req.ConversationID), zap.Error(err))
	}

	c.JSON(http.StatusOK, ChatResponse{
		ConversationID: req.ConversationID,
		Reply:          reply.Text,
		Completed:      reply.Completed,
	})
}

// command returns the leading slash-command of an utterance, or "".
func command(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	return strings.ToLower(fields[0])
}
