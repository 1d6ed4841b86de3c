package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookio/models"
	"bookio/services/dialogue"
	"bookio/services/notification"
	"bookio/services/session"
	"bookio/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor returns the same extraction for every call.
type stubExtractor struct {
	ext models.Extraction
}

func (s *stubExtractor) Extract(ctx context.Context, userText string, known models.SlotSet) (models.Extraction, error) {
	return s.ext, nil
}

func newTestRouter(ext models.Extraction) *gin.Engine {
	gin.SetMode(gin.TestMode)

	engine := &dialogue.Engine{
		Store:     session.NewMemoryStore(300 * time.Second),
		Extractor: &stubExtractor{ext: ext},
		Sink:      &notification.LogNotificationService{},
		Required:  []models.Slot{models.SlotName, models.SlotDate, models.SlotTime},
	}

	router := gin.New()
	router.POST("/api/chat", NewChatHandler(engine, utils.GetLogger()).HandleChat)
	return router
}

func postChat(t *testing.T, router *gin.Engine, body any) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp ChatResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHandleChatRejectsMalformedRequests(t *testing.T) {
	router := newTestRouter(models.Extraction{})

	w, _ := postChat(t, router, map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = postChat(t, router, map[string]string{"conversation_id": "conv-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChatReturnsNextPrompt(t *testing.T) {
	router := newTestRouter(models.Extraction{})

	w, resp := postChat(t, router, ChatRequest{ConversationID: "conv-1", Text: "hello"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.False(t, resp.Completed)
	assert.NotEmpty(t, resp.Reply)
}

func TestHandleChatCompletesBooking(t *testing.T) {
	name, date, tm := "John", "2025-06-02", "16:00"
	router := newTestRouter(models.Extraction{Name: &name, Date: &date, Time: &tm})

	w, resp := postChat(t, router, ChatRequest{ConversationID: "conv-2", Text: "John, June 2nd at 4pm"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Completed)
	assert.Contains(t, resp.Reply, "John")
}

func TestHandleChatRoutesCommands(t *testing.T) {
	router := newTestRouter(models.Extraction{})

	_, resp := postChat(t, router, ChatRequest{ConversationID: "conv-3", Text: "/start"})
	assert.False(t, resp.Completed)
	assert.NotEmpty(t, resp.Reply)

	_, cancelResp := postChat(t, router, ChatRequest{ConversationID: "conv-3", Text: "/cancel"})
	assert.False(t, cancelResp.Completed)
	assert.NotEqual(t, resp.Reply, cancelResp.Reply)
}

func TestCommandParsing(t *testing.T) {
	assert.Equal(t, "/start", command("/start"))
	assert.Equal(t, "/start", command("  /START please"))
	assert.Equal(t, "/cancel", command("/cancel"))
	assert.Equal(t, "", command("book me for tomorrow"))
	assert.Equal(t, "", command(""))
}
