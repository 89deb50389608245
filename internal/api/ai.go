package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mediguide/backend/internal/service"
)

// AIHandler relays consult and chat requests to the LLM service.
type AIHandler struct {
	llmService *service.LLMService
	log        *zap.Logger
}

func NewAIHandler(llmService *service.LLMService, log *zap.Logger) *AIHandler {
	return &AIHandler{
		llmService: llmService,
		log:        log,
	}
}

func (h *AIHandler) RegisterRoutes(router *gin.RouterGroup) {
	ai := router.Group("/ai")
	{
		ai.POST("/consult", h.Consult)
		ai.POST("/chat", h.ChatStream)
	}
}

type consultRequest struct {
	Symptom string `json:"symptom"`
}

// Consult performs a one-shot symptom triage.
func (h *AIHandler) Consult(c *gin.Context) {
	var req consultRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symptom == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No symptom provided"})
		return
	}

	result, err := h.llmService.Consult(c.Request.Context(), req.Symptom)
	if err != nil {
		h.log.Error("AI consult failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type chatRequest struct {
	Messages    []service.ChatMessage `json:"messages"`
	Model       string                `json:"model"`
	Temperature float64               `json:"temperature"`
}

// streamDelta mirrors the provider's chunk shape so existing
// event-stream consumers can parse relayed units unchanged.
type streamDelta struct {
	Choices []struct {
		Delta service.ChatDelta `json:"delta"`
	} `json:"choices"`
}

func encodeDelta(delta *service.ChatDelta) ([]byte, error) {
	var unit streamDelta
	unit.Choices = make([]struct {
		Delta service.ChatDelta `json:"delta"`
	}, 1)
	unit.Choices[0].Delta = *delta
	return json.Marshal(unit)
}

// ChatStream relays a multi-turn conversation as a server-sent event
// stream. Consumers must treat the [DONE] unit as the authoritative
// end of stream.
func (h *AIHandler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// The request context is threaded into the upstream call: a client
	// disconnect cancels the provider stream.
	events, err := h.llmService.StreamChat(c.Request.Context(), req.Messages, req.Model, req.Temperature)
	if err != nil {
		if errors.Is(err, service.ErrAPIKeyMissing) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "DeepSeek API Key not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	for event := range events {
		switch {
		case event.Delta != nil:
			data, err := encodeDelta(event.Delta)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		case event.Err != nil:
			h.log.Error("chat stream error", zap.Error(event.Err))
			data, _ := json.Marshal(gin.H{"error": event.Err.Error()})
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		case event.Done:
			fmt.Fprint(c.Writer, "data: [DONE]\n\n")
		}
		flusher.Flush()
	}
}
