package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/phoneme/workspace/internal/assistant"
	"github.com/phoneme/workspace/internal/auth"
	werrors "github.com/phoneme/workspace/internal/errors"
	"github.com/phoneme/workspace/internal/health"
	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/requestid"
)

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []assistant.Turn `json:"conversationHistory"`
}

// ChatResponse is the body of a successful chat.
type ChatResponse struct {
	Response string    `json:"response"`
	Usage    llm.Usage `json:"usage"`
}

// StatusResponse describes whether the assistant can be used.
type StatusResponse struct {
	Configured bool     `json:"configured"`
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	Tools      []string `json:"tools"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status string                   `json:"status"`
	Checks map[string]health.Status `json:"checks"`
	Uptime string                   `json:"uptime"`
}

type handlers struct {
	ai        Assistant
	checker   *health.Checker
	logger    zerolog.Logger
	startTime time.Time
}

func newHandlers(ai Assistant, checker *health.Checker, logger zerolog.Logger) *handlers {
	return &handlers{
		ai:        ai,
		checker:   checker,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// Chat handles POST /api/ai/chat.
func (h *handlers) Chat(c *fiber.Ctx) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return werrors.ErrUnauthorized
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	resp, err := h.ai.Chat(c.UserContext(), assistant.Request{
		Message: req.Message,
		History: req.ConversationHistory,
		Caller:  identity.Caller(),
	})
	if err != nil {
		return h.chatError(c, err)
	}

	return c.JSON(ChatResponse{Response: resp.Response, Usage: resp.Usage})
}

func (h *handlers) chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, werrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_message", "Bad Request",
			"Message is required")
	case errors.Is(err, werrors.ErrNotConfigured):
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"ai_not_configured", "Service Unavailable",
			"The AI assistant is not configured on this server")
	}

	logger := requestid.Logger(c.UserContext(), h.logger)
	logger.Error().Err(err).Msg("chat failed")
	return problemResponse(c, fiber.StatusInternalServerError,
		"chat_failed", "Failed to process AI request",
		err.Error())
}

// Status handles GET /api/ai/status.
func (h *handlers) Status(c *fiber.Ctx) error {
	resp := StatusResponse{
		Configured: h.ai.Configured(),
		Tools:      h.ai.ToolNames(),
	}
	if p := h.ai.Provider(); p != nil {
		resp.Provider = p.Name()
		resp.Model = p.ModelID()
	}
	return c.JSON(resp)
}

// Liveness handles GET /healthz.
func (h *handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *handlers) Readiness(c *fiber.Ctx) error {
	report := h.checker.Check(c.UserContext())
	resp := ReadinessResponse{
		Status: "ready",
		Checks: report.Checks,
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if !report.Ready {
		resp.Status = "not_ready"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
