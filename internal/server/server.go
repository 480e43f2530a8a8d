// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/phoneme/workspace/internal/assistant"
	"github.com/phoneme/workspace/internal/health"
	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/metrics"
	"github.com/phoneme/workspace/internal/requestid"
)

// Assistant is the conversation engine behind /api/ai.
type Assistant interface {
	Chat(ctx context.Context, req assistant.Request) (*assistant.Response, error)
	Configured() bool
	Provider() llm.Provider
	ToolNames() []string
}

// Config holds configuration for the HTTP server.
type Config struct {
	ListenAddr  string
	CORSOrigins string
	RateLimit   RateLimitConfig
	BodyLimit   int // bytes, 0 = 1 MiB
}

// Server is the Fiber application serving the assistant API.
type Server struct {
	app     *fiber.App
	limiter *rateLimiter
	logger  zerolog.Logger
	config  Config
}

// NewServer creates and configures the HTTP server. m may be nil.
func NewServer(
	cfg Config,
	ai Assistant,
	authMiddleware fiber.Handler,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             bodyLimit,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:    app,
		logger: logger.With().Str("component", "server").Logger(),
		config: cfg,
	}

	s.setupMiddleware(cfg, m)
	s.setupRoutes(newHandlers(ai, checker, logger), authMiddleware, m)

	return s
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

func (s *Server) setupMiddleware(cfg Config, m *metrics.Metrics) {
	// Recovery middleware
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		reqID := requestid.Resolve(c.Get(requestid.Header))
		c.Set(requestid.Header, reqID)
		c.Locals("request_id", reqID)
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), reqID))
		return c.Next()
	})

	// CORS middleware. Session cookies need credentials, which Fiber only
	// allows with an explicit origin list.
	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods:     "GET, POST, OPTIONS",
			AllowCredentials: cfg.CORSOrigins != "*",
		}))
	}

	// Rate limiter
	if cfg.RateLimit.RPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit)
		s.app.Use(s.limiter.middleware())
	}

	// Audit middleware: resolves errors here so the logged status is final.
	s.app.Use(func(c *fiber.Ctx) error {
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		path := c.Path()
		status := c.Response().StatusCode()
		if m != nil {
			m.RecordHTTP(c.Method(), routeLabel(c), strconv.Itoa(status))
		}
		if isProbe(path) {
			return nil
		}

		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Str("ip", c.IP()).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Msg("api request")
		return nil
	})
}

// routeLabel keeps metric cardinality bounded for unmatched paths.
func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "/" && r.Path != "" {
		return r.Path
	}
	return "unmatched"
}

func (s *Server) setupRoutes(h *handlers, authMiddleware fiber.Handler, m *metrics.Metrics) {
	// Probe endpoints (no auth)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	// Prometheus metrics
	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	ai := s.app.Group("/api/ai", authMiddleware)
	ai.Post("/chat", h.Chat)
	ai.Get("/status", h.Status)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":3001"
	}

	s.logger.Info().Str("addr", addr).Msg("API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("API server shutting down")
	if s.limiter != nil {
		s.limiter.close()
	}
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}
