// Package httpapi serves the analysis pipeline over REST.
package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_stance/internal/engine"
	"github.com/anatolykoptev/go_stance/internal/toolutil"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer runs a full video analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in engine.AnalyzeInput) (engine.AnalyzeOutput, error)
}

// History lists previously analyzed comments.
type History interface {
	ListByVideo(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error)
}

// Config configures the REST server.
type Config struct {
	Addr           string
	CORSOrigins    []string // empty = "*"
	RateLimit      int      // requests per minute per IP; 0 = unlimited
	RequestLogging bool
	Version        string
}

// Server wraps the Fiber app.
type Server struct {
	App *fiber.App
	Cfg Config
}

// New creates the server with middleware and routes. history may be nil.
func New(cfg Config, analyzer Analyzer, history History) *Server {
	app := fiber.New(fiber.Config{
		AppName: "go_stance",
		// Analyses call two rate-limited upstreams; allow the batch to finish.
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := toolutil.GenericFailure
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(recover.New())
	if cfg.RequestLogging {
		app.Use(logger.New())
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))

	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == "/metrics"
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Rate limit exceeded. Please try again later.",
				})
			},
		}))
	}

	h := &handlers{analyzer: analyzer, history: history}
	app.Get("/health", h.health(cfg.Version))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(engine.Registry, promhttp.HandlerOpts{})))
	api := app.Group("/api")
	api.Post("/analyze", h.analyze)
	if history != nil {
		api.Get("/videos/:video/comments", h.videoComments)
	}

	return &Server{App: app, Cfg: cfg}
}

// Start listens on the configured address.
func (s *Server) Start() error {
	return s.App.Listen(s.Cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}

type handlers struct {
	analyzer Analyzer
	history  History
}

func (h *handlers) health(version string) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version})
	}
}

type analyzeRequest struct {
	VideoURL   string `json:"videoUrl"`
	VideoTitle string `json:"videoTitle"`
}

func (h *handlers) analyze(c fiber.Ctx) error {
	var body analyzeRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
	}

	out, err := h.analyzer.Analyze(c.Context(), engine.AnalyzeInput{
		VideoURL:   body.VideoURL,
		VideoTitle: body.VideoTitle,
	})
	if err != nil {
		code, msg := toolutil.PublicError(err)
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	return c.JSON(out)
}

func (h *handlers) videoComments(c fiber.Ctx) error {
	videoID, err := toolutil.ResolveVideoID(c.Params("video"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))

	recs, err := h.history.ListByVideo(c.Context(), videoID, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load video comments")
	}
	comments := toolutil.RecordsToComments(recs)
	return c.JSON(fiber.Map{
		"videoId":  videoID,
		"total":    len(comments),
		"comments": comments,
	})
}
