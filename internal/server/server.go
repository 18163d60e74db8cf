package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/kingrea/council/internal/council"
	"github.com/kingrea/council/internal/logbook"
	"github.com/kingrea/council/internal/runner"
	"github.com/kingrea/council/internal/store"
)

// Logger records request-path diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Server exposes the deliberation pipeline over HTTP: conversation
// CRUD-lite, turn submission, and a per-run websocket event stream. The
// transport may disconnect at any point without affecting backend
// completion; the runner owns every in-flight turn.
type Server struct {
	app     *fiber.App
	runner  *runner.Runner
	store   *store.Store
	logger  Logger
	logbook *logbook.Logbook
}

// Option customizes the server.
type Option func(*Server)

// WithLogger injects a diagnostics logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLogbook exposes the operational journal at GET /logs.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(s *Server) {
		s.logbook = lb
	}
}

// New wires the HTTP surface to the runner and the store.
func New(r *runner.Runner, st *store.Store, opts ...Option) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{AppName: "councild"}),
		runner: r,
		store:  st,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Post("/conversations", s.handleCreateConversation)
	s.app.Get("/conversations", s.handleListConversations)
	s.app.Get("/conversations/:id", s.handleGetConversation)
	s.app.Post("/conversations/:id/messages", s.handleSubmit)
	s.app.Post("/conversations/:id/ack", s.handleAcknowledge)
	s.app.Get("/logs", s.handleLogs)
	s.app.Get("/ws/runs/:id", s.websocketMiddleware, websocket.New(s.handleRunStream))
}

// App exposes the fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP traffic on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
	}
	conv, err := s.store.Create(req.Title)
	if err != nil {
		s.logger.Printf("server: create conversation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	list, err := s.store.List()
	if err != nil {
		s.logger.Printf("server: list conversations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list failed"})
	}
	return c.JSON(list)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conv, err := s.store.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
		}
		s.logger.Printf("server: get conversation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(fiber.Map{
		"conversation": conv,
		"state":        s.runner.State(conv.ID),
	})
}

type submitRequest struct {
	Content   string `json:"content"`
	Directive string `json:"directive,omitempty"`
}

// handleSubmit accepts a query for background processing. The response
// returns immediately with the run ID; progress flows through the
// websocket stream and the final turn lands in the store regardless of
// whether anyone watches.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.store.Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}
	run, err := s.runner.Submit(id, council.TurnInput{Query: req.Content, Directive: req.Directive})
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrConversationActive):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conversation already active"})
		case errors.Is(err, runner.ErrConversationErrored):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conversation requires acknowledgement"})
		default:
			s.logger.Printf("server: submit: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "submit failed"})
		}
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id":          run.ID,
		"conversation_id": id,
		"state":           runner.StateActive,
	})
}

func (s *Server) handleAcknowledge(c *fiber.Ctx) error {
	if err := s.runner.Acknowledge(c.Params("id")); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"state": runner.StateIdle})
}

// handleLogs tails the operational journal, the one place run history
// survives after every watcher has disconnected.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	if s.logbook == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no logbook configured"})
	}
	lines := s.logbook.Tail(c.QueryInt("lines", 100))
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(fiber.Map{
		"path":  s.logbook.Path(),
		"lines": lines,
	})
}

func (s *Server) websocketMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// handleRunStream pushes the run's typed events to a single live
// subscriber. A write failure means the client went away; we detach and
// return while the run keeps going.
func (s *Server) handleRunStream(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()
	run, err := s.runner.Lookup(c.Params("id"))
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "run not found"})
		return
	}
	ch, cancel := run.Publisher.Subscribe()
	defer cancel()
	for event := range ch {
		if err := c.WriteJSON(event); err != nil {
			return
		}
		if event.Terminal() {
			return
		}
	}
}
