package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fintrans/app"
	"fintrans/logging"
	"fintrans/session"
)

// turnTimeout is the generous per-turn budget. Turns that call the language
// model are materially slower than the rest; a timeout surfaces as a
// recoverable error, not a state transition.
const turnTimeout = 60 * time.Second

// Server exposes the transfer core over HTTP. Two surfaces:
//
//   - POST /api/v1/transfer/turn: stateless, the caller round-trips the
//     context exactly as the core defines it.
//   - POST /api/v1/chat: stateful, the server keeps the context per session
//     the way the original chat UI kept it in its session state.
type Server struct {
	svc      *app.TransferService
	contexts session.ContextStore
	log      *logging.Logger
	engine   *gin.Engine
}

func New(svc *app.TransferService, contexts session.ContextStore, log *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		svc:      svc,
		contexts: contexts,
		log:      log.With("component", "server"),
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/healthz", s.handleHealth)
	api := s.engine.Group("/api/v1")
	api.POST("/transfer/turn", s.handleTurn)
	api.POST("/chat", s.handleChat)

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleTurn is the stateless surface: the request carries the previous
// context (or null) and the response carries the next one (or none).
func (s *Server) handleTurn(c *gin.Context) {
	var req app.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), turnTimeout)
	defer cancel()

	c.JSON(http.StatusOK, s.svc.Advance(ctx, req))
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	app.Response
}

// handleChat keeps the context server-side, keyed by session. Terminal
// outcomes delete the stored context so a finished flow cannot be resumed.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), turnTimeout)
	defer cancel()

	tctx, err := s.contexts.Get(ctx, req.SessionID)
	if err != nil {
		s.log.Error("context load failed", "session_id", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}

	resp := s.svc.Advance(ctx, app.Request{RawText: req.Text, UserID: req.UserID, Context: tctx})

	if resp.Status.Terminal() || resp.Context == nil {
		if err := s.contexts.Delete(ctx, req.SessionID); err != nil {
			s.log.Error("context delete failed", "session_id", req.SessionID, "error", err)
		}
	} else if err := s.contexts.Put(ctx, req.SessionID, resp.Context); err != nil {
		s.log.Error("context save failed", "session_id", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}

	// The stored copy is authoritative; don't leak it to the chat client.
	resp.Context = nil
	c.JSON(http.StatusOK, chatResponse{SessionID: req.SessionID, Response: resp})
}
