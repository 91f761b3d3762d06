package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"marketrag/internal/domain"
	"marketrag/internal/engine"
	"marketrag/internal/enrich"
)

// Server exposes the query engine over HTTP. It owns no engine state: the
// engine is injected, and concurrent requests share only its read-only
// index.
type Server struct {
	engine    *engine.Engine
	enrichers []enrich.Enricher
	log       *log.Logger
	router    *gin.Engine
}

// Config controls the HTTP surface.
type Config struct {
	AllowedOrigins []string
}

// New assembles the router.
func New(eng *engine.Engine, enrichers []enrich.Enricher, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	s := &Server{engine: eng, enrichers: enrichers, log: logger, router: router}

	router.GET("/", s.handleRoot)
	api := router.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/health", s.handleHealth)
	return s
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("http server listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type analyzeRequest struct {
	Text    string `json:"text"`
	Filters *struct {
		Documents []string `json:"documents"`
	} `json:"filters"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error(), "type": "bad_request"})
		return
	}
	filters := domain.Filters{}
	if req.Filters != nil {
		filters.Documents = req.Filters.Documents
	}

	result, err := s.engine.Answer(c.Request.Context(), req.Text, filters)
	if err != nil {
		s.writeError(c, err)
		return
	}
	for _, enrichErr := range enrich.Apply(c.Request.Context(), result, s.enrichers) {
		s.log.Warn("enricher failed", "error", enrichErr)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c *gin.Context) {
	ix := s.engine.Index()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"documents": ix.Documents(),
		"chunks":    ix.Chunks(),
		"model":     ix.Model(),
	})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the market research RAG API"})
}

// writeError maps core errors to transport statuses. Either a full
// AnswerResult or an explicit {error, type} body; never a partial success.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "type": "empty_query"})
	default:
		if be, ok := domain.AsBackendError(err); ok {
			s.log.Error("backend failure", "op", be.Op, "error", be.Err)
			c.JSON(http.StatusBadGateway, gin.H{"error": be.Error(), "type": be.Op + "_backend_error"})
			return
		}
		s.log.Error("query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "type": "internal_error"})
	}
}
