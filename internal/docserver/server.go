// Package docserver exposes a docstore over HTTP for remote sync.
package docserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/docstore"
)

const maxDocumentSize = 8 << 20

// DocumentStore is the subset of docstore.Store the server needs.
type DocumentStore interface {
	Get(ctx context.Context, collection, user string) (docstore.Document, error)
	Put(ctx context.Context, collection, user string, body []byte) (docstore.Document, error)
	Delete(ctx context.Context, collection, user string) error
}

// Server is the document HTTP server.
type Server struct {
	store       DocumentStore
	tokens      map[string]string
	collections map[string]bool
	logger      zerolog.Logger
	router      *gin.Engine
}

// New builds the router. tokens maps bearer tokens to user ids; an empty
// map disables authentication. Only the listed collections are served.
func New(store DocumentStore, tokens map[string]string, collections []string, logger zerolog.Logger) *Server {
	router := gin.New()

	s := &Server{
		store:       store,
		tokens:      tokens,
		collections: make(map[string]bool, len(collections)),
		logger:      logger,
		router:      router,
	}
	for _, c := range collections {
		s.collections[c] = true
	}

	router.Use(gin.Recovery(), s.logRequests())
	router.GET("/healthz", s.handleHealth)

	docs := router.Group("/v1/docs", s.authenticate())
	{
		docs.GET("/:collection/:user", s.handleGet)
		docs.PUT("/:collection/:user", s.handlePut)
		docs.DELETE("/:collection/:user", s.handleDelete)
	}

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if len(s.tokens) == 0 {
		s.logger.Warn().Msg("no tokens configured, authentication disabled")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info().Str("addr", addr).Msg("document server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// authenticate resolves the bearer token to a user and rejects requests
// for another user's documents.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(s.tokens) == 0 {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		user, known := s.tokens[strings.TrimSpace(token)]
		if !ok || !known {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if c.Param("user") != user {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) checkCollection(c *gin.Context) (string, string, bool) {
	collection := c.Param("collection")
	if !s.collections[collection] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return "", "", false
	}
	return collection, c.Param("user"), true
}

func etag(rev string) string {
	return `"` + rev + `"`
}

func (s *Server) handleGet(c *gin.Context) {
	collection, user, ok := s.checkCollection(c)
	if !ok {
		return
	}

	doc, err := s.store.Get(c.Request.Context(), collection, user)
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Msg("get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	tag := etag(doc.Revision)
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json", doc.Body)
}

func (s *Server) handlePut(c *gin.Context) {
	collection, user, ok := s.checkCollection(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
		return
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}

	doc, err := s.store.Put(c.Request.Context(), collection, user, body)
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Msg("put failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	s.logger.Info().Str("collection", collection).Str("user", user).Int("bytes", len(body)).Msg("document stored")

	c.Header("ETag", etag(doc.Revision))
	c.JSON(http.StatusOK, gin.H{"revision": doc.Revision})
}

func (s *Server) handleDelete(c *gin.Context) {
	collection, user, ok := s.checkCollection(c)
	if !ok {
		return
	}

	err := s.store.Delete(c.Request.Context(), collection, user)
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Msg("delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}
