// Package server exposes the ingestion and chat pipeline over HTTP for
// the browser extension and other REST callers.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retracehq/retrace/internal/types"
	"github.com/retracehq/retrace/pkg/answer"
	"github.com/retracehq/retrace/pkg/indexer"
	"github.com/retracehq/retrace/pkg/retriever"
)

// Deps carries the wired pipeline components the handlers operate on.
type Deps struct {
	Store       types.ChunkStore
	Indexer     *indexer.Indexer
	Retriever   *retriever.Retriever
	Synthesizer *answer.Synthesizer
	Version     string
}

type Server struct {
	deps   Deps
	engine *gin.Engine
}

func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		deps:   deps,
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestID())
	s.engine.Use(requestLogger())
	s.engine.Use(cors())

	s.engine.GET("/", s.handleHealth)
	s.engine.POST("/memorize", s.handleMemorize)
	s.engine.POST("/chat", s.handleChat)
	s.engine.GET("/documents", s.handleListDocuments)
	s.engine.GET("/documents/:id", s.handleGetDocument)
	s.engine.GET("/ws", s.handleWebSocket)

	return s
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
