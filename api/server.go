package api

import (
	"swarmnode/core"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server wires the swarm core, the settings database, and the gin router
// together. ShutdownChan lets any handler request process shutdown the same
// way a signal does.
type Server struct {
	Node   *core.Node
	Router *gin.Engine
	DB     *gorm.DB
	Hub    *WSHub

	ShutdownChan chan bool
}

func NewServer(node *core.Node, database *gorm.DB) *Server {
	r := gin.Default()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	hub := NewWSHub(node.Jobs)
	go hub.Run()

	s := &Server{
		Node:         node,
		Router:       r,
		DB:           database,
		Hub:          hub,
		ShutdownChan: make(chan bool),
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "swarmnode"})
	})

	grp := s.Router.Group("/api")
	{
		s.registerSystemRoutes(grp)
		s.registerFileRoutes(grp)
		s.registerDownloadRoutes(grp)
		s.registerWebSocketRoutes(grp)
	}
}

func (s *Server) Run(addr string) error {
	return s.Router.Run(addr)
}
