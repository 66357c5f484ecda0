package api

import (
	"net/http"
	"strconv"
	"time"

	"swarmnode/db"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerSystemRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/status", s.handleNodeStatus)
		system.GET("/seeders", s.handleSeederHealth)
		system.POST("/shutdown", s.handleShutdown)
		system.GET("/settings", s.handleGetSettings)
	}
}

// portRange reads ?start=&end= query params, falling back to the stored
// settings row's configured swarm range.
func (s *Server) portRange(c *gin.Context) (int, int, error) {
	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		settings, err := db.LoadSettings(s.DB)
		if err != nil {
			return 0, 0, err
		}
		return settings.PortRangeStart, settings.PortRangeEnd, nil
	}
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (s *Server) handleNodeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online":    true,
		"self":      s.Node.Self.String(),
		"serve_dir": s.Node.ServeDir(),
		"jobs":      len(s.Node.Jobs.List()),
	})
}

func (s *Server) handleSeederHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.Node.Health.Status())
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := db.LoadSettings(s.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleShutdown(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "shutting_down"})

	go func() {
		time.Sleep(100 * time.Millisecond)
		if s.ShutdownChan != nil {
			s.ShutdownChan <- true
		}
	}()
}
