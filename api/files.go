package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerFileRoutes(rg *gin.RouterGroup) {
	files := rg.Group("/files")
	{
		files.GET("", s.handleListLocalFiles)
		files.GET("/remote", s.handleListRemoteFiles)
	}
}

type localFileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// handleListLocalFiles lists what this node is currently seeding.
func (s *Server) handleListLocalFiles(c *gin.Context) {
	entries, err := os.ReadDir(s.Node.ServeDir())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read serve directory: " + err.Error()})
		return
	}

	out := make([]localFileEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".part" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, localFileEntry{Name: e.Name(), Size: info.Size()})
	}
	c.JSON(http.StatusOK, out)
}

// handleListRemoteFiles discovers files seeded by other nodes in the given
// port range, defaulting to the node's own swarm range if none is given.
func (s *Server) handleListRemoteFiles(c *gin.Context) {
	start, end, err := s.portRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.Node.Scan(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}
