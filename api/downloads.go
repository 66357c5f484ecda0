package api

import (
	"log"
	"net/http"
	"time"

	"swarmnode/core"
	"swarmnode/db"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerDownloadRoutes(rg *gin.RouterGroup) {
	downloads := rg.Group("/downloads")
	{
		downloads.POST("", s.handleStartDownload)
		downloads.GET("", s.handleListDownloads)
		downloads.GET("/:id", s.handleGetDownload)
	}
}

type startDownloadRequest struct {
	Filename string   `json:"filename" binding:"required"`
	Seeders  []string `json:"seeders" binding:"required"`
}

type downloadView struct {
	ID       string                 `json:"id"`
	Filename string                 `json:"filename"`
	Seeders  []string               `json:"seeders"`
	Progress core.ProgressSnapshot  `json:"progress"`
}

func toDownloadView(job *core.DownloadJob) downloadView {
	seeders := make([]string, len(job.Seeders))
	for i, ep := range job.Seeders {
		seeders[i] = ep.String()
	}
	return downloadView{
		ID:       job.ID,
		Filename: job.Filename,
		Seeders:  seeders,
		Progress: job.Progress.Snapshot(),
	}
}

// handleStartDownload resolves the requested seeder addresses, registers a
// job, and starts the chunked fetch in the background. It broadcasts
// progress over the websocket hub until the job reaches a terminal state.
func (s *Server) handleStartDownload(c *gin.Context) {
	var req startDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seeders := make([]core.PeerEndpoint, 0, len(req.Seeders))
	for _, raw := range req.Seeders {
		ep, err := core.ParseEndpoint(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad seeder address " + raw + ": " + err.Error()})
			return
		}
		seeders = append(seeders, ep)
	}

	job := s.Node.StartDownload(req.Filename, seeders)

	go s.watchJob(job)

	c.JSON(http.StatusAccepted, toDownloadView(job))
}

func (s *Server) watchJob(job *core.DownloadJob) {
	for !job.Finished() {
		s.Hub.BroadcastJobUpdate(job.ID, job.Progress.Snapshot())
		time.Sleep(200 * time.Millisecond)
	}
	snap := job.Progress.Snapshot()
	s.Hub.BroadcastJobUpdate(job.ID, snap)

	if err := db.RecordDownload(s.DB, db.DownloadRecord{
		JobID:       job.ID,
		Filename:    job.Filename,
		SizeBytes:   snap.TotalBytes,
		SeederCount: len(job.Seeders),
		StartedAt:   job.StartTime,
		FinishedAt:  job.EndTime,
		Success:     snap.Success,
	}); err != nil {
		log.Printf("api: record download %q: %v", job.ID, err)
	}
}

func (s *Server) handleListDownloads(c *gin.Context) {
	jobs := s.Node.Jobs.List()
	out := make([]downloadView, len(jobs))
	for i, j := range jobs {
		out[i] = toDownloadView(j)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDownload(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.Node.Jobs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, toDownloadView(job))
}
