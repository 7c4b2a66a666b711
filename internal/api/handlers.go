package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "synthalpha",
		"status":  "running",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(startTime).Seconds(),
	})
}

// handleStatus reports the active-opportunity count and component
// presence, a lightweight summary with no access to order/execution state
// since the engine does none of that.
func (s *Server) handleStatus(c *gin.Context) {
	active := s.pipeline.Arbitrage.ActiveOpportunities()
	c.JSON(http.StatusOK, gin.H{
		"status":                "running",
		"uptime":                time.Since(startTime).Seconds(),
		"active_opportunities":  len(active),
		"models":                len(s.pipeline.Models),
	})
}

func (s *Server) handleListOpportunities(c *gin.Context) {
	active := s.pipeline.Arbitrage.ActiveOpportunities()
	c.JSON(http.StatusOK, gin.H{"opportunities": active, "count": len(active)})
}

func (s *Server) handleGetOpportunity(c *gin.Context) {
	id := c.Param("id")
	for _, o := range s.pipeline.Arbitrage.ActiveOpportunities() {
		if o.ID == id {
			c.JSON(http.StatusOK, o)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
}
