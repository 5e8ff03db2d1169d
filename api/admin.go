package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) adminDashboard(c *gin.Context) {
	stats, err := s.stats.Dashboard(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) orderAuditTrail(c *gin.Context) {
	logs, err := s.audit.ByEntity(c.Request.Context(), c.Param("id"), 50)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
