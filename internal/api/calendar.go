package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/carecal/internal/calendar"
)

func (h *handlers) projectRequest(c *gin.Context) ([]calendar.VirtualEvent, error) {
	teams, err := queryTeams(c)
	if err != nil {
		return nil, err
	}
	start, end, err := queryWindow(c)
	if err != nil {
		return nil, err
	}
	critical, err := queryBool(c, "critical")
	if err != nil {
		return nil, err
	}
	return calendar.Project(h.db, teams, start, end, critical)
}

// calendar handles GET /api/calendar.
func (h *handlers) calendar(c *gin.Context) {
	events, err := h.projectRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if events == nil {
		events = []calendar.VirtualEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// calendarICS handles GET /api/calendar.ics.
func (h *handlers) calendarICS(c *gin.Context) {
	events, err := h.projectRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="carecal.ics"`)
	c.Status(http.StatusOK)
	if err := calendar.ExportICS(c.Writer, "carecal", events, h.now()); err != nil {
		h.log.Error("ics export", "error", err)
	}
}
