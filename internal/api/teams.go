package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/carecal/internal/shift"
	"github.com/zulandar/carecal/internal/teamconfig"
)

type materializeBody struct {
	Until time.Time `json:"until" binding:"required"`
}

type startShiftBody struct {
	CaregiverID string `json:"caregiverId"`
}

func (h *handlers) team(c *gin.Context) (string, error) {
	teamID := c.Param("team")
	if err := requireTeam(c, teamID); err != nil {
		return "", err
	}
	return teamID, nil
}

// teamConfig handles GET /api/teams/:team/config.
func (h *handlers) teamConfig(c *gin.Context) {
	teamID, err := h.team(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	cfg, err := teamconfig.Get(h.db, teamID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teamId": cfg.TeamID, "settings": cfg.Settings, "version": cfg.Version})
}

// materialize handles POST /api/teams/:team/materialize. It needs an
// active shift and an until beyond the team's cursor.
func (h *handlers) materialize(c *gin.Context) {
	teamID, err := h.team(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body materializeBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	res, err := shift.Unlock(h.db, teamID, body.Until, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newResultView(res))
}

// startShift handles POST /api/teams/:team/shifts.
func (h *handlers) startShift(c *gin.Context) {
	teamID, err := h.team(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body startShiftBody
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &body); err != nil {
			h.fail(c, err)
			return
		}
	}
	if body.CaregiverID == "" {
		body.CaregiverID = claimsFrom(c).UserID
	}
	started, err := shift.Start(h.db, shift.StartOpts{
		TeamID:      teamID,
		CaregiverID: body.CaregiverID,
		Now:         h.now(),
		Lookahead:   h.lookahead,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"shift":       newShiftView(started.Shift),
		"materialize": newResultView(started.Materialize),
	})
}

// currentShift handles GET /api/teams/:team/shifts/current.
func (h *handlers) currentShift(c *gin.Context) {
	teamID, err := h.team(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	s, err := shift.Current(h.db, teamID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newShiftView(s))
}

// endShift handles POST /api/shifts/:id/end.
func (h *handlers) endShift(c *gin.Context) {
	s, err := shift.Get(h.db, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := requireTeam(c, s.TeamID); err != nil {
		h.fail(c, err)
		return
	}
	s, err = shift.End(h.db, s.ID, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newShiftView(s))
}
