package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"github.com/zulandar/carecal/internal/series"
)

type createSeriesBody struct {
	TeamID      string    `json:"teamId" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Kind        string    `json:"kind"`
	RRule       string    `json:"rrule" binding:"required"`
	DateStart   time.Time `json:"dateStart" binding:"required"`
}

type editSeriesBody struct {
	Scope       string     `json:"scope" binding:"required"`
	ExceptionID string     `json:"exceptionId"`
	Date        time.Time  `json:"date"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Kind        *string    `json:"kind"`
	NewDate     *time.Time `json:"newDate"`
	RRule       *string    `json:"rrule"`
}

type cancelSeriesBody struct {
	Scope       string    `json:"scope" binding:"required"`
	ExceptionID string    `json:"exceptionId"`
	Date        time.Time `json:"date"`
}

func parseRule(raw string) (recurrence.Rule, error) {
	rule, err := recurrence.Parse(raw)
	if err != nil {
		return recurrence.Rule{}, errs.Invalid("%v", err)
	}
	return rule, nil
}

// listSeries handles GET /api/series.
func (h *handlers) listSeries(c *gin.Context) {
	teams, err := queryTeams(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	masters, err := series.List(h.db, teams)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]seriesView, 0, len(masters))
	for i := range masters {
		out = append(out, newSeriesView(&masters[i]))
	}
	c.JSON(http.StatusOK, gin.H{"series": out})
}

// createSeries handles POST /api/series.
func (h *handlers) createSeries(c *gin.Context) {
	var body createSeriesBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	if err := requireTeam(c, body.TeamID); err != nil {
		h.fail(c, err)
		return
	}
	rule, err := parseRule(body.RRule)
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := series.Create(h.db, series.CreateOpts{
		TeamID:      body.TeamID,
		Title:       body.Title,
		Description: body.Description,
		Kind:        models.EventKind(body.Kind),
		Rule:        rule,
		DateStart:   body.DateStart,
		CreatedBy:   claimsFrom(c).UserID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSeriesView(m))
}

// loadSeries fetches the :id master and checks the caller's team.
func (h *handlers) loadSeries(c *gin.Context) (*models.EventMaster, error) {
	m, err := series.Get(h.db, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err := requireTeam(c, m.TeamID); err != nil {
		return nil, err
	}
	return m, nil
}

// getSeries handles GET /api/series/:id.
func (h *handlers) getSeries(c *gin.Context) {
	m, err := h.loadSeries(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSeriesView(m))
}

// editSeries handles POST /api/series/:id/edit.
func (h *handlers) editSeries(c *gin.Context) {
	m, err := h.loadSeries(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body editSeriesBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	req := series.EditRequest{
		Scope:         series.Scope(body.Scope),
		EventMasterID: m.ID,
		ExceptionID:   body.ExceptionID,
		Date:          body.Date,
		Title:         body.Title,
		Description:   body.Description,
		NewDate:       body.NewDate,
		UserID:        claimsFrom(c).UserID,
	}
	if body.Kind != nil {
		kind := models.EventKind(*body.Kind)
		req.Kind = &kind
	}
	if body.RRule != nil {
		rule, err := parseRule(*body.RRule)
		if err != nil {
			h.fail(c, err)
			return
		}
		req.Rule = &rule
	}

	res, err := series.Edit(h.db, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"eventMasterId": res.EventMasterID,
		"exceptionId":   res.ExceptionID,
		"split":         res.Split,
	})
}

// cancelSeries handles POST /api/series/:id/cancel.
func (h *handlers) cancelSeries(c *gin.Context) {
	m, err := h.loadSeries(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body cancelSeriesBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	err = series.Cancel(h.db, series.CancelRequest{
		Scope:         series.Scope(body.Scope),
		EventMasterID: m.ID,
		ExceptionID:   body.ExceptionID,
		Date:          body.Date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
