package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/carecal/internal/activity"
	"github.com/zulandar/carecal/internal/caretask"
	"github.com/zulandar/carecal/internal/models"
)

type createTaskBody struct {
	TeamID      string    `json:"teamId" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Kind        string    `json:"kind"`
	Date        time.Time `json:"date" binding:"required"`
	ShiftID     string    `json:"shiftId"`
}

type doneBody struct {
	Done *bool `json:"done" binding:"required"`
}

type detailsBody struct {
	Details string `json:"details"`
}

// listTasks handles GET /api/tasks.
func (h *handlers) listTasks(c *gin.Context) {
	teams, err := queryTeams(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	start, end, err := queryWindow(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	critical, err := queryBool(c, "critical")
	if err != nil {
		h.fail(c, err)
		return
	}
	notDone, err := queryBool(c, "notDone")
	if err != nil {
		h.fail(c, err)
		return
	}

	entries, err := caretask.List(h.db, caretask.ListOpts{
		TeamIDs:      teams,
		Start:        start,
		End:          end,
		OnlyCritical: critical,
		OnlyNotDone:  notDone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]taskView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryView(e))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// createTask handles POST /api/tasks.
func (h *handlers) createTask(c *gin.Context) {
	var body createTaskBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	if err := requireTeam(c, body.TeamID); err != nil {
		h.fail(c, err)
		return
	}
	task, err := caretask.Create(h.db, caretask.CreateOpts{
		TeamID:      body.TeamID,
		Title:       body.Title,
		Description: body.Description,
		Kind:        models.EventKind(body.Kind),
		Date:        body.Date,
		CreatedBy:   claimsFrom(c).UserID,
		ShiftID:     body.ShiftID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskView(task))
}

// loadTask fetches the :id task and checks the caller's team.
func (h *handlers) loadTask(c *gin.Context) (*models.CareTask, error) {
	task, err := caretask.Get(h.db, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err := requireTeam(c, task.TeamID); err != nil {
		return nil, err
	}
	return task, nil
}

// setTaskDone handles POST /api/tasks/:id/done.
func (h *handlers) setTaskDone(c *gin.Context) {
	task, err := h.loadTask(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body doneBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	task, err = caretask.SetDone(h.db, task.ID, claimsFrom(c).UserID, *body.Done)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskView(task))
}

// updateTaskDetails handles PUT /api/tasks/:id/details.
func (h *handlers) updateTaskDetails(c *gin.Context) {
	task, err := h.loadTask(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body detailsBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	task, err = caretask.UpdateDetails(h.db, task.ID, claimsFrom(c).UserID, body.Details)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskView(task))
}

// taskActivity handles GET /api/tasks/:id/activity.
func (h *handlers) taskActivity(c *gin.Context) {
	task, err := h.loadTask(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(c, badRequest("limit: %q is not a positive integer", v))
			return
		}
		limit = n
	}
	logs, err := activity.List(h.db, task.ID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]activityView, 0, len(logs))
	for i := range logs {
		diff, err := activity.Decode(&logs[i])
		if err != nil {
			h.fail(c, err)
			return
		}
		out = append(out, activityView{
			ID:        logs[i].ID,
			UserID:    logs[i].UserID,
			CreatedAt: logs[i].CreatedAt,
			Diff:      diff,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activity": out})
}
