package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/carecal/internal/errs"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(format string, args ...any) error {
	return errs.Invalid(format, args...)
}

func forbiddenTeam(teamID string) error {
	return errs.Forbidden("not a member of team %s", teamID)
}

// queryTeams returns the ?team= values, defaulting to every team in the
// caller's token. Teams outside the token are Forbidden.
func queryTeams(c *gin.Context) ([]string, error) {
	claims := claimsFrom(c)
	teams := c.QueryArray("team")
	if len(teams) == 0 {
		teams = claims.TeamIDs
	}
	for _, t := range teams {
		if !claims.CanAccess(t) {
			return nil, forbiddenTeam(t)
		}
	}
	return teams, nil
}

func requireTeam(c *gin.Context, teamID string) error {
	if !claimsFrom(c).CanAccess(teamID) {
		return forbiddenTeam(teamID)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(name, v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, badRequest("%s: %q is not an RFC 3339 timestamp or a YYYY-MM-DD date", name, v)
}

// queryWindow reads ?start= and ?end=. A plain end date covers that whole day.
func queryWindow(c *gin.Context) (time.Time, time.Time, error) {
	rawStart, rawEnd := c.Query("start"), c.Query("end")
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, badRequest("start and end are required")
	}
	start, err := parseTime("start", rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTime("end", rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(rawEnd) == len(time.DateOnly) {
		end = end.Add(24*time.Hour - time.Second)
	}
	return start, end, nil
}

func queryBool(c *gin.Context, name string) (bool, error) {
	v := c.Query(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("%s: %q is not a boolean", name, v)
	}
	return b, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errs.ErrInvalidArgument, err)
	}
	return nil
}
