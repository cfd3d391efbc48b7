package caretask

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/carecal/internal/activity"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityType is the activity-log entity type of care tasks.
const EntityType = "care_task"

// CreateOpts holds parameters for an ad hoc care task.
type CreateOpts struct {
	TeamID      string
	Title       string
	Description string
	Kind        models.EventKind
	Date        time.Time
	CreatedBy   string
	ShiftID     string
}

// Create stores a care task that does not come from a recurring event.
func Create(db *gorm.DB, opts CreateOpts) (*models.CareTask, error) {
	if opts.TeamID == "" {
		return nil, fmt.Errorf("caretask: create: %w", errs.Invalid("team id is required"))
	}
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("caretask: create: %w", errs.Invalid("title is required"))
	}
	if opts.Date.IsZero() {
		return nil, fmt.Errorf("caretask: create: %w", errs.Invalid("date is required"))
	}
	if opts.Kind == "" {
		opts.Kind = models.KindNormal
	}
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("caretask: create: %w", errs.Invalid("unknown kind %q", opts.Kind))
	}

	task := models.CareTask{
		ID:          uuid.NewString(),
		TeamID:      opts.TeamID,
		Title:       opts.Title,
		Description: opts.Description,
		Kind:        opts.Kind,
		Date:        recurrence.Normalize(opts.Date),
		CreatedBy:   opts.CreatedBy,
	}
	if opts.ShiftID != "" {
		task.ShiftID = &opts.ShiftID
	}
	if err := db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("caretask: create: %w", err)
	}
	return &task, nil
}

// Get retrieves a care task by id.
func Get(db *gorm.DB, id string) (*models.CareTask, error) {
	var task models.CareTask
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("caretask: get: %w", errs.NotFound("care task %s", id))
		}
		return nil, fmt.Errorf("caretask: get %s: %w", id, err)
	}
	return &task, nil
}

// SetDone marks a task done by userID, or not done. Marking a done task
// done again keeps the original completion.
func SetDone(db *gorm.DB, id, userID string, done bool) (*models.CareTask, error) {
	if done && userID == "" {
		return nil, fmt.Errorf("caretask: set done: %w", errs.Invalid("user id is required"))
	}
	return update(db, id, userID, func(t *models.CareTask) {
		switch {
		case done && t.DoneAt == nil:
			now := time.Now().UTC().Truncate(time.Second)
			t.DoneAt = &now
			t.DoneByUserID = &userID
		case !done:
			t.DoneAt = nil
			t.DoneByUserID = nil
		}
	})
}

// UpdateDetails replaces the free-form details of a task.
func UpdateDetails(db *gorm.DB, id, userID, details string) (*models.CareTask, error) {
	return update(db, id, userID, func(t *models.CareTask) {
		t.Details = details
	})
}

// update applies fn to the locked task and records the change in the
// activity log. Logging is best effort.
func update(db *gorm.DB, id, userID string, fn func(*models.CareTask)) (*models.CareTask, error) {
	var before, task models.CareTask
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("care task %s", id)
			}
			return err
		}
		before = task
		fn(&task)
		return tx.Model(&models.CareTask{}).Where("id = ?", id).Updates(map[string]any{
			"done_at":         task.DoneAt,
			"done_by_user_id": task.DoneByUserID,
			"details":         task.Details,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("caretask: update %s: %w", id, err)
	}

	diff := activity.Diff(snapshot(&before), snapshot(&task))
	if _, err := activity.Log(db, activity.Entry{
		TeamID:     task.TeamID,
		EntityType: EntityType,
		EntityID:   task.ID,
		UserID:     userID,
		Diff:       diff,
	}); err != nil {
		log.Printf("caretask: log activity for %s: %v", task.ID, err)
	}
	return &task, nil
}

func snapshot(t *models.CareTask) map[string]any {
	m := map[string]any{
		"details": t.Details,
		"doneAt":  nil,
		"doneBy":  nil,
	}
	if t.DoneAt != nil {
		m["doneAt"] = t.DoneAt.UTC().Format(time.RFC3339)
	}
	if t.DoneByUserID != nil {
		m["doneBy"] = *t.DoneByUserID
	}
	return m
}
