package shift

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"github.com/zulandar/carecal/internal/series"
	"github.com/zulandar/carecal/internal/teamconfig"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.EventMaster{},
		&models.EventException{},
		&models.EventCancellation{},
		&models.CareTask{},
		&models.TeamConfig{},
		&models.Shift{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func jan(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

func seedDaily(t *testing.T, db *gorm.DB) {
	t.Helper()
	if _, err := series.Create(db, series.CreateOpts{
		TeamID:    "team-a",
		Title:     "Meds",
		Rule:      recurrence.Rule{Freq: recurrence.Daily},
		DateStart: jan(1, 9),
	}); err != nil {
		t.Fatalf("create master: %v", err)
	}
}

func TestStart_MaterializesLookahead(t *testing.T) {
	db := testDB(t)
	seedDaily(t, db)

	started, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg1", Now: jan(3, 7)})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.Shift.Active() || started.Shift.CaregiverID != "cg1" {
		t.Errorf("shift = %+v", started.Shift)
	}
	// Jan 3 00:00 through Jan 4 07:00 covers the Jan 3 occurrence only.
	if started.Materialize.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", started.Materialize.Inserted)
	}
	var tasks []models.CareTask
	db.Find(&tasks)
	if len(tasks) != 1 || tasks[0].ShiftID == nil || *tasks[0].ShiftID != started.Shift.ID {
		t.Fatalf("tasks = %+v, want one task stamped with the shift", tasks)
	}
	cur, _ := teamconfig.Cursor(db, "team-a")
	if cur == nil || !cur.Equal(jan(4, 7)) {
		t.Errorf("cursor = %v, want Jan 4 07:00", cur)
	}
}

func TestStart_ChecksOutPreviousShift(t *testing.T) {
	db := testDB(t)
	first, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg1", Now: jan(3, 7)})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg2", Now: jan(3, 19), Lookahead: 12 * time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	cur, err := Current(db, "team-a")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != second.Shift.ID {
		t.Errorf("current = %s, want %s", cur.ID, second.Shift.ID)
	}
	var old models.Shift
	db.Where("id = ?", first.Shift.ID).First(&old)
	if old.Active() || !old.CheckedOutAt.Equal(jan(3, 19)) {
		t.Errorf("previous shift = %+v, want checked out at handover", old)
	}
}

func TestStart_CursorAheadOfLookahead(t *testing.T) {
	db := testDB(t)
	seedDaily(t, db)
	if _, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg1", Now: jan(3, 7)}); err != nil {
		t.Fatal(err)
	}
	if _, err := Unlock(db, "team-a", jan(10, 0), jan(3, 8)); err != nil {
		t.Fatal(err)
	}
	started, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg2", Now: jan(4, 7)})
	if err != nil {
		t.Fatalf("Start behind cursor: %v", err)
	}
	if started.Materialize.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", started.Materialize.Inserted)
	}
}

func TestEnd(t *testing.T) {
	db := testDB(t)
	started, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg1", Now: jan(3, 7)})
	if err != nil {
		t.Fatal(err)
	}
	ended, err := End(db, started.Shift.ID, jan(3, 15))
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Active() {
		t.Error("shift still active")
	}
	if _, err := Current(db, "team-a"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Current after End err = %v, want ErrNotFound", err)
	}
	if _, err := End(db, started.Shift.ID, jan(3, 16)); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("second End err = %v, want ErrConflict", err)
	}
	if _, err := End(db, "missing", jan(3, 16)); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("End(missing) err = %v, want ErrNotFound", err)
	}
}

func TestUnlock(t *testing.T) {
	db := testDB(t)
	seedDaily(t, db)

	_, err := Unlock(db, "team-a", jan(5, 0), jan(3, 8))
	if !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("Unlock without shift err = %v, want ErrForbidden", err)
	}

	started, err := Start(db, StartOpts{TeamID: "team-a", CaregiverID: "cg1", Now: jan(3, 7)})
	if err != nil {
		t.Fatal(err)
	}
	res, err := Unlock(db, "team-a", jan(6, 23), jan(3, 8))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	// Jan 4 through Jan 6 are new; Jan 3 came with the shift.
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}
	var stamped int64
	db.Model(&models.CareTask{}).Where("shift_id = ?", started.Shift.ID).Count(&stamped)
	if stamped != 4 {
		t.Errorf("tasks stamped with shift = %d, want 4", stamped)
	}

	if _, err := Unlock(db, "team-a", jan(6, 23), jan(3, 8)); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("Unlock to the cursor err = %v, want ErrForbidden", err)
	}
	if _, err := Unlock(db, "team-a", jan(5, 0), jan(3, 8)); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("Unlock behind the cursor err = %v, want ErrForbidden", err)
	}
}

func TestStart_Validation(t *testing.T) {
	db := testDB(t)
	if _, err := Start(db, StartOpts{CaregiverID: "cg1"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("missing team err = %v", err)
	}
	if _, err := Start(db, StartOpts{TeamID: "team-a"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("missing caregiver err = %v", err)
	}
}
