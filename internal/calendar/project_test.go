package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
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
	if err := db.AutoMigrate(&models.EventMaster{}, &models.EventException{}, &models.EventCancellation{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedMaster(t *testing.T, db *gorm.DB, m models.EventMaster) {
	t.Helper()
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed master %s: %v", m.ID, err)
	}
}

func TestProject_RequiresTeams(t *testing.T) {
	db := testDB(t)
	_, err := Project(db, nil, at(1, 1, 0), at(1, 7, 0), false)
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestProject_RejectsInvertedWindow(t *testing.T) {
	db := testDB(t)
	_, err := Project(db, []string{"team-a"}, at(1, 7, 0), at(1, 1, 0), false)
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestProject_WeeklyWithOverrides(t *testing.T) {
	db := testDB(t)
	seedMaster(t, db, models.EventMaster{ID: "m1", TeamID: "team-a", Title: "Meds", Kind: models.KindNormal, RRule: "FREQ=WEEKLY", DateStart: at(1, 1, 9)})
	seedMaster(t, db, models.EventMaster{ID: "m2", TeamID: "team-b", Title: "Other team", Kind: models.KindNormal, RRule: "FREQ=DAILY", DateStart: at(1, 1, 9)})
	if err := db.Create(&models.EventCancellation{EventMasterID: "m1", OriginalDate: at(1, 8, 9)}).Error; err != nil {
		t.Fatalf("seed cancellation: %v", err)
	}
	if err := db.Create(&models.EventException{ID: "x1", EventMasterID: "m1", OriginalDate: at(1, 1, 9), NewDate: at(1, 1, 9), Title: models.Set("Meds v2")}).Error; err != nil {
		t.Fatalf("seed exception: %v", err)
	}

	got, err := Project(db, []string{"team-a"}, at(1, 1, 0), at(1, 21, 23), false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events %v, want 2", len(got), dates(got))
	}
	if got[0].Title != "Meds v2" || !got[0].Date.Equal(at(1, 1, 9)) {
		t.Errorf("first = %+v, want retitled Jan 1", got[0])
	}
	if got[1].Title != "Meds" || !got[1].Date.Equal(at(1, 15, 9)) {
		t.Errorf("second = %+v, want master Jan 15", got[1])
	}

	// Repeated projection is stable.
	again, err := Project(db, []string{"team-a"}, at(1, 1, 0), at(1, 21, 23), false)
	if err != nil {
		t.Fatalf("Project again: %v", err)
	}
	if len(again) != len(got) {
		t.Errorf("second projection returned %d events, want %d", len(again), len(got))
	}
}

func TestProject_PreFiltersByBounds(t *testing.T) {
	db := testDB(t)
	until := at(1, 3, 9)
	seedMaster(t, db, models.EventMaster{ID: "ended", TeamID: "team-a", Title: "Ended", RRule: "FREQ=DAILY;COUNT=3", DateStart: at(1, 1, 9), DateUntil: &until})
	seedMaster(t, db, models.EventMaster{ID: "future", TeamID: "team-a", Title: "Future", RRule: "FREQ=DAILY", DateStart: at(3, 1, 9)})

	got, err := Project(db, []string{"team-a"}, at(2, 1, 0), at(2, 5, 0), false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", dates(got))
	}
}

func TestProject_LoadsMasterForMovedException(t *testing.T) {
	db := testDB(t)
	until := at(1, 1, 9)
	seedMaster(t, db, models.EventMaster{ID: "once", TeamID: "team-a", Title: "Visit", RRule: "FREQ=DAILY;COUNT=1", DateStart: at(1, 1, 9), DateUntil: &until})
	if err := db.Create(&models.EventException{ID: "x1", EventMasterID: "once", OriginalDate: at(1, 1, 9), NewDate: at(2, 2, 10)}).Error; err != nil {
		t.Fatalf("seed exception: %v", err)
	}

	got, err := Project(db, []string{"team-a"}, at(2, 1, 0), at(2, 5, 0), false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Visit" || !got[0].Date.Equal(at(2, 2, 10)) {
		t.Fatalf("got %+v, want moved visit on Feb 2", got)
	}
}

func TestProject_OnlyCriticalUsesResolvedKind(t *testing.T) {
	db := testDB(t)
	seedMaster(t, db, models.EventMaster{ID: "m1", TeamID: "team-a", Title: "Check", Kind: models.KindNormal, RRule: "FREQ=DAILY", DateStart: at(1, 1, 9)})
	seedMaster(t, db, models.EventMaster{ID: "m2", TeamID: "team-a", Title: "Insulin", Kind: models.KindCritical, RRule: "FREQ=DAILY", DateStart: at(1, 1, 8)})
	if err := db.Create(&models.EventException{ID: "x1", EventMasterID: "m1", OriginalDate: at(1, 2, 9), NewDate: at(1, 2, 9), Kind: models.Set(models.KindCritical)}).Error; err != nil {
		t.Fatalf("seed exception: %v", err)
	}
	if err := db.Create(&models.EventException{ID: "x2", EventMasterID: "m2", OriginalDate: at(1, 3, 8), NewDate: at(1, 3, 8), Kind: models.Set(models.KindNormal)}).Error; err != nil {
		t.Fatalf("seed exception: %v", err)
	}

	got, err := Project(db, []string{"team-a"}, at(1, 1, 0), at(1, 3, 23), true)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	var ids []string
	for _, e := range got {
		if e.Kind != models.KindCritical {
			t.Errorf("non-critical event %+v in critical projection", e)
		}
		ids = append(ids, e.EventMasterID+"@"+e.Date.Format("01-02"))
	}
	want := []string{"m2@01-01", "m2@01-02", "m1@01-02"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestProject_MultipleTeams(t *testing.T) {
	db := testDB(t)
	seedMaster(t, db, models.EventMaster{ID: "a", TeamID: "team-a", Title: "A", RRule: "FREQ=DAILY", DateStart: at(1, 1, 9)})
	seedMaster(t, db, models.EventMaster{ID: "b", TeamID: "team-b", Title: "B", RRule: "FREQ=DAILY", DateStart: at(1, 1, 10)})

	got, err := Project(db, []string{"team-a", "team-b"}, at(1, 1, 0), time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d events, want 4", len(got))
	}
	if got[0].TeamID != "team-a" || got[1].TeamID != "team-b" {
		t.Errorf("teams = %s, %s; want chronological a, b", got[0].TeamID, got[1].TeamID)
	}
}
