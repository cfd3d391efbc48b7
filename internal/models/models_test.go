package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestEventMaster_Fields(t *testing.T) {
	typ := reflect.TypeOf(EventMaster{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "TeamID", "index")
	assertGormTag(t, typ, "RRule", "column:rrule")
	assertGormTag(t, typ, "Kind", "default:normal")
	assertGormTag(t, typ, "DateStart", "index")
	assertGormTag(t, typ, "DateUntil", "index")
	assertGormTag(t, typ, "Exceptions", "OnDelete:CASCADE")
	assertGormTag(t, typ, "Cancellations", "OnDelete:CASCADE")

	assertFieldType(t, typ, "DateStart", "time.Time")
	assertFieldType(t, typ, "DateUntil", "*time.Time")
	assertFieldType(t, typ, "Kind", "models.EventKind")
}

func TestEventException_UniquePerOriginalDate(t *testing.T) {
	typ := reflect.TypeOf(EventException{})

	assertGormTag(t, typ, "EventMasterID", "uniqueIndex:ux_exception_master_original,priority:1")
	assertGormTag(t, typ, "OriginalDate", "uniqueIndex:ux_exception_master_original,priority:2")
	assertGormTag(t, typ, "NewDate", "index")

	assertFieldType(t, typ, "Title", "models.Override[string]")
}

func TestEventCancellation_UniquePerOriginalDate(t *testing.T) {
	typ := reflect.TypeOf(EventCancellation{})

	assertGormTag(t, typ, "EventMasterID", "uniqueIndex:ux_cancellation_master_original,priority:1")
	assertGormTag(t, typ, "OriginalDate", "uniqueIndex:ux_cancellation_master_original,priority:2")
}

func TestCareTask_Fields(t *testing.T) {
	typ := reflect.TypeOf(CareTask{})

	assertGormTag(t, typ, "TeamID", "uniqueIndex:ux_care_task_team_master_date,priority:1")
	assertGormTag(t, typ, "EventMasterID", "uniqueIndex:ux_care_task_team_master_date,priority:2")
	assertGormTag(t, typ, "Date", "uniqueIndex:ux_care_task_team_master_date,priority:3")
	assertGormTag(t, typ, "Details", "type:text")

	assertFieldType(t, typ, "EventMasterID", "*string")
	assertFieldType(t, typ, "DoneAt", "*time.Time")
	assertFieldType(t, typ, "DoneByUserID", "*string")
	assertFieldType(t, typ, "ShiftID", "*string")
}

func TestCareTask_IsDone(t *testing.T) {
	task := CareTask{}
	if task.IsDone() {
		t.Error("new task should not be done")
	}
	now := time.Now()
	task.DoneAt = &now
	if !task.IsDone() {
		t.Error("task with DoneAt should be done")
	}
}

func TestTeamConfig_Fields(t *testing.T) {
	typ := reflect.TypeOf(TeamConfig{})

	assertGormTag(t, typ, "TeamID", "uniqueIndex:ux_team_config_app,priority:1")
	assertGormTag(t, typ, "App", "uniqueIndex:ux_team_config_app,priority:2")
	assertGormTag(t, typ, "Version", "default:0")
	assertFieldType(t, typ, "Settings", "datatypes.JSON")
}

func TestShift_Active(t *testing.T) {
	s := Shift{CheckedInAt: time.Now()}
	if !s.Active() {
		t.Error("shift without checkout should be active")
	}
	out := time.Now()
	s.CheckedOutAt = &out
	if s.Active() {
		t.Error("checked-out shift should not be active")
	}
}

func TestEventKind_Valid(t *testing.T) {
	for _, k := range []EventKind{KindNormal, KindCritical} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if EventKind("urgent").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestOverride_Resolve(t *testing.T) {
	if got := Inherit[string]().Resolve("master"); got != "master" {
		t.Errorf("inherit resolved to %q, want master", got)
	}
	if got := Set("").Resolve("master"); got != "" {
		t.Errorf("empty override resolved to %q, want empty string", got)
	}
	if got := Set(KindCritical).Resolve(KindNormal); got != KindCritical {
		t.Errorf("kind override resolved to %q, want critical", got)
	}
}

func TestOverride_ValueScan(t *testing.T) {
	v, err := Inherit[string]().Value()
	if err != nil || v != nil {
		t.Errorf("inherit Value() = %v, %v; want nil, nil", v, err)
	}
	v, err = Set("").Value()
	if err != nil || v != "" {
		t.Errorf("empty override Value() = %v, %v; want \"\", nil", v, err)
	}

	var o Override[string]
	if err := o.Scan([]byte("Bath")); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if got, ok := o.Get(); !ok || got != "Bath" {
		t.Errorf("Get() = %q, %v; want Bath, true", got, ok)
	}
	if err := o.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if o.IsSet() {
		t.Error("Scan(nil) should reset to inherit")
	}
	if err := o.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestOverride_JSON(t *testing.T) {
	type payload struct {
		Title Override[string] `json:"title"`
		Note  Override[string] `json:"note"`
	}
	data, err := json.Marshal(payload{Title: Set(""), Note: Inherit[string]()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"title":"","note":null}` {
		t.Errorf("marshal = %s", data)
	}

	var back payload
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Title.IsSet() || back.Note.IsSet() {
		t.Errorf("round trip lost set-ness: title=%v note=%v", back.Title.IsSet(), back.Note.IsSet())
	}
}
