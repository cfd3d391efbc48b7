package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// testConfig writes a sqlite config into a temp dir and returns its path.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "carecal.yaml")
	yaml := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "carecal.db") + "\n" +
		"api:\n  jwt_secret: test-secret\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

var uuidRe = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func TestFlow_SeriesCalendarTasks(t *testing.T) {
	cfg := testConfig(t)

	out := mustRun(t, "db", "init", "-c", cfg)
	if !strings.Contains(out, "Migrated 7 tables") {
		t.Errorf("db init output:\n%s", out)
	}

	out = mustRun(t, "series", "create", "-c", cfg, "--user", "nurse-1",
		"--team", "ward-3", "--title", "Insulin", "--rrule", "FREQ=DAILY", "--start", "2026-01-01 09:00")
	seriesID := uuidRe.FindString(out)
	if seriesID == "" {
		t.Fatalf("no series id in output:\n%s", out)
	}

	mustRun(t, "series", "cancel", seriesID, "-c", cfg, "--date", "2026-01-02 09:00")
	mustRun(t, "series", "edit", seriesID, "-c", cfg, "--date", "2026-01-03 09:00", "--title", "Insulin (late)", "--move-to", "2026-01-03 11:00")

	out = mustRun(t, "calendar", "show", "-c", cfg, "--team", "ward-3", "--start", "2026-01-01", "--end", "2026-01-03")
	if strings.Count(out, "Insulin") != 2 {
		t.Errorf("calendar should show Jan 1 and the moved Jan 3:\n%s", out)
	}
	if !strings.Contains(out, "2026-01-03 11:00") || !strings.Contains(out, "Insulin (late)") {
		t.Errorf("moved occurrence missing:\n%s", out)
	}

	out = mustRun(t, "series", "show", seriesID, "-c", cfg)
	if !strings.Contains(out, "Exceptions:") || !strings.Contains(out, "Cancelled:") {
		t.Errorf("series show output:\n%s", out)
	}

	out = mustRun(t, "materialize", "-c", cfg, "--team", "ward-3", "--start", "2026-01-01", "--end", "2026-01-07")
	if !strings.Contains(out, "Materialized 6 care tasks") {
		t.Errorf("materialize output:\n%s", out)
	}
	if _, err := run(t, "materialize", "-c", cfg, "--team", "ward-3", "--start", "2026-01-01", "--end", "2026-01-05"); err == nil {
		t.Error("materializing behind the cursor should fail")
	}

	out = mustRun(t, "tasks", "list", "-c", cfg, "--team", "ward-3", "--start", "2026-01-01", "--end", "2026-01-08")
	taskID := uuidRe.FindString(strings.SplitN(out, "\n", 3)[1])
	if taskID == "" {
		t.Fatalf("no task id in list:\n%s", out)
	}
	if !strings.Contains(out, "~") {
		t.Errorf("Jan 8 should be listed as not yet materialized:\n%s", out)
	}

	out = mustRun(t, "tasks", "done", taskID, "-c", cfg, "--user", "nurse-1")
	if !strings.Contains(out, "done by nurse-1") {
		t.Errorf("tasks done output:\n%s", out)
	}
	out = mustRun(t, "tasks", "history", taskID, "-c", cfg)
	if !strings.Contains(out, "doneBy") {
		t.Errorf("history should list the completion:\n%s", out)
	}

	icsPath := filepath.Join(t.TempDir(), "out.ics")
	mustRun(t, "calendar", "export", "-c", cfg, "--team", "ward-3", "--start", "2026-01-01", "--end", "2026-01-03", "-o", icsPath)
	data, err := os.ReadFile(icsPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "BEGIN:VEVENT") != 2 {
		t.Errorf("ics export:\n%s", data)
	}
}

func TestFlow_ShiftUnlock(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, "db", "init", "-c", cfg)

	if _, err := run(t, "shift", "unlock", "-c", cfg, "--team", "ward-3", "--until", "2099-01-01"); err == nil {
		t.Error("unlock without an active shift should fail")
	}

	out := mustRun(t, "shift", "start", "-c", cfg, "--team", "ward-3", "--user", "nurse-1")
	shiftID := uuidRe.FindString(out)
	if shiftID == "" {
		t.Fatalf("no shift id:\n%s", out)
	}
	out = mustRun(t, "shift", "current", "-c", cfg, "--team", "ward-3")
	if !strings.Contains(out, shiftID) {
		t.Errorf("current shift output:\n%s", out)
	}
	mustRun(t, "shift", "unlock", "-c", cfg, "--team", "ward-3", "--until", "2099-01-01")
	mustRun(t, "shift", "end", shiftID, "-c", cfg)
	if _, err := run(t, "shift", "end", shiftID, "-c", cfg); err == nil {
		t.Error("ending a shift twice should fail")
	}
}

func TestDBReset_RequiresConfirmation(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, "db", "init", "-c", cfg)

	out, err := run(t, "db", "reset", "-c", cfg)
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("reset without a terminal should require --yes, got err=%v out=%s", err, out)
	}

	out = mustRun(t, "db", "reset", "-c", cfg, "--yes")
	if !strings.Contains(out, "reset successfully") {
		t.Errorf("reset output:\n%s", out)
	}
}

func TestToken(t *testing.T) {
	cfg := testConfig(t)
	out := mustRun(t, "token", "-c", cfg, "--user", "nurse-1", "--team", "ward-3")
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Errorf("expected a JWT, got %q", out)
	}
	if _, err := run(t, "token", "-c", cfg, "--team", "ward-3", "--user", ""); err == nil {
		t.Error("token without user should fail")
	}
}
