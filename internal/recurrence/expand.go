package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"github.com/zulandar/carecal/internal/errs"
)

// MaxOccurrences caps a single expansion. A window that would yield more is
// rejected, never truncated; callers split it into smaller windows.
const MaxOccurrences = 5000

// Normalize puts t in UTC at whole-second precision, the resolution at
// which occurrences are stored and compared.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// DayStart returns midnight UTC of t's calendar day.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}

// DayKey returns the UTC calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (r Rule) build(dtstart time.Time) (*rrule.RRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	opt := rrule.ROption{
		Freq:     freqToRRule[r.Freq],
		Interval: normInterval(r.Interval),
		Count:    r.Count,
		Dtstart:  Normalize(dtstart),
	}
	if r.Until != nil {
		opt.Until = r.Until.UTC()
	}
	for _, wd := range sortedWeekdays(r.Weekdays) {
		opt.Byweekday = append(opt.Byweekday, weekdayToRRule[wd])
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rule: %w", err)
	}
	return rr, nil
}

// Between returns the occurrences of r anchored at dtstart that fall inside
// [start, end], both ends inclusive, in ascending order. A window holding
// more than MaxOccurrences fails with errs.ErrInvalidArgument.
func Between(r Rule, dtstart, start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("recurrence: window end %s is before start %s", end, start)
	}
	rr, err := r.build(dtstart)
	if err != nil {
		return nil, err
	}
	var occ []time.Time
	next := rr.Iterator()
	for {
		t, ok := next()
		if !ok || t.After(end) {
			break
		}
		if t.Before(start) {
			continue
		}
		if len(occ) == MaxOccurrences {
			return nil, fmt.Errorf("recurrence: expand: %w",
				errs.Invalid("window yields more than %d occurrences", MaxOccurrences))
		}
		occ = append(occ, Normalize(t))
	}
	return occ, nil
}

// LastBefore returns the latest occurrence strictly before cutoff.
func LastBefore(r Rule, dtstart, cutoff time.Time) (time.Time, bool, error) {
	rr, err := r.build(dtstart)
	if err != nil {
		return time.Time{}, false, err
	}
	t := rr.Before(cutoff.UTC(), false)
	if t.IsZero() {
		return time.Time{}, false, nil
	}
	return Normalize(t), true, nil
}

// FirstAtOrAfter returns the earliest occurrence at or after t.
func FirstAtOrAfter(r Rule, dtstart, t time.Time) (time.Time, bool, error) {
	rr, err := r.build(dtstart)
	if err != nil {
		return time.Time{}, false, err
	}
	next := rr.After(t.UTC(), true)
	if next.IsZero() {
		return time.Time{}, false, nil
	}
	return Normalize(next), true, nil
}

// OccurrenceOn returns the first occurrence that falls on day's UTC
// calendar day. Edits address occurrences by day because callers may only
// know the date of the slot they selected.
func OccurrenceOn(r Rule, dtstart, day time.Time) (time.Time, bool, error) {
	start := DayStart(day)
	occ, err := Between(r, dtstart, start, start.Add(24*time.Hour-time.Second))
	if err != nil {
		return time.Time{}, false, err
	}
	if len(occ) == 0 {
		return time.Time{}, false, nil
	}
	return occ[0], true, nil
}

// CountBefore returns how many occurrences fall strictly before cutoff.
// Only meaningful for bounded rules or a cutoff near dtstart.
func CountBefore(r Rule, dtstart, cutoff time.Time) (int, error) {
	if !cutoff.After(dtstart) {
		return 0, nil
	}
	occ, err := Between(r, dtstart, dtstart, cutoff)
	if err != nil {
		return 0, err
	}
	n := len(occ)
	if n > 0 && occ[n-1].Equal(Normalize(cutoff)) {
		n--
	}
	return n, nil
}

// LastOccurrence returns the last instant the series may emit, or nil for an
// unbounded series. For UNTIL-only rules that is UNTIL itself; with COUNT it
// is the final generated occurrence.
func LastOccurrence(r Rule, dtstart time.Time) (*time.Time, error) {
	if !r.Bounded() {
		return nil, nil
	}
	if r.Count == 0 {
		u := Normalize(*r.Until)
		return &u, nil
	}
	rr, err := r.build(dtstart)
	if err != nil {
		return nil, err
	}
	all := rr.All()
	if len(all) == 0 {
		d := Normalize(dtstart)
		return &d, nil
	}
	last := Normalize(all[len(all)-1])
	return &last, nil
}
