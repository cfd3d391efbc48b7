// Package recurrence expands recurrence rules into concrete occurrence
// timestamps. Rules are the FREQ/INTERVAL/COUNT/UNTIL/BYDAY subset of
// RFC 5545; the series anchor (DTSTART) is always passed separately.
package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency is the RRULE FREQ value.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

const untilLayout = "20060102T150405Z"

// Frequencies are daily or coarser, so a rule emits at most one occurrence
// per UTC day. Exceptions and cancellations address occurrences by day.
var freqToRRule = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
	Yearly:  rrule.YEARLY,
}

var weekdayToRRule = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// Rule is a recurrence rule. Count and Until may both be set; whichever
// bounds the series first wins.
type Rule struct {
	Freq     Frequency
	Interval int
	Count    int
	Until    *time.Time
	Weekdays []time.Weekday
}

// Parse reads an RRULE body such as "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,TH".
// An "RRULE:" prefix is accepted.
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "RRULE:"))
	if s == "" {
		return Rule{}, fmt.Errorf("recurrence: parse: empty rule")
	}

	opt, err := rrule.StrToROption(s)
	if err != nil {
		return Rule{}, fmt.Errorf("recurrence: parse %q: %w", s, err)
	}
	if len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 0 || len(opt.Byyearday) > 0 ||
		len(opt.Byweekno) > 0 || len(opt.Bysetpos) > 0 || len(opt.Byhour) > 0 ||
		len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return Rule{}, fmt.Errorf("recurrence: parse %q: only FREQ, INTERVAL, COUNT, UNTIL and BYDAY are supported", s)
	}

	r := Rule{Interval: opt.Interval, Count: opt.Count}
	for f, rf := range freqToRRule {
		if rf == opt.Freq {
			r.Freq = f
		}
	}
	if r.Freq == "" {
		return Rule{}, fmt.Errorf("recurrence: parse %q: unsupported frequency", s)
	}
	if r.Interval < 1 {
		r.Interval = 1
	}
	if !opt.Until.IsZero() {
		u := opt.Until.UTC()
		r.Until = &u
	}
	for _, wd := range opt.Byweekday {
		day, ok := weekdayFromRRule(wd)
		if !ok {
			return Rule{}, fmt.Errorf("recurrence: parse %q: positional BYDAY values are not supported", s)
		}
		r.Weekdays = append(r.Weekdays, day)
	}
	return r, r.Validate()
}

func weekdayFromRRule(wd rrule.Weekday) (time.Weekday, bool) {
	for day, rw := range weekdayToRRule {
		if rw == wd {
			return day, true
		}
	}
	return 0, false
}

// Validate checks that the rule can be expanded.
func (r Rule) Validate() error {
	if _, ok := freqToRRule[r.Freq]; !ok {
		return fmt.Errorf("recurrence: unknown frequency %q", r.Freq)
	}
	if r.Interval < 0 {
		return fmt.Errorf("recurrence: interval must not be negative")
	}
	if r.Count < 0 {
		return fmt.Errorf("recurrence: count must not be negative")
	}
	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("recurrence: invalid weekday %d", wd)
		}
	}
	return nil
}

// String renders the rule as an RRULE body.
func (r Rule) String() string {
	parts := []string{"FREQ=" + string(r.Freq)}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if len(r.Weekdays) > 0 {
		days := make([]string, 0, len(r.Weekdays))
		for _, wd := range sortedWeekdays(r.Weekdays) {
			days = append(days, weekdayCodes[wd])
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format(untilLayout))
	}
	return strings.Join(parts, ";")
}

// WithUntil returns a copy of r that ends at until. Count is dropped since
// until now bounds the series.
func (r Rule) WithUntil(until time.Time) Rule {
	u := until.UTC()
	out := r
	out.Until = &u
	out.Count = 0
	out.Weekdays = append([]time.Weekday(nil), r.Weekdays...)
	return out
}

// SameCadence reports whether two rules produce occurrences on the same
// schedule, ignoring how the series is bounded.
func (r Rule) SameCadence(o Rule) bool {
	if r.Freq != o.Freq || normInterval(r.Interval) != normInterval(o.Interval) {
		return false
	}
	a, b := sortedWeekdays(r.Weekdays), sortedWeekdays(o.Weekdays)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SameBounds reports whether two rules end the series the same way.
func (r Rule) SameBounds(o Rule) bool {
	if r.Count != o.Count {
		return false
	}
	switch {
	case r.Until == nil && o.Until == nil:
		return true
	case r.Until == nil || o.Until == nil:
		return false
	default:
		return r.Until.Equal(*o.Until)
	}
}

// Bounded reports whether the series has a finite number of occurrences.
func (r Rule) Bounded() bool {
	return r.Count > 0 || r.Until != nil
}

func normInterval(i int) int {
	if i < 1 {
		return 1
	}
	return i
}

// sortedWeekdays orders days Monday first and drops duplicates.
func sortedWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return (out[i]+6)%7 < (out[j]+6)%7
	})
	return out
}
