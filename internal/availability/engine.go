// Package availability computes bookable slots from declared rules and
// calendar busy time. Compute is pure: same inputs, same output, no side
// effects, safe for concurrent use.
package availability

import (
	"sort"
	"strings"
	"time"

	"github.com/slotbot/slotbot/internal/model"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Options are the knobs of a single computation. All durations must be
// positive; a zero MaxDaysAhead yields no slots.
type Options struct {
	Duration     time.Duration
	Buffer       time.Duration
	MinNotice    time.Duration
	MaxDaysAhead int
}

type interval struct {
	start time.Time
	end   time.Time
}

// Compute returns every bookable slot within [now, now + MaxDaysAhead days],
// ascending by start, non-overlapping.
//
// Rule occurrences are materialized into absolute windows and merged in UTC.
// Busy intervals from every source (book and watch alike) are merged and
// expanded by Buffer on both ends. Each window is discretized from its own
// start into back-to-back slots of exactly Duration; a slot survives only if
// it clears the expanded busy set, every blocked range, the notice floor and
// the horizon ceiling. Remainders shorter than Duration are dropped.
func Compute(rules []model.AvailabilityRule, busyBySource map[string][]model.BusyInterval, opts Options, now time.Time) []model.Slot {
	if opts.Duration <= 0 || opts.MaxDaysAhead <= 0 {
		return nil
	}

	horizon := now.AddDate(0, 0, opts.MaxDaysAhead)
	minStart := now.Add(opts.MinNotice)

	open, blocked := materialize(rules, now, horizon)
	if len(open) == 0 {
		return nil
	}
	windows := merge(open)
	blocked = merge(blocked)

	busy := make([]interval, 0)
	for _, intervals := range busyBySource {
		for _, b := range intervals {
			busy = append(busy, interval{
				start: b.Start.Add(-opts.Buffer),
				end:   b.End.Add(opts.Buffer),
			})
		}
	}
	busy = merge(busy)

	tz := displayTimezone(rules)

	var slots []model.Slot
	for _, w := range windows {
		for start := w.start; !start.Add(opts.Duration).After(w.end); start = start.Add(opts.Duration) {
			end := start.Add(opts.Duration)
			if start.Before(minStart) || start.After(horizon) {
				continue
			}
			if overlapsAny(start, end, busy) || overlapsAny(start, end, blocked) {
				continue
			}
			slots = append(slots, model.Slot{Start: start, End: end, Timezone: tz})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

// Contains reports whether the exact slot would be offered by Compute with
// the given inputs. The booking coordinator uses it to re-validate a slot
// against fresh busy data before reserving it.
func Contains(rules []model.AvailabilityRule, busyBySource map[string][]model.BusyInterval, opts Options, now time.Time, slot model.Slot) bool {
	for _, s := range Compute(rules, busyBySource, opts, now) {
		if s.Start.Equal(slot.Start) && s.End.Equal(slot.End) {
			return true
		}
	}
	return false
}

// materialize expands rules into absolute open and blocked intervals covering
// [now, horizon]. The walk runs on UTC days from one day before now to one
// day past the horizon so that midnight-spanning windows and timezones ahead
// of UTC are not clipped; out-of-range slots are dropped later.
func materialize(rules []model.AvailabilityRule, now, horizon time.Time) (open, blocked []interval) {
	// Local dates carrying at least one non-blocked specific-date rule
	// suppress recurring rules for that date.
	overridden := make(map[string]bool)
	for _, r := range rules {
		if !r.Blocked && r.Date != "" {
			overridden[r.Date] = true
		}
	}

	base := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	days := int(horizon.Sub(base).Hours()/24) + 2

	for day := 0; day < days; day++ {
		dayUTC := base.AddDate(0, 0, day)
		for _, r := range rules {
			if !validClock(r.Start) || !validClock(r.End) {
				continue
			}
			localDate := dayUTC.In(ruleLocation(r)).Format("2006-01-02")
			if !r.Blocked && r.Date == "" && overridden[localDate] {
				continue
			}
			iv, ok := occurrence(r, dayUTC)
			if !ok {
				continue
			}
			if r.Blocked {
				blocked = append(blocked, iv)
			} else {
				open = append(open, iv)
			}
		}
	}
	return open, blocked
}

// occurrence resolves one rule on one UTC day to an absolute interval,
// evaluated on the calendar date that day has in the rule's timezone.
func occurrence(r model.AvailabilityRule, dayUTC time.Time) (interval, bool) {
	loc := ruleLocation(r)
	local := dayUTC.In(loc)
	y, m, d := local.Date()

	if r.Date != "" {
		if r.Date != local.Format("2006-01-02") {
			return interval{}, false
		}
	} else if wd, ok := weekdays[strings.ToLower(r.Weekday)]; !ok || wd != local.Weekday() {
		return interval{}, false
	}

	sh, sm, _ := parseClock(r.Start)
	eh, em, _ := parseClock(r.End)

	start := time.Date(y, m, d, sh, sm, 0, 0, loc)
	end := time.Date(y, m, d, eh, em, 0, 0, loc)
	if !end.After(start) {
		// Window spans midnight into the next day.
		end = end.AddDate(0, 0, 1)
	}
	return interval{start: start.UTC(), end: end.UTC()}, true
}

func ruleLocation(r model.AvailabilityRule) *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseClock(s string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

func validClock(s string) bool {
	_, _, ok := parseClock(s)
	return ok
}

// merge sorts intervals and collapses overlapping or touching ones.
func merge(ivs []interval) []interval {
	if len(ivs) < 2 {
		return ivs
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].start.Before(ivs[j].start) })

	out := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func overlapsAny(start, end time.Time, ivs []interval) bool {
	for _, iv := range ivs {
		if start.Before(iv.end) && end.After(iv.start) {
			return true
		}
	}
	return false
}

// displayTimezone picks the hint attached to returned slots: the first
// non-empty rule timezone, UTC otherwise.
func displayTimezone(rules []model.AvailabilityRule) string {
	for _, r := range rules {
		if r.Timezone != "" {
			return r.Timezone
		}
	}
	return "UTC"
}
