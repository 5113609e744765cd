package ics

import (
	"sort"
	"time"
)

// maxEmptyPeriods bounds the search for rules that can never produce another
// instance (e.g. FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=30): after this many
// consecutive empty periods the expansion gives up rather than spin.
const maxEmptyPeriods = 1000

// instancesBetween expands the rule anchored at dtstart and returns the
// wall-clock instants intersecting [from, to], ascending. All times are
// field carriers in the UTC location; the zone mapping happens in the
// evaluation layer. Enumeration always starts at dtstart when COUNT is
// present (instances before the window consume the count); otherwise the
// engine skips ahead to the window.
func (r *Recur) instancesBetween(dtstart, from, to time.Time) ([]time.Time, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var until time.Time
	if r.Until != nil {
		until = r.Until.wall()
	}
	stop := to
	if r.Until != nil && until.Before(stop) {
		stop = until
	}

	k := 0
	if r.Count == nil {
		k = r.fastForward(dtstart, from)
	}

	var out []time.Time
	counted := 0
	empty := 0
	for ; ; k++ {
		pStart := r.periodStart(dtstart, k)
		if pStart.After(stop) {
			return out, nil
		}
		cands := r.candidatesInPeriod(dtstart, k)
		if len(cands) == 0 {
			empty++
			if empty > maxEmptyPeriods {
				return out, nil
			}
			continue
		}
		empty = 0
		for _, c := range cands {
			if c.Before(dtstart) {
				continue
			}
			if r.Until != nil && c.After(until) {
				return out, nil
			}
			if r.Count != nil {
				counted++
				if counted > *r.Count {
					return out, nil
				}
			}
			if !c.Before(from) && !c.After(to) {
				out = append(out, c)
			}
		}
	}
}

// fastForward returns the first period index whose period could intersect
// the window start. Only used for rules without COUNT, where skipped periods
// have no observable effect.
func (r *Recur) fastForward(dtstart, from time.Time) int {
	if !dtstart.Before(from) {
		return 0
	}
	var steps int
	switch r.Frequency {
	case FreqYearly:
		steps = from.Year() - dtstart.Year()
	case FreqMonthly:
		steps = (from.Year()-dtstart.Year())*12 + int(from.Month()) - int(dtstart.Month())
	case FreqWeekly:
		steps = int(from.Sub(dtstart).Hours() / (24 * 7))
	case FreqDaily:
		steps = int(from.Sub(dtstart).Hours() / 24)
	case FreqHourly:
		steps = int(from.Sub(dtstart).Hours())
	case FreqMinutely:
		steps = int(from.Sub(dtstart).Minutes())
	case FreqSecondly:
		steps = int(from.Sub(dtstart).Seconds())
	}
	k := steps/r.Interval - 1
	if k < 0 {
		return 0
	}
	return k
}

// periodStart returns the first instant of period k for termination checks.
func (r *Recur) periodStart(dtstart time.Time, k int) time.Time {
	a := r.periodAnchor(dtstart, k)
	switch r.Frequency {
	case FreqYearly:
		if len(r.ByWeekNo) > 0 {
			// week 1 can begin in the prior December
			return weekOneStart(a.Year(), r.WeekStart())
		}
		return time.Date(a.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case FreqMonthly:
		return time.Date(a.Year(), a.Month(), 1, 0, 0, 0, 0, time.UTC)
	case FreqWeekly:
		return startOfDay(weekStartOf(a, r.WeekStart()))
	case FreqDaily:
		return startOfDay(a)
	default:
		return a
	}
}

// periodAnchor computes the anchor of period k directly from dtstart rather
// than by repeated stepping, so monthly rules do not drift when the start
// day exceeds the length of an intermediate month.
func (r *Recur) periodAnchor(dtstart time.Time, k int) time.Time {
	n := k * r.Interval
	switch r.Frequency {
	case FreqYearly:
		return time.Date(dtstart.Year()+n, dtstart.Month(), 1, dtstart.Hour(), dtstart.Minute(), dtstart.Second(), 0, time.UTC)
	case FreqMonthly:
		m := int(dtstart.Month()) - 1 + n
		y := dtstart.Year() + m/12
		m = m % 12
		if m < 0 {
			m += 12
			y--
		}
		return time.Date(y, time.Month(m+1), 1, dtstart.Hour(), dtstart.Minute(), dtstart.Second(), 0, time.UTC)
	case FreqWeekly:
		return dtstart.AddDate(0, 0, 7*n)
	case FreqDaily:
		return dtstart.AddDate(0, 0, n)
	case FreqHourly:
		return dtstart.Add(time.Duration(n) * time.Hour)
	case FreqMinutely:
		return dtstart.Add(time.Duration(n) * time.Minute)
	default:
		return dtstart.Add(time.Duration(n) * time.Second)
	}
}

// candidatesInPeriod generates the sorted, BYSETPOS-filtered instants of
// period k. Whether each BYxxx part expands the set or limits it follows the
// table in RFC 5545 section 3.3.10.
func (r *Recur) candidatesInPeriod(dtstart time.Time, k int) []time.Time {
	anchor := r.periodAnchor(dtstart, k)

	var dates []time.Time
	switch r.Frequency {
	case FreqYearly:
		dates = r.yearDates(anchor.Year(), dtstart)
	case FreqMonthly:
		dates = r.monthDates(anchor.Year(), anchor.Month(), dtstart)
	case FreqWeekly:
		dates = r.weekDates(anchor, dtstart)
	case FreqDaily:
		d := startOfDay(anchor)
		if r.limitDate(d) {
			dates = []time.Time{d}
		}
	default:
		return r.subDayCandidates(anchor)
	}

	set := map[time.Time]struct{}{}
	var cands []time.Time
	for _, d := range dates {
		for _, t := range r.expandTimes(d, dtstart) {
			if _, ok := set[t]; ok {
				continue
			}
			set[t] = struct{}{}
			cands = append(cands, t)
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Before(cands[j]) })
	return applySetPos(cands, r.BySetPos)
}

// yearDates builds the date set of one YEARLY period.
func (r *Recur) yearDates(year int, dtstart time.Time) []time.Time {
	var dates []time.Time
	switch {
	case len(r.ByWeekNo) > 0:
		wkst := r.WeekStart()
		weeks := weeksInYear(year, wkst)
		for _, wn := range r.ByWeekNo {
			n := wn
			if n < 0 {
				n = weeks + n + 1
			}
			if n < 1 || n > weeks {
				continue
			}
			ws := weekOneStart(year, wkst).AddDate(0, 0, (n-1)*7)
			if len(r.ByDay) > 0 {
				for _, spec := range r.ByDay {
					off := (int(spec.Weekday) - int(wkst) + 7) % 7
					dates = append(dates, ws.AddDate(0, 0, off))
				}
			} else {
				// without BYDAY the week expands on DTSTART's weekday
				off := (int(dtstart.Weekday()) - int(wkst) + 7) % 7
				dates = append(dates, ws.AddDate(0, 0, off))
			}
		}
		dates = r.limitByMonth(dates)
		return dates
	case len(r.ByYearDay) > 0:
		yd := daysInYear(year)
		for _, n := range r.ByYearDay {
			d := n
			if d < 0 {
				d = yd + d + 1
			}
			if d < 1 || d > yd {
				continue
			}
			dates = append(dates, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d-1))
		}
		dates = r.limitByMonth(dates)
		dates = r.limitByDaySet(dates)
		return dates
	case len(r.ByMonthDay) > 0:
		months := r.ByMonth
		if len(months) == 0 {
			months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
		}
		for _, m := range months {
			dates = append(dates, monthDayDates(year, time.Month(m), r.ByMonthDay)...)
		}
		dates = r.limitByDaySet(dates)
		return dates
	case len(r.ByDay) > 0:
		if len(r.ByMonth) > 0 {
			for _, m := range r.ByMonth {
				dates = append(dates, byDayDatesInMonth(year, time.Month(m), r.ByDay)...)
			}
		} else {
			dates = byDayDatesInYear(year, r.ByDay)
		}
		return dates
	case len(r.ByMonth) > 0:
		for _, m := range r.ByMonth {
			if dtstart.Day() <= daysIn(year, time.Month(m)) {
				dates = append(dates, time.Date(year, time.Month(m), dtstart.Day(), 0, 0, 0, 0, time.UTC))
			}
		}
		return dates
	default:
		if dtstart.Day() <= daysIn(year, dtstart.Month()) {
			dates = append(dates, time.Date(year, dtstart.Month(), dtstart.Day(), 0, 0, 0, 0, time.UTC))
		}
		return dates
	}
}

// monthDates builds the date set of one MONTHLY period. BYMONTH limits,
// BYMONTHDAY expands, BYDAY expands unless BYMONTHDAY is present in which
// case it limits.
func (r *Recur) monthDates(year int, month time.Month, dtstart time.Time) []time.Time {
	if len(r.ByMonth) > 0 && !intIn(int(month), r.ByMonth) {
		return nil
	}
	var dates []time.Time
	switch {
	case len(r.ByMonthDay) > 0:
		dates = monthDayDates(year, month, r.ByMonthDay)
		dates = r.limitByDaySet(dates)
	case len(r.ByDay) > 0:
		dates = byDayDatesInMonth(year, month, r.ByDay)
	default:
		if dtstart.Day() <= daysIn(year, month) {
			dates = []time.Time{time.Date(year, month, dtstart.Day(), 0, 0, 0, 0, time.UTC)}
		}
	}
	return dates
}

// weekDates builds the date set of one WEEKLY period: the WKST-aligned week
// containing the anchor. BYDAY expands (ordinals carry no meaning here),
// BYMONTH limits.
func (r *Recur) weekDates(anchor, dtstart time.Time) []time.Time {
	ws := startOfDay(weekStartOf(anchor, r.WeekStart()))
	var dates []time.Time
	if len(r.ByDay) > 0 {
		for i := 0; i < 7; i++ {
			d := ws.AddDate(0, 0, i)
			for _, spec := range r.ByDay {
				if spec.Weekday == d.Weekday() {
					dates = append(dates, d)
					break
				}
			}
		}
	} else {
		off := (int(dtstart.Weekday()) - int(r.WeekStart()) + 7) % 7
		dates = []time.Time{ws.AddDate(0, 0, off)}
	}
	return r.limitByMonth(dates)
}

// subDayCandidates handles HOURLY, MINUTELY and SECONDLY periods: the anchor
// instant, limited by every coarser BY part and expanded by the finer ones.
func (r *Recur) subDayCandidates(anchor time.Time) []time.Time {
	if !r.limitDate(startOfDay(anchor)) {
		return nil
	}
	if len(r.ByHour) > 0 && !intIn(anchor.Hour(), r.ByHour) {
		return nil
	}
	var cands []time.Time
	switch r.Frequency {
	case FreqHourly:
		minutes := r.ByMinute
		if len(minutes) == 0 {
			minutes = []int{anchor.Minute()}
		}
		seconds := r.BySecond
		if len(seconds) == 0 {
			seconds = []int{anchor.Second()}
		}
		for _, mi := range minutes {
			for _, se := range seconds {
				cands = append(cands, time.Date(anchor.Year(), anchor.Month(), anchor.Day(), anchor.Hour(), mi, se, 0, time.UTC))
			}
		}
	case FreqMinutely:
		if len(r.ByMinute) > 0 && !intIn(anchor.Minute(), r.ByMinute) {
			return nil
		}
		seconds := r.BySecond
		if len(seconds) == 0 {
			seconds = []int{anchor.Second()}
		}
		for _, se := range seconds {
			cands = append(cands, time.Date(anchor.Year(), anchor.Month(), anchor.Day(), anchor.Hour(), anchor.Minute(), se, 0, time.UTC))
		}
	default: // SECONDLY
		if len(r.ByMinute) > 0 && !intIn(anchor.Minute(), r.ByMinute) {
			return nil
		}
		if len(r.BySecond) > 0 && !intIn(anchor.Second(), r.BySecond) {
			return nil
		}
		cands = []time.Time{anchor}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Before(cands[j]) })
	return applySetPos(cands, r.BySetPos)
}

// expandTimes crosses a date with the BYHOUR/BYMINUTE/BYSECOND expansions,
// defaulting each axis to the corresponding DTSTART field.
func (r *Recur) expandTimes(date, dtstart time.Time) []time.Time {
	hours := r.ByHour
	if len(hours) == 0 {
		hours = []int{dtstart.Hour()}
	}
	minutes := r.ByMinute
	if len(minutes) == 0 {
		minutes = []int{dtstart.Minute()}
	}
	seconds := r.BySecond
	if len(seconds) == 0 {
		seconds = []int{dtstart.Second()}
	}
	out := make([]time.Time, 0, len(hours)*len(minutes)*len(seconds))
	for _, h := range hours {
		for _, mi := range minutes {
			for _, se := range seconds {
				out = append(out, time.Date(date.Year(), date.Month(), date.Day(), h, mi, se, 0, time.UTC))
			}
		}
	}
	return out
}

// limitDate applies the BY parts that act as filters at or above the day
// level for DAILY and sub-day frequencies.
func (r *Recur) limitDate(d time.Time) bool {
	if len(r.ByMonth) > 0 && !intIn(int(d.Month()), r.ByMonth) {
		return false
	}
	if len(r.ByYearDay) > 0 {
		yd := d.YearDay()
		total := daysInYear(d.Year())
		ok := false
		for _, n := range r.ByYearDay {
			v := n
			if v < 0 {
				v = total + v + 1
			}
			if v == yd {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(r.ByMonthDay) > 0 && !monthDayMatches(d, r.ByMonthDay) {
		return false
	}
	if len(r.ByDay) > 0 && !r.dayMatches(d) {
		return false
	}
	return true
}

// limitByMonth filters a date set to the listed months.
func (r *Recur) limitByMonth(dates []time.Time) []time.Time {
	if len(r.ByMonth) == 0 {
		return dates
	}
	var out []time.Time
	for _, d := range dates {
		if intIn(int(d.Month()), r.ByMonth) {
			out = append(out, d)
		}
	}
	return out
}

// limitByDaySet filters a date set by BYDAY acting as a limit (ordinals are
// resolved against the month).
func (r *Recur) limitByDaySet(dates []time.Time) []time.Time {
	if len(r.ByDay) == 0 {
		return dates
	}
	var out []time.Time
	for _, d := range dates {
		if r.dayMatches(d) {
			out = append(out, d)
		}
	}
	return out
}

// dayMatches reports whether d satisfies any BYDAY specifier; ordinals are
// checked against the day's position in its month.
func (r *Recur) dayMatches(d time.Time) bool {
	for _, spec := range r.ByDay {
		if spec.Weekday != d.Weekday() {
			continue
		}
		if spec.Ordinal == 0 {
			return true
		}
		if nd, ok := nthWeekdayInMonth(d.Year(), d.Month(), spec.Weekday, spec.Ordinal); ok && nd.Day() == d.Day() {
			return true
		}
	}
	return false
}

// monthDayDates expands BYMONTHDAY within one month; out-of-range days are
// skipped, negative days count from the month's end.
func monthDayDates(year int, month time.Month, monthDays []int) []time.Time {
	last := daysIn(year, month)
	var out []time.Time
	for _, n := range monthDays {
		d := n
		if d < 0 {
			d = last + d + 1
		}
		if d < 1 || d > last {
			continue
		}
		out = append(out, time.Date(year, month, d, 0, 0, 0, 0, time.UTC))
	}
	return out
}

func monthDayMatches(d time.Time, monthDays []int) bool {
	last := daysIn(d.Year(), d.Month())
	for _, n := range monthDays {
		v := n
		if v < 0 {
			v = last + v + 1
		}
		if v == d.Day() {
			return true
		}
	}
	return false
}

// byDayDatesInMonth expands BYDAY within one month, resolving ordinals from
// either end of the month.
func byDayDatesInMonth(year int, month time.Month, specs []DaySpecifier) []time.Time {
	var out []time.Time
	for _, spec := range specs {
		if spec.Ordinal == 0 {
			out = append(out, weekdaysInMonth(year, month, spec.Weekday)...)
			continue
		}
		if d, ok := nthWeekdayInMonth(year, month, spec.Weekday, spec.Ordinal); ok {
			out = append(out, d)
		}
	}
	return out
}

// byDayDatesInYear expands BYDAY for YEARLY with no BYMONTH/BYWEEKNO:
// ordinals are resolved against the whole year.
func byDayDatesInYear(year int, specs []DaySpecifier) []time.Time {
	var out []time.Time
	for _, spec := range specs {
		if spec.Ordinal == 0 {
			d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
			off := (int(spec.Weekday) - int(d.Weekday()) + 7) % 7
			for d = d.AddDate(0, 0, off); d.Year() == year; d = d.AddDate(0, 0, 7) {
				out = append(out, d)
			}
			continue
		}
		if d, ok := nthWeekdayInYear(year, spec.Weekday, spec.Ordinal); ok {
			out = append(out, d)
		}
	}
	return out
}

// weekdaysInMonth lists every date of the month falling on the weekday.
func weekdaysInMonth(year int, month time.Month, wd time.Weekday) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	off := (int(wd) - int(first.Weekday()) + 7) % 7
	var out []time.Time
	for d := first.AddDate(0, 0, off); d.Month() == month; d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out
}

// nthWeekdayInMonth finds the nth occurrence of a weekday in a month;
// negative n counts from the end.
func nthWeekdayInMonth(year int, month time.Month, weekday time.Weekday, n int) (time.Time, bool) {
	if n == 0 {
		return time.Time{}, false
	}
	if n > 0 {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		off := (int(weekday) - int(first.Weekday()) + 7) % 7
		target := first.AddDate(0, 0, off+(n-1)*7)
		if target.Month() != month {
			return time.Time{}, false
		}
		return target, true
	}
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	back := (int(last.Weekday()) - int(weekday) + 7) % 7
	target := last.AddDate(0, 0, -back+(n+1)*7)
	if target.Month() != month {
		return time.Time{}, false
	}
	return target, true
}

// nthWeekdayInYear resolves a BYDAY ordinal against the whole year.
func nthWeekdayInYear(year int, weekday time.Weekday, n int) (time.Time, bool) {
	if n == 0 {
		return time.Time{}, false
	}
	if n > 0 {
		first := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		off := (int(weekday) - int(first.Weekday()) + 7) % 7
		target := first.AddDate(0, 0, off+(n-1)*7)
		if target.Year() != year {
			return time.Time{}, false
		}
		return target, true
	}
	last := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	back := (int(last.Weekday()) - int(weekday) + 7) % 7
	target := last.AddDate(0, 0, -back+(n+1)*7)
	if target.Year() != year {
		return time.Time{}, false
	}
	return target, true
}

// applySetPos selects the listed 1-based indices from the period's candidate
// set; negative positions count from the end.
func applySetPos(cands []time.Time, positions []int) []time.Time {
	if len(positions) == 0 || len(cands) == 0 {
		return cands
	}
	var out []time.Time
	seen := map[int]struct{}{}
	for _, pos := range positions {
		idx := pos - 1
		if pos < 0 {
			idx = len(cands) + pos
		}
		if idx < 0 || idx >= len(cands) {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, cands[idx])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func intIn(v int, vs []int) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStartOf returns the most recent wkst day at or before t, keeping t's
// clock fields.
func weekStartOf(t time.Time, wkst time.Weekday) time.Time {
	back := (int(t.Weekday()) - int(wkst) + 7) % 7
	return t.AddDate(0, 0, -back)
}

// weekOneStart returns the start of week 1 per RFC 5545: the first week of
// the year containing at least four days of that year, with weeks beginning
// on wkst.
func weekOneStart(year int, wkst time.Weekday) time.Time {
	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	back := (int(jan1.Weekday()) - int(wkst) + 7) % 7
	ws := jan1.AddDate(0, 0, -back)
	if 7-back < 4 {
		ws = ws.AddDate(0, 0, 7)
	}
	return ws
}

func weeksInYear(year int, wkst time.Weekday) int {
	return int(weekOneStart(year+1, wkst).Sub(weekOneStart(year, wkst)).Hours() / (24 * 7))
}

func daysInYear(year int) int {
	return time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
