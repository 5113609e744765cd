package ics

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Occurrence is one materialized instance of a recurring (or plain)
// component within an evaluation window. Start and End are absolute
// instants; Period carries the same span in the wall clock of the
// component's DTSTART zone.
type Occurrence struct {
	Component Component
	UID       string
	Start     time.Time
	End       time.Time
	Period    Period
	AllDay    bool
}

// evalMarginHours widens the wall-clock expansion window so no instant close
// to the boundary is lost to a zone offset before the precise absolute-time
// filter runs. Offsets never exceed a day.
const evalMarginHours = 36

// Evaluate expands every recurring child of the calendar over [from, to]
// and returns the materialized occurrences. Within one component
// occurrences are ascending; across components the aggregate follows
// component order (use EvaluateSorted for a merged ordering). RECURRENCE-ID
// components override the matching instance of their base component, linked
// by shared UID within the component kind. Semantic recurrence violations
// surface as RecurError.
func (cal *Calendar) Evaluate(from, to time.Time) ([]Occurrence, error) {
	overrides := cal.collectOverrides()
	var out []Occurrence
	for _, comp := range cal.Components {
		cb := componentBaseOf(comp)
		if cb == nil {
			continue
		}
		switch comp.(type) {
		case *VEvent, *VTodo, *VJournal:
		default:
			continue
		}
		if cb.HasProperty(ComponentPropertyRecurrenceId) {
			// override instances are folded into their base component
			continue
		}
		occ, err := cal.evaluateComponent(comp, cb, overrides[overrideKey(comp, cb.Id())], from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	return out, nil
}

// EvaluateSorted is Evaluate with the aggregate merged into ascending order.
func (cal *Calendar) EvaluateSorted(from, to time.Time) ([]Occurrence, error) {
	out, err := cal.Evaluate(from, to)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func overrideKey(comp Component, uid string) string {
	return string(comp.ComponentType()) + "\x00" + uid
}

// collectOverrides indexes RECURRENCE-ID components by kind and UID; this is
// the post-load UID resolution pass.
func (cal *Calendar) collectOverrides() map[string]map[time.Time]Component {
	out := map[string]map[time.Time]Component{}
	for _, comp := range cal.Components {
		cb := componentBaseOf(comp)
		if cb == nil || !cb.HasProperty(ComponentPropertyRecurrenceId) {
			continue
		}
		rid, err := cb.getDateTimeProp(ComponentPropertyRecurrenceId)
		if err != nil {
			continue
		}
		key := overrideKey(comp, cb.Id())
		if out[key] == nil {
			out[key] = map[time.Time]Component{}
		}
		out[key][rid.wall()] = comp
	}
	return out
}

func componentBaseOf(comp Component) *ComponentBase {
	switch c := comp.(type) {
	case *VEvent:
		return &c.ComponentBase
	case *VTodo:
		return &c.ComponentBase
	case *VJournal:
		return &c.ComponentBase
	case *VBusy:
		return &c.ComponentBase
	case *VTimezone:
		return &c.ComponentBase
	case *VAlarm:
		return &c.ComponentBase
	case *Standard:
		return &c.ComponentBase
	case *Daylight:
		return &c.ComponentBase
	case *GeneralComponent:
		return &c.ComponentBase
	}
	return nil
}

// componentSpan resolves the start anchor and the wall-clock duration of one
// occurrence. DTEND (or DUE) and DURATION are mutually exclusive.
func componentSpan(comp Component, cb *ComponentBase) (DateTime, time.Duration, error) {
	dtstart, err := cb.GetStartDateTime()
	if err != nil {
		return DateTime{}, 0, err
	}
	endProp := ComponentPropertyDtEnd
	if _, ok := comp.(*VTodo); ok {
		endProp = ComponentPropertyDue
	}
	hasEnd := cb.HasProperty(endProp)
	hasDuration := cb.HasProperty(ComponentPropertyDuration)
	if hasEnd && hasDuration {
		return DateTime{}, 0, &RecurError{Kind: RecurMutuallyExclusive, Detail: cb.Id()}
	}
	switch {
	case hasDuration:
		d, derr := cb.GetDuration()
		if derr != nil {
			return DateTime{}, 0, derr
		}
		return dtstart, d.TimeDuration(), nil
	case hasEnd:
		end, eerr := cb.getDateTimeProp(endProp)
		if eerr != nil {
			return DateTime{}, 0, eerr
		}
		return dtstart, end.wall().Sub(dtstart.wall()), nil
	case !dtstart.HasTime:
		return dtstart, 24 * time.Hour, nil
	default:
		return dtstart, 0, nil
	}
}

func (cal *Calendar) evaluateComponent(comp Component, cb *ComponentBase, overrides map[time.Time]Component, from, to time.Time) ([]Occurrence, error) {
	dtstart, dur, err := componentSpan(comp, cb)
	if err != nil {
		var recurErr *RecurError
		if errors.As(err, &recurErr) {
			return nil, err
		}
		// no DTSTART or an unreadable anchor: nothing to materialize
		return nil, nil
	}
	wallStart := dtstart.wall()

	wallFrom := from.UTC().Add(-evalMarginHours*time.Hour - dur)
	wallTo := to.UTC().Add(evalMarginHours * time.Hour)

	rrules := cb.GetProperties(ComponentPropertyRrule)
	rdates := cb.GetProperties(ComponentPropertyRdate)
	recurring := len(rrules) > 0 || len(rdates) > 0

	// periodEnds remembers RDATE values supplied in PERIOD form, which carry
	// their own end instead of the component span.
	periodEnds := map[time.Time]time.Time{}
	instants := map[time.Time]struct{}{}

	if recurring {
		for _, p := range rrules {
			r, rerr := recurOf(p)
			if rerr != nil {
				return nil, rerr
			}
			times, xerr := r.instancesBetween(wallStart, wallFrom, wallTo)
			if xerr != nil {
				return nil, xerr
			}
			for _, t := range times {
				instants[t] = struct{}{}
			}
		}
		for _, p := range rdates {
			for _, v := range p.ParsedValues {
				switch v := v.(type) {
				case DateTime:
					instants[v.wall()] = struct{}{}
				case Period:
					w := v.Start.wall()
					instants[w] = struct{}{}
					periodEnds[w] = v.EndDateTime().wall()
				}
			}
		}
		// without an RRULE, DTSTART joins the RDATEs; with RRULEs the set
		// holds DTSTART only when a rule generates it
		if len(rrules) == 0 {
			instants[wallStart] = struct{}{}
		}
	} else {
		instants[wallStart] = struct{}{}
	}

	// exclusions: EXRULE expansions and EXDATE values, removed by instant
	// equality in the DTSTART zone
	excluded := map[time.Time]struct{}{}
	for _, p := range cb.GetProperties(ComponentPropertyExrule) {
		r, rerr := recurOf(p)
		if rerr != nil {
			return nil, rerr
		}
		times, xerr := r.instancesBetween(wallStart, wallFrom, wallTo)
		if xerr != nil {
			return nil, xerr
		}
		for _, t := range times {
			excluded[t] = struct{}{}
		}
	}
	for _, p := range cb.GetProperties(ComponentPropertyExdate) {
		for _, v := range p.ParsedValues {
			if dtv, ok := v.(DateTime); ok {
				if !dtv.HasTime {
					// a date-only EXDATE removes the instance on that day
					d := dtv.wall()
					for w := range instants {
						if w.Year() == d.Year() && w.YearDay() == d.YearDay() {
							excluded[w] = struct{}{}
						}
					}
					continue
				}
				excluded[dtv.wall()] = struct{}{}
			}
		}
	}

	walls := make([]time.Time, 0, len(instants))
	for w := range instants {
		if _, ex := excluded[w]; ex {
			continue
		}
		walls = append(walls, w)
	}
	sort.Slice(walls, func(i, j int) bool { return walls[i].Before(walls[j]) })

	var out []Occurrence
	for _, w := range walls {
		occComp := comp
		occStart := w
		occEnd := w.Add(dur)
		if pe, ok := periodEnds[w]; ok {
			occEnd = pe
		}
		startDT := dtstart.fromWall(occStart)
		endDT := dtstart.fromWall(occEnd)

		if ov, ok := overrides[w]; ok {
			ovBase := componentBaseOf(ov)
			ovStart, ovDur, oerr := componentSpan(ov, ovBase)
			if oerr == nil {
				occComp = ov
				occStart = ovStart.wall()
				occEnd = occStart.Add(ovDur)
				startDT = ovStart
				endDT = ovStart.fromWall(occEnd)
			}
		}

		absStart := cal.absoluteTime(startDT, occStart)
		absEnd := cal.absoluteTime(endDT, occEnd)
		if absStart.After(to) || absEnd.Before(from) {
			continue
		}
		out = append(out, Occurrence{
			Component: occComp,
			UID:       componentBaseOf(occComp).Id(),
			Start:     absStart,
			End:       absEnd,
			Period:    Period{Start: startDT, End: endDT, HasEnd: true},
			AllDay:    !dtstart.HasTime,
		})
	}
	return out, nil
}

// absoluteTime maps a wall-clock instant in the date-time's zone onto the
// UTC timeline. Floating and unresolved-TZID values map as if UTC, which
// keeps evaluation deterministic and host-independent; the unresolved case
// is additionally diagnosed by the registry.
func (cal *Calendar) absoluteTime(dt DateTime, wall time.Time) time.Time {
	switch dt.Zone {
	case ZoneUTC:
		return wall
	case ZoneTZID:
		reg := cal.timezoneRegistry()
		off, zerr := reg.OffsetAt(tzidOf(dt.TZID), wall)
		if zerr != nil {
			return wall
		}
		return wall.Add(-off)
	default:
		return wall
	}
}

func (cal *Calendar) timezoneRegistry() *TimeZoneRegistry {
	if cal.tzReg == nil {
		cal.tzReg = newTimeZoneRegistry(cal, cal.resolver, cal.logger)
	}
	return cal.tzReg
}

func recurOf(p *IANAProperty) (*Recur, error) {
	if r, ok := p.TypedValue().(*Recur); ok {
		return r, nil
	}
	r, err := ParseRecur(p.Value)
	if err != nil {
		return nil, &ValueError{Property: p.IANAToken, Line: p.Line, Reason: err.Error()}
	}
	return r, nil
}

// FindByUID returns the first component of the given kind carrying the UID
// and no RECURRENCE-ID (the base component of a recurrence set).
func (cal *Calendar) FindByUID(kind ComponentType, uid string) Component {
	for _, comp := range cal.Components {
		if comp.ComponentType() != kind {
			continue
		}
		cb := componentBaseOf(comp)
		if cb == nil || cb.Id() != uid {
			continue
		}
		if cb.HasProperty(ComponentPropertyRecurrenceId) {
			continue
		}
		return comp
	}
	return nil
}

// Overrides returns the RECURRENCE-ID components that modify instances of
// the given base component, matched by kind and UID.
func (cal *Calendar) Overrides(kind ComponentType, uid string) []Component {
	var out []Component
	for _, comp := range cal.Components {
		if comp.ComponentType() != kind {
			continue
		}
		cb := componentBaseOf(comp)
		if cb == nil || !strings.EqualFold(cb.Id(), uid) {
			continue
		}
		if cb.HasProperty(ComponentPropertyRecurrenceId) {
			out = append(out, comp)
		}
	}
	return out
}
