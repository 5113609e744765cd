package ics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// TimeZoneResolver lets the host supply a time.Location for TZIDs the
// document does not declare. Returning nil means unresolved.
type TimeZoneResolver func(tzid string) *time.Location

// tzObservance is one STANDARD or DAYLIGHT block of a VTIMEZONE: an onset
// anchor plus optional recurrence, and the offset that applies from each
// onset on.
type tzObservance struct {
	standard   bool
	onset      time.Time
	offsetFrom time.Duration
	offsetTo   time.Duration
	rrule      *Recur
	rdates     []time.Time
}

// tzTransition is one materialized observance onset: from this wall-clock
// instant the offset applies, until the next transition.
type tzTransition struct {
	onset  time.Time
	offset time.Duration
}

// tzCacheSize bounds the per-(TZID, year horizon) expansion cache. Real
// documents carry a handful of zones; the cache exists so repeated
// evaluations do not re-run the recurrence engine per date-time.
const tzCacheSize = 64

// TimeZoneRegistry resolves TZID references against the owning calendar's
// VTIMEZONE components, falling back to a host resolver when provided.
// Lookups are pure; the LRU cache only memoizes observance expansion and is
// safe to compute redundantly.
type TimeZoneRegistry struct {
	defs     map[string][]tzObservance
	cache    *lru.Cache[string, []tzTransition]
	resolver TimeZoneResolver
	logger   *zap.Logger
}

func newTimeZoneRegistry(cal *Calendar, resolver TimeZoneResolver, logger *zap.Logger) *TimeZoneRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, []tzTransition](tzCacheSize)
	reg := &TimeZoneRegistry{
		defs:     map[string][]tzObservance{},
		cache:    cache,
		resolver: resolver,
		logger:   logger,
	}
	if cal != nil {
		for _, tz := range cal.Timezones() {
			id := tz.TzID()
			if id == "" {
				continue
			}
			reg.defs[id] = observancesOf(tz)
		}
	}
	return reg
}

// observancesOf extracts the STANDARD/DAYLIGHT blocks of a VTIMEZONE.
// Blocks missing DTSTART or TZOFFSETTO are skipped.
func observancesOf(tz *VTimezone) []tzObservance {
	var out []tzObservance
	for _, sub := range tz.SubComponents() {
		var cb *ComponentBase
		standard := false
		switch c := sub.(type) {
		case *Standard:
			cb = &c.ComponentBase
			standard = true
		case *Daylight:
			cb = &c.ComponentBase
		default:
			continue
		}
		ob := tzObservance{standard: standard}
		dt, err := cb.GetStartDateTime()
		if err != nil {
			continue
		}
		ob.onset = dt.wall()
		off, ok := offsetProp(cb, ComponentPropertyTzoffsetto)
		if !ok {
			continue
		}
		ob.offsetTo = off
		if from, ok := offsetProp(cb, ComponentPropertyTzoffsetfrom); ok {
			ob.offsetFrom = from
		}
		if p := cb.GetProperty(ComponentPropertyRrule); p != nil {
			if r, ok := p.TypedValue().(*Recur); ok {
				ob.rrule = r
			} else if r, err := ParseRecur(p.Value); err == nil {
				ob.rrule = r
			}
		}
		for _, p := range cb.GetProperties(ComponentPropertyRdate) {
			for _, v := range p.ParsedValues {
				if dtv, ok := v.(DateTime); ok {
					ob.rdates = append(ob.rdates, dtv.wall())
				}
			}
		}
		out = append(out, ob)
	}
	return out
}

func offsetProp(cb *ComponentBase, prop ComponentProperty) (time.Duration, bool) {
	p := cb.GetProperty(prop)
	if p == nil {
		return 0, false
	}
	if o, ok := p.TypedValue().(UTCOffset); ok {
		return o.TimeDuration(), true
	}
	o, err := ParseUTCOffsetValue(p.Value)
	if err != nil {
		return 0, false
	}
	return o.TimeDuration(), true
}

// Declared reports whether the document carries a VTIMEZONE for the TZID.
func (reg *TimeZoneRegistry) Declared(tzid string) bool {
	_, ok := reg.defs[tzid]
	return ok
}

// OffsetAt returns the UTC offset in effect for the TZID at the given
// wall-clock instant: the TZOFFSETTO of the observance with the most recent
// onset at or before the instant. An unresolved TZID returns a ZoneError
// and a zero offset; the caller treats the value as floating.
func (reg *TimeZoneRegistry) OffsetAt(tzid string, wall time.Time) (time.Duration, *ZoneError) {
	obs, ok := reg.defs[tzid]
	if !ok || len(obs) == 0 {
		if reg.resolver != nil {
			if loc := reg.resolver(tzid); loc != nil {
				t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
				_, off := t.Zone()
				return time.Duration(off) * time.Second, nil
			}
		}
		zerr := &ZoneError{TZID: tzid}
		reg.logger.Warn("unresolved TZID", zap.String("tzid", tzid))
		return 0, zerr
	}
	trans := reg.transitionsThrough(tzid, obs, wall.Year()+1)
	if len(trans) == 0 {
		zerr := &ZoneError{TZID: tzid}
		reg.logger.Warn("timezone has no usable observances", zap.String("tzid", tzid))
		return 0, zerr
	}
	i := sort.Search(len(trans), func(i int) bool { return trans[i].onset.After(wall) })
	if i == 0 {
		// before the first recorded onset the prior offset applies
		return obsOffsetFromFor(obs, trans[0].onset), nil
	}
	return trans[i-1].offset, nil
}

func obsOffsetFromFor(obs []tzObservance, onset time.Time) time.Duration {
	for _, ob := range obs {
		if ob.onset.Equal(onset) {
			return ob.offsetFrom
		}
	}
	return obs[0].offsetFrom
}

// transitionsThrough materializes every observance onset up to the end of
// the horizon year, memoized per (tzid, horizon) in the LRU cache. The
// expansion itself reuses the recurrence engine.
func (reg *TimeZoneRegistry) transitionsThrough(tzid string, obs []tzObservance, year int) []tzTransition {
	key := tzid + "|" + strconv.Itoa(year)
	if cached, ok := reg.cache.Get(key); ok {
		return cached
	}
	end := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)
	var trans []tzTransition
	for _, ob := range obs {
		onsets := []time.Time{ob.onset}
		if ob.rrule != nil {
			expanded, err := ob.rrule.instancesBetween(ob.onset, ob.onset, end)
			if err == nil {
				onsets = append(onsets, expanded...)
			} else {
				reg.logger.Warn("timezone observance rule failed to expand",
					zap.String("tzid", tzid), zap.Error(err))
			}
		}
		onsets = append(onsets, ob.rdates...)
		for _, o := range onsets {
			if o.After(end) {
				continue
			}
			trans = append(trans, tzTransition{onset: o, offset: ob.offsetTo})
		}
	}
	sort.SliceStable(trans, func(i, j int) bool { return trans[i].onset.Before(trans[j].onset) })
	// dedupe identical onsets, keeping the later-listed observance
	out := trans[:0]
	for i, t := range trans {
		if i > 0 && t.onset.Equal(out[len(out)-1].onset) {
			out[len(out)-1] = t
			continue
		}
		out = append(out, t)
	}
	reg.cache.Add(key, out)
	return out
}

// tzidOf normalizes a TZID parameter value for registry lookup; some
// producers prefix a slash for globally unique ids.
func tzidOf(raw string) string {
	return strings.TrimPrefix(raw, "/")
}
