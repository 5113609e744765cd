package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newYorkTimezone = `
BEGIN:VTIMEZONE
TZID:America/New_York
BEGIN:DAYLIGHT
DTSTART:19700405T020000
TZOFFSETFROM:-0500
TZOFFSETTO:-0400
TZNAME:EDT
RRULE:FREQ=YEARLY;BYMONTH=4;BYDAY=1SU
END:DAYLIGHT
BEGIN:STANDARD
DTSTART:19701025T020000
TZOFFSETFROM:-0400
TZOFFSETTO:-0500
TZNAME:EST
RRULE:FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU
END:STANDARD
END:VTIMEZONE
`

func TestTimezoneRegistryOffsets(t *testing.T) {
	cal := parseFixture(t, newYorkTimezone)
	reg := cal.timezoneRegistry()
	require.True(t, reg.Declared("America/New_York"))

	// winter wall clock: standard offset
	off, zerr := reg.OffsetAt("America/New_York", wall(2006, 1, 15, 12, 0, 0))
	require.Nil(t, zerr)
	assert.Equal(t, -5*time.Hour, off)

	// summer wall clock: daylight offset
	off, zerr = reg.OffsetAt("America/New_York", wall(2006, 7, 15, 12, 0, 0))
	require.Nil(t, zerr)
	assert.Equal(t, -4*time.Hour, off)

	// the 2006 transition happens at 02:00 local on April 2
	off, _ = reg.OffsetAt("America/New_York", wall(2006, 4, 2, 1, 59, 0))
	assert.Equal(t, -5*time.Hour, off)
	off, _ = reg.OffsetAt("America/New_York", wall(2006, 4, 2, 2, 0, 0))
	assert.Equal(t, -4*time.Hour, off)

	// repeated lookups hit the expansion cache and stay stable
	again, _ := reg.OffsetAt("America/New_York", wall(2006, 4, 2, 2, 0, 0))
	assert.Equal(t, off, again)
}

func TestEvaluateAcrossSpringForward(t *testing.T) {
	cal := parseFixture(t, newYorkTimezone+`
BEGIN:VEVENT
UID:dst@example.com
DTSTART;TZID=America/New_York:20060401T023000
RRULE:FREQ=DAILY;COUNT=3
END:VEVENT
`)
	occ, err := cal.Evaluate(wall(2006, 3, 30, 0, 0, 0), wall(2006, 4, 5, 0, 0, 0))
	require.NoError(t, err)
	require.Len(t, occ, 3)

	// 02:30 local is 07:30Z before the transition and 06:30Z from the DST
	// day on; the instance is an hour earlier in UTC, not duplicated
	assert.Equal(t, wall(2006, 4, 1, 7, 30, 0), occ[0].Start)
	assert.Equal(t, wall(2006, 4, 2, 6, 30, 0), occ[1].Start)
	assert.Equal(t, wall(2006, 4, 3, 6, 30, 0), occ[2].Start)

	seen := map[time.Time]int{}
	for _, o := range occ {
		seen[o.Start]++
	}
	for s, n := range seen {
		assert.Equal(t, 1, n, "instant %v duplicated", s)
	}

	// the wall-clock period keeps the zone reference
	assert.Equal(t, ZoneTZID, occ[0].Period.Start.Zone)
	assert.Equal(t, "America/New_York", occ[0].Period.Start.TZID)
}

func TestUnresolvedTzidIsNotFatal(t *testing.T) {
	cal := parseFixture(t, `
BEGIN:VEVENT
UID:nozone@example.com
DTSTART;TZID=Mars/Olympus:20210601T090000
END:VEVENT
`)
	occ, err := cal.Evaluate(wall(2021, 6, 1, 0, 0, 0), wall(2021, 7, 1, 0, 0, 0))
	require.NoError(t, err, "unresolved TZID is a diagnostic, not an error")
	require.Len(t, occ, 1)
	// computed as floating: the wall clock is taken as-is
	assert.Equal(t, wall(2021, 6, 1, 9, 0, 0), occ[0].Start)
	// the name is retained for output
	assert.Contains(t, cal.Serialize(), "TZID=Mars/Olympus")
}

func TestTimeZoneResolverFallback(t *testing.T) {
	resolver := TimeZoneResolver(func(tzid string) *time.Location {
		if tzid == "Custom/Zone" {
			return time.FixedZone("Custom/Zone", 2*60*60)
		}
		return nil
	})
	cal := parseFixture(t, `
BEGIN:VEVENT
UID:resolver@example.com
DTSTART;TZID=Custom/Zone:20210601T090000
END:VEVENT
`, resolver)
	occ, err := cal.Evaluate(wall(2021, 6, 1, 0, 0, 0), wall(2021, 7, 1, 0, 0, 0))
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, wall(2021, 6, 1, 7, 0, 0), occ[0].Start, "+0200 resolved via the host resolver")
}

func TestTimezoneByID(t *testing.T) {
	cal := parseFixture(t, newYorkTimezone)
	tz := cal.TimezoneByID("America/New_York")
	require.NotNil(t, tz)
	assert.Equal(t, "America/New_York", tz.TzID())
	assert.Nil(t, cal.TimezoneByID("Europe/Paris"))
}

func TestObservanceRdate(t *testing.T) {
	cal := parseFixture(t, `
BEGIN:VTIMEZONE
TZID:Test/Simple
BEGIN:STANDARD
DTSTART:20000101T000000
TZOFFSETFROM:+0100
TZOFFSETTO:+0100
END:STANDARD
BEGIN:DAYLIGHT
DTSTART:20000601T000000
TZOFFSETFROM:+0100
TZOFFSETTO:+0200
RDATE:20010601T000000
END:DAYLIGHT
END:VTIMEZONE
`)
	reg := cal.timezoneRegistry()
	off, zerr := reg.OffsetAt("Test/Simple", wall(2001, 6, 15, 0, 0, 0))
	require.Nil(t, zerr)
	assert.Equal(t, 2*time.Hour, off, "RDATE onset observed")
}
