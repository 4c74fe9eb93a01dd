package d0010

import (
	"fmt"
	"time"
	_ "time/tzdata" // Embed the zone database so UK time resolves on minimal hosts.
)

// DefaultTimezone is the civil timezone reading timestamps are expressed in.
const DefaultTimezone = "Europe/London"

var ukLocation = mustLoadLocation(DefaultTimezone)

// UKLocation returns the Europe/London location.
func UKLocation() *time.Location {
	return ukLocation
}

// LoadLocation resolves a timezone name, defaulting to Europe/London.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return ukLocation, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load timezone %q: %v", name, err))
	}
	return loc
}

// ResolveWallClock interprets the civil fields of wall (year through second,
// its own zone ignored) as local time in loc.
//
// Around DST transitions a wall clock can match two instants (autumn) or none
// (spring). Both cases resolve with the smaller UTC offset of the two in
// effect around the transition, i.e. standard time for the UK: 01:30 on the
// autumn change is 01:30 GMT, and 01:30 on the spring change is 01:30 GMT,
// which reads as 02:30 BST.
func ResolveWallClock(wall time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = ukLocation
	}

	naive := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)

	_, offBefore := naive.Add(-12 * time.Hour).In(loc).Zone()
	_, offAfter := naive.Add(12 * time.Hour).In(loc).Zone()

	offsets := []int{offBefore}
	if offAfter != offBefore {
		offsets = append(offsets, offAfter)
	}

	var matches []time.Time
	for _, off := range offsets {
		t := naive.Add(-time.Duration(off) * time.Second).In(loc)
		if sameWallClock(t, naive) {
			matches = append(matches, t)
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}

	minOff := offBefore
	if offAfter < minOff {
		minOff = offAfter
	}
	return naive.Add(-time.Duration(minOff) * time.Second).In(loc)
}

func sameWallClock(t, naive time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := naive.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 &&
		t.Hour() == naive.Hour() && t.Minute() == naive.Minute() && t.Second() == naive.Second()
}
