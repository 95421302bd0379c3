package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is the timezone the site lists its ideas in.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// Now is the current time on the site, the listing's date-jump control
// works in the site's days, not the machine's.
func Now() time.Time {
	return time.Now().In(Location)
}

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Today is the start of the current day on the site.
func Today() time.Time {
	return StartOfDay(Now())
}
