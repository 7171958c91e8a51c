package pipeline

import (
	"time"
)

// moscow is the reference zone of the schedule: jobs fire and windows are
// computed in MSK regardless of the host timezone.
var moscow = loadMoscow()

func loadMoscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// Moscow returns the schedule's reference location.
func Moscow() *time.Location {
	return moscow
}

// HourlyWindow returns the ingestion window of the hourly job: the last 24
// hours, excluding the final minute so entries published mid-crawl land in
// the next cycle.
func HourlyWindow(now time.Time) (from, to time.Time) {
	now = now.In(moscow)
	return now.Add(-24 * time.Hour), now.Add(-time.Minute)
}

// DailyWindow returns the digest window: from yesterday 09:01 MSK to today
// 09:00 MSK. Together with the 09:00 schedule the windows tile the day with
// no overlap.
func DailyWindow(now time.Time) (from, to time.Time) {
	now = now.In(moscow)
	y := now.AddDate(0, 0, -1)
	from = time.Date(y.Year(), y.Month(), y.Day(), 9, 1, 0, 0, moscow)
	to = time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, moscow)
	return from, to
}
