package service

import (
	"time"

	"groupride/internal/domain"
)

// MaxSeriesLength caps the number of rides one recurrence request may create.
const MaxSeriesLength = 366

// Occurrences returns the start times of every ride in a series beginning at
// start. Instance k is start plus k weeks (weekly) or k calendar months
// (monthly, clamped to the last day of a shorter month). Generation stops at
// the first instance whose calendar day is not before the end date's day; the
// first instance is always returned. At most MaxSeriesLength+1 times are
// produced so callers can detect an oversized series.
func Occurrences(start time.Time, rule domain.RecurrenceRule) []time.Time {
	end := calendarDay(rule.EndDate)

	times := []time.Time{start}
	for k := 1; len(times) <= MaxSeriesLength; k++ {
		next := advance(start, rule.Type, k)
		if !calendarDay(next).Before(end) {
			break
		}
		times = append(times, next)
	}
	return times
}

// advance returns the k-th step after start.
func advance(start time.Time, typ domain.RecurrenceType, k int) time.Time {
	if typ == domain.RecurrenceMonthly {
		return addMonthsClamped(start, k)
	}
	return start.AddDate(0, 0, 7*k)
}

// addMonthsClamped moves t forward by n calendar months keeping its day of
// month, or the last day of the target month when that month is shorter.
func addMonthsClamped(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// calendarDay truncates t to midnight of its own wall-clock date.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ExpandSeries builds every ride of a series from template. The first ride
// takes seriesID as both its ID and SeriesID; newID supplies the rest.
func ExpandSeries(template *domain.Ride, rule domain.RecurrenceRule, seriesID string, newID func() string) []*domain.Ride {
	times := Occurrences(template.DateTime, rule)

	rides := make([]*domain.Ride, 0, len(times))
	for i, at := range times {
		id := seriesID
		if i > 0 {
			id = newID()
		}

		rides = append(rides, &domain.Ride{
			ID:               id,
			OwnerID:          template.OwnerID,
			RideDetails:      template.RideDetails,
			DateTime:         at,
			Status:           domain.RideStatusActive,
			IsRecurring:      true,
			RecurringType:    rule.Type,
			RecurringDay:     rule.Day,
			RecurringTime:    rule.Time,
			RecurringEndDate: rule.EndDate,
			SeriesID:         seriesID,
			CreatedAt:        template.CreatedAt,
			UpdatedAt:        template.CreatedAt,
		})
	}
	return rides
}
