package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"groupride/internal/domain"
)

// DateTimeLayout is the wall-clock format rides are rendered with.
const DateTimeLayout = "2006-01-02T15:04:05"

// DateLayout is the format of recurrence end dates.
const DateLayout = "2006-01-02"

var dateTimeLayouts = []string{time.RFC3339, DateTimeLayout, "2006-01-02T15:04"}

var dateLayouts = append([]string{DateLayout}, dateTimeLayouts...)

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxCommentLength     = 2000
	maxNameLength        = 100
	maxBioLength         = 1000
)

// ParseWallClock parses s with the first matching layout and keeps only the
// wall-clock reading, dropping any zone information.
func ParseWallClock(s string) (time.Time, error) {
	return parseWith(s, dateTimeLayouts)
}

// ParseDate parses a recurrence end date. Bare dates and full date-times are accepted.
func ParseDate(s string) (time.Time, error) {
	return parseWith(s, dateLayouts)
}

func parseWith(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateDetails checks the descriptive fields every ride carries.
func validateDetails(v *validator, d domain.RideDetails) {
	title := strings.TrimSpace(d.Title)
	v.check(title != "", "title is required")
	v.check(utf8.RuneCountInString(title) <= maxTitleLength, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	v.check(d.Distance > 0, "distance must be greater than 0")
	v.check(d.Difficulty.Valid(), "difficulty must be one of E, D, C, B, A, AA")
	v.check(d.MaxRiders > 0, "maxRiders must be greater than 0")
	v.check(strings.TrimSpace(d.Address) != "", "address is required")
	v.check(isValidLatitude(d.Latitude), "latitude must be between -90 and 90")
	v.check(isValidLongitude(d.Longitude), "longitude must be between -180 and 180")
	v.check(d.RideType.Valid(), "rideType must be one of road, gravel, mtb, social, training")
	v.check(d.Pace > 0, "pace must be greater than 0")
	v.check(d.Terrain.Valid(), "terrain must be one of flat, rolling, hilly, mountainous")
	if d.RouteURL != "" {
		v.check(isHTTPURL(d.RouteURL), "route_url must be an absolute http or https URL")
	}
	v.check(utf8.RuneCountInString(d.Description) <= maxDescriptionLength,
		fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
}

// validateRecurrence checks the recurrence fields of a create request and
// returns the parsed rule. start is zero when the dateTime itself was invalid.
func validateRecurrence(v *validator, req CreateRideRequest, start time.Time) domain.RecurrenceRule {
	rule := domain.RecurrenceRule{
		Type: domain.RecurrenceType(req.RecurringType),
		Time: req.RecurringTime,
	}

	switch {
	case req.RecurringType == "":
		v.add("recurring_type is required for recurring rides")
	case !rule.Type.Valid():
		v.add("recurring_type must be weekly or monthly")
	}

	if req.RecurringDay == nil {
		v.add("recurring_day is required for recurring rides")
	} else {
		rule.Day = *req.RecurringDay
		switch rule.Type {
		case domain.RecurrenceWeekly:
			v.check(rule.Day >= 0 && rule.Day <= 6, "recurring_day must be between 0 and 6 for weekly rides")
		case domain.RecurrenceMonthly:
			v.check(rule.Day >= 1 && rule.Day <= 31, "recurring_day must be between 1 and 31 for monthly rides")
		}
	}

	switch {
	case req.RecurringTime == "":
		v.add("recurring_time is required for recurring rides")
	case !timeOfDayPattern.MatchString(req.RecurringTime):
		v.add("recurring_time must use the HH:mm format")
	}

	if req.RecurringEndDate == "" {
		v.add("recurring_end_date is required for recurring rides")
		return rule
	}

	end, err := ParseDate(req.RecurringEndDate)
	if err != nil {
		v.add("recurring_end_date must be a date (YYYY-MM-DD)")
		return rule
	}
	rule.EndDate = end

	if start.IsZero() || !rule.Type.Valid() {
		return rule
	}

	if calendarDay(end).Before(calendarDay(start)) {
		v.add("recurring_end_date must be on or after dateTime")
		return rule
	}

	if n := len(Occurrences(start, rule)); n > MaxSeriesLength {
		v.add(fmt.Sprintf("a series may contain at most %d rides", MaxSeriesLength))
	}

	return rule
}
