// Package sla computes stage aging and the GREEN/YELLOW/RED traffic light.
// Every function here is pure: "now" is always an argument.
package sla

import (
	"fmt"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// Calendar decides which hours count as business hours. Weekdays and
// holiday dates are evaluated in Location.
type Calendar struct {
	Location *time.Location
	holidays map[string]struct{}
}

// NewCalendar builds a calendar from ISO dates (YYYY-MM-DD). A nil location
// means UTC.
func NewCalendar(loc *time.Location, holidays []string) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[strings.TrimSpace(h)] = struct{}{}
	}
	return Calendar{Location: loc, holidays: set}
}

// LoadLocation resolves an IANA zone name, falling back to UTC when the
// zone database does not know it.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[t.In(c.loc()).Format(isoDate)]
	return ok
}

// IsBusinessDay is Monday to Friday and not a holiday.
func (c Calendar) IsBusinessDay(t time.Time) bool {
	switch t.In(c.loc()).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(t)
}

// BusinessHoursBetween steps from start to end one hour at a time and
// counts the steps that begin on a business day. A partial last hour
// counts as a full one.
func BusinessHoursBetween(start, end time.Time, cal Calendar) int {
	n := 0
	for cur := start; cur.Before(end); cur = cur.Add(time.Hour) {
		if cal.IsBusinessDay(cur) {
			n++
		}
	}
	return n
}

// AddBusinessHours returns the instant reached after hours business hours
// have passed from start.
func AddBusinessHours(start time.Time, hours int, cal Calendar) time.Time {
	cur := start
	for added := 0; added < hours; {
		cur = cur.Add(time.Hour)
		if cal.IsBusinessDay(cur) {
			added++
		}
	}
	return cur
}

// FormatDuration renders whole hours as "5h" or "2d 3h".
func FormatDuration(hours int) string {
	sign := ""
	if hours < 0 {
		sign = "-"
		hours = -hours
	}
	if hours < 24 {
		return fmt.Sprintf("%s%dh", sign, hours)
	}
	return fmt.Sprintf("%s%dd %dh", sign, hours/24, hours%24)
}

// MatchWildcard is the search box rule: "ABC*" matches values starting
// with ABC, anything else matches as a substring. Case insensitive; an
// empty pattern or "*" matches everything.
func MatchWildcard(value, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == "*" {
		return true
	}
	v := strings.ToUpper(value)
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(v, strings.ToUpper(strings.TrimSuffix(pattern, "*")))
	}
	return strings.Contains(v, strings.ToUpper(strings.ReplaceAll(pattern, "*", "")))
}
