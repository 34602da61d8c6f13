package utils

import (
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/dustin/go-humanize"
)

var displayLoc atomic.Pointer[time.Location]

func init() {
	displayLoc.Store(time.UTC)
}

// SetDisplayLocation switches the zone timestamps are rendered in.
// An unknown zone leaves the current one in place.
func SetDisplayLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	displayLoc.Store(loc)
	return nil
}

// GetLocation returns the display *time.Location
func GetLocation() *time.Location {
	return displayLoc.Load()
}

// FormatDate renders t as a calendar date in the display zone
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(GetLocation()).Format("Jan 2, 2006")
}

// FormatDateTime renders t with minutes in the display zone
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(GetLocation()).Format("Jan 2, 2006 3:04 PM")
}

// RelativeTime renders t as "3 minutes ago"
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
