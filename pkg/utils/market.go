package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NairobiLocation is the timezone of the Nairobi Securities Exchange.
var NairobiLocation *time.Location

func init() {
	var err error
	NairobiLocation, err = time.LoadLocation("Africa/Nairobi")
	if err != nil {
		// Fallback to UTC+3
		NairobiLocation = time.FixedZone("EAT", 3*60*60)
	}
}

// DateLayout is the ISO calendar-date layout.
const DateLayout = "2006-01-02"

// TodayKE returns the Nairobi calendar date of t as YYYY-MM-DD.
func TodayKE(t time.Time) string {
	return t.In(NairobiLocation).Format(DateLayout)
}

// IsWeekendKE reports whether t falls on a Saturday or Sunday in Nairobi.
func IsWeekendKE(t time.Time) bool {
	wd := t.In(NairobiLocation).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseNSEDate converts the exchange's "D/M/YYYY" date format to YYYY-MM-DD.
func ParseNSEDate(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid NSE date %q", s)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", fmt.Errorf("invalid NSE date %q", s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, NairobiLocation)
	if t.Day() != day || int(t.Month()) != month {
		return "", fmt.Errorf("invalid NSE date %q", s)
	}
	return t.Format(DateLayout), nil
}
