package creatives

import (
	"fmt"
	"time"
	_ "time/tzdata" // account timezones must resolve on minimal images
)

// DefaultTimezone is used when an account reports no timezone or an unknown one.
const DefaultTimezone = "America/New_York"

// Symbolic date ranges accepted by the creatives endpoint.
const (
	RangeLast7Days   = "last_7d"
	RangeLast30Days  = "last_30d"
	RangeLast90Days  = "last_90d"
	RangeLast12Month = "last_12m"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive span of account-local calendar days.
type DateRange struct {
	Since string
	Until string
}

// LoadLocation resolves an IANA timezone name, falling back to
// DefaultTimezone.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NormalizeRange maps unknown or empty ranges to last_30d.
func NormalizeRange(dateRange string) string {
	switch dateRange {
	case RangeLast7Days, RangeLast30Days, RangeLast90Days, RangeLast12Month:
		return dateRange
	default:
		return RangeLast30Days
	}
}

// ComputeDateRange translates a symbolic range into calendar dates in loc.
// Every range ends yesterday so only complete days are reported. last_Nd
// covers N days; last_12m covers the twelve whole months before the current
// one.
func ComputeDateRange(dateRange string, loc *time.Location, now time.Time) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)

	var days int
	switch NormalizeRange(dateRange) {
	case RangeLast7Days:
		days = 7
	case RangeLast90Days:
		days = 90
	case RangeLast12Month:
		firstOfMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return DateRange{
			Since: firstOfMonth.AddDate(0, -12, 0).Format(dateLayout),
			Until: firstOfMonth.AddDate(0, 0, -1).Format(dateLayout),
		}
	default:
		days = 30
	}
	return DateRange{
		Since: yesterday.AddDate(0, 0, -(days - 1)).Format(dateLayout),
		Until: yesterday.Format(dateLayout),
	}
}

func (d DateRange) String() string {
	return fmt.Sprintf("%s..%s", d.Since, d.Until)
}
