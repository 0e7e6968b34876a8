package ledger

// =============================================================================
// PERIOD - The time boundary every report is computed over
// =============================================================================

// Period is an inclusive [From, To] date range. Reports are always computed
// for a period, never at a bare point in time.
type Period struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Contains returns true if the date is within [From, To].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.From) && d.BeforeOrEqual(p.To)
}

// Days returns every day in the period, oldest first. Empty when From > To.
func (p Period) Days() []Date {
	var days []Date
	for cur := p.From; cur.BeforeOrEqual(p.To); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.From.String() + ", " + p.To.String() + "]"
}

// =============================================================================
// PERIOD TOKENS - Named shorthands resolved against "today"
// =============================================================================

type PeriodToken string

const (
	PeriodToday PeriodToken = "today" // from = to = today
	PeriodWeek  PeriodToken = "week"  // today - 7d .. today
	PeriodMonth PeriodToken = "month" // first of current month .. today

	// The source system disagreed with itself about what a "quarter" is, so
	// both readings are first-class tokens and the caller must pick.
	// PeriodQuarter stays as an alias for the rolling reading, which is what
	// most reports used.
	PeriodQuarter         PeriodToken = "quarter"          // alias for rolling_quarter
	PeriodRollingQuarter  PeriodToken = "rolling_quarter"  // today - 3 months .. today
	PeriodCalendarQuarter PeriodToken = "calendar_quarter" // Jan/Apr/Jul/Oct 1 .. today

	PeriodYear   PeriodToken = "year"   // Jan 1 of current year .. today
	PeriodAll    PeriodToken = "all"    // epoch floor .. today
	PeriodCustom PeriodToken = "custom" // explicit bounds, passed through verbatim
)

// epochFloor bounds the "all" token. Records cannot predate the system.
var epochFloor = NewDate(2000, 1, 1)

func (t PeriodToken) Valid() bool {
	switch t {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodQuarter,
		PeriodRollingQuarter, PeriodCalendarQuarter, PeriodYear, PeriodAll, PeriodCustom:
		return true
	}
	return false
}

// PeriodTokens lists every recognized token, for API discovery.
func PeriodTokens() []PeriodToken {
	return []PeriodToken{
		PeriodToday, PeriodWeek, PeriodMonth, PeriodQuarter,
		PeriodRollingQuarter, PeriodCalendarQuarter, PeriodYear, PeriodAll, PeriodCustom,
	}
}

// ResolvePeriod maps a token (plus optional explicit bounds for "custom")
// to a concrete period anchored at today.
//
// For "custom" the explicit bounds are passed through verbatim: a range with
// from > to is NOT rejected here. Downstream fetches over an inverted range
// simply return no rows, which aggregates to a zero-valued report. Callers
// that want to reject instead can check Period.From/To themselves.
func ResolvePeriod(token PeriodToken, explicitFrom, explicitTo Date, today Date) (Period, error) {
	switch token {
	case PeriodToday:
		return Period{From: today, To: today}, nil
	case PeriodWeek:
		return Period{From: today.AddDays(-7), To: today}, nil
	case PeriodMonth:
		return Period{From: StartOfMonth(today), To: today}, nil
	case PeriodQuarter, PeriodRollingQuarter:
		return Period{From: today.AddMonths(-3), To: today}, nil
	case PeriodCalendarQuarter:
		return Period{From: StartOfQuarter(today), To: today}, nil
	case PeriodYear:
		return Period{From: StartOfYear(today.Year()), To: today}, nil
	case PeriodAll:
		return Period{From: epochFloor, To: today}, nil
	case PeriodCustom:
		if explicitFrom.IsZero() || explicitTo.IsZero() {
			return Period{}, ErrInvalidDateRange
		}
		return Period{From: explicitFrom, To: explicitTo}, nil
	default:
		return Period{}, ErrInvalidPeriodToken
	}
}
