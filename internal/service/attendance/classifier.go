package attendance

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

// Rules are the company-wide constants of the day computation.
type Rules struct {
	ExpectedTimeIn      time.Duration // offset from midnight
	DefaultBreakMinutes int
	StandardWorkMinutes int
	// CapWorkedAtStandard caps the in-to-out span at the standard day before
	// the break is deducted. Off by default.
	CapWorkedAtStandard bool
}

func DefaultRules() Rules {
	return Rules{
		ExpectedTimeIn:      8 * time.Hour,
		DefaultBreakMinutes: 60,
		StandardWorkMinutes: 480,
	}
}

// DayInput is the assembled punch set of one employee-day.
type DayInput struct {
	TimeIn         *time.Time
	TimeOut        *time.Time
	BreakIn        *time.Time
	BreakOut       *time.Time
	NextDayTimeout *time.Time
	IsNightshift   bool
	// ExpectedTimeIn overrides Rules.ExpectedTimeIn for this employee.
	ExpectedTimeIn *time.Duration
}

// DayResult is the classified day. Unprocessable days carry zero hours and
// the reason in Anomaly.
type DayResult struct {
	HoursWorked      decimal.Decimal
	LateMinutes      int
	UndertimeMinutes int
	BreakMinutes     int
	NetWorkedMinutes int
	IsNightshift     bool
	IsProcessable    bool
	Anomaly          attendance.Anomaly
}

// Classify computes worked hours, lateness and undertime from clock-of-day
// values. It is pure: the same input always yields the same result.
func Classify(in DayInput, rules Rules) DayResult {
	nightshift := in.IsNightshift
	result := DayResult{
		HoursWorked:  decimal.Zero,
		IsNightshift: nightshift,
	}

	// Only night shifts read the next-day time out.
	out := in.TimeOut
	if nightshift && in.NextDayTimeout != nil {
		out = in.NextDayTimeout
	}

	switch {
	case in.TimeIn == nil:
		result.Anomaly = attendance.AnomalyMissingTimeIn
		return result
	case out == nil:
		result.Anomaly = attendance.AnomalyMissingTimeOut
		return result
	}

	inClock := clockOf(*in.TimeIn)
	outClock := clockOf(*out)
	if outClock < inClock {
		if !nightshift {
			result.Anomaly = attendance.AnomalyTimeOutBeforeTimeIn
			return result
		}
		outClock += 24 * time.Hour
	}

	expected := rules.ExpectedTimeIn
	if in.ExpectedTimeIn != nil {
		expected = *in.ExpectedTimeIn
	}
	late := 0
	if inClock > expected {
		late = minutes(inClock - expected)
	}

	breakMinutes := rules.DefaultBreakMinutes
	if in.BreakIn != nil && in.BreakOut != nil {
		span := clockOf(*in.BreakOut) - clockOf(*in.BreakIn)
		if span < 0 && nightshift {
			span += 24 * time.Hour
		}
		if span > 0 {
			breakMinutes = minutes(span)
		}
	}

	total := minutes(outClock - inClock)
	if rules.CapWorkedAtStandard && total > rules.StandardWorkMinutes {
		total = rules.StandardWorkMinutes
	}
	net := max(0, total-breakMinutes)

	result.IsProcessable = true
	result.LateMinutes = late
	result.BreakMinutes = breakMinutes
	result.NetWorkedMinutes = net
	result.UndertimeMinutes = max(0, rules.StandardWorkMinutes-net)
	result.HoursWorked = decimal.NewFromInt(int64(net)).Div(decimal.NewFromInt(60)).Round(2)
	return result
}

// clockOf returns the wall-clock offset from midnight of t in its own location.
func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// minutes floors d to whole minutes.
func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
