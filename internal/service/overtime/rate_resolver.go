package overtime

import (
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/overtime"
	"github.com/shopspring/decimal"
)

type rateRow struct {
	Type      overtime.OvertimeType
	Base      decimal.Decimal
	NightDiff decimal.Decimal
}

// rateTable is ordered: reverse lookups return the first matching row.
var rateTable = []rateRow{
	{overtime.TypeRegularWeekday, rate("1.25"), rate("1.375")},
	{overtime.TypeRestDay, rate("1.30"), rate("1.43")},
	{overtime.TypeSpecialDay, rate("1.30"), rate("1.43")},
	{overtime.TypeRestDayOvertime, rate("1.69"), rate("1.859")},
	{overtime.TypeSpecialDayOvertime, rate("1.69"), rate("1.859")},
	{overtime.TypeScheduledRestDay, rate("1.50"), rate("1.65")},
	{overtime.TypeScheduledRestDayOvertime, rate("1.95"), rate("2.145")},
	{overtime.TypeRegularHoliday, rate("2.00"), rate("2.20")},
	{overtime.TypeRegularHolidayOvertime, rate("2.60"), rate("2.86")},
}

// dayTypes maps a day to its {first eight hours, beyond eight hours} types.
var dayTypes = map[overtime.DayType][2]overtime.OvertimeType{
	overtime.DayRegular:          {overtime.TypeRegularWeekday, overtime.TypeRegularWeekday},
	overtime.DayRestDay:          {overtime.TypeRestDay, overtime.TypeRestDayOvertime},
	overtime.DaySpecialDay:       {overtime.TypeSpecialDay, overtime.TypeSpecialDayOvertime},
	overtime.DayScheduledRestDay: {overtime.TypeScheduledRestDay, overtime.TypeScheduledRestDayOvertime},
	overtime.DayRegularHoliday:   {overtime.TypeRegularHoliday, overtime.TypeRegularHolidayOvertime},
}

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Resolution is the rate a request is paid at.
type Resolution struct {
	OvertimeType         overtime.OvertimeType
	RateMultiplier       decimal.Decimal
	HasNightDifferential bool
}

// Lookup returns the table multiplier for t. It reports false for "other"
// and unknown types.
func Lookup(t overtime.OvertimeType, nightDiff bool) (decimal.Decimal, bool) {
	for _, row := range rateTable {
		if row.Type != t {
			continue
		}
		if nightDiff {
			return row.NightDiff, true
		}
		return row.Base, true
	}
	return decimal.Decimal{}, false
}

// ResolveDay picks the type for a day classification and looks up its rate.
func ResolveDay(day overtime.DayType, beyondFirstEight, nightDiff bool) Resolution {
	types, ok := dayTypes[day]
	if !ok {
		return Resolution{OvertimeType: overtime.TypeOther, RateMultiplier: overtime.MinMultiplier, HasNightDifferential: nightDiff}
	}
	t := types[0]
	if beyondFirstEight {
		t = types[1]
	}
	m, _ := Lookup(t, nightDiff)
	return Resolution{OvertimeType: t, RateMultiplier: m, HasNightDifferential: nightDiff}
}

// ClassifyMultiplier maps an entered multiplier back to its type. Values not
// in the table become "other" and keep the entered multiplier.
func ClassifyMultiplier(m decimal.Decimal) Resolution {
	for _, row := range rateTable {
		if row.Base.Equal(m) {
			return Resolution{OvertimeType: row.Type, RateMultiplier: row.Base}
		}
		if row.NightDiff.Equal(m) {
			return Resolution{OvertimeType: row.Type, RateMultiplier: row.NightDiff, HasNightDifferential: true}
		}
	}
	return Resolution{OvertimeType: overtime.TypeOther, RateMultiplier: m}
}

const (
	nightStart  = 22 * time.Hour
	nightLength = 8 * time.Hour
)

// NightDifferentialHours is the part of [start, end) inside 22:00-06:00 in
// start's location, rounded to 2 decimals.
func NightDifferentialHours(start, end time.Time) decimal.Decimal {
	if !end.After(start) {
		return decimal.Zero
	}
	y, m, d := start.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, start.Location())

	var overlap time.Duration
	for offset := -1; offset <= 1; offset++ {
		from := midnight.AddDate(0, 0, offset).Add(nightStart)
		to := from.Add(nightLength)
		lo, hi := start, end
		if from.After(lo) {
			lo = from
		}
		if to.Before(hi) {
			hi = to
		}
		if hi.After(lo) {
			overlap += hi.Sub(lo)
		}
	}
	return decimal.NewFromInt(int64(overlap / time.Minute)).Div(decimal.NewFromInt(60)).Round(2)
}
