package attendance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
)

// AssembleDay picks the punches that make up one employee-day. date is
// midnight of the day in the company location. For night shifts, out and
// break punches before cutoff on the following day belong to this day, and
// the same punches on this day belong to the previous one.
func AssembleDay(date time.Time, punches []attendance.RawPunch, nightshift bool, cutoff time.Duration) DayInput {
	loc := date.Location()
	next := date.AddDate(0, 0, 1)

	sorted := make([]attendance.RawPunch, len(punches))
	copy(sorted, punches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PunchedAt.Equal(sorted[j].PunchedAt) {
			return sorted[i].PunchedAt.Before(sorted[j].PunchedAt)
		}
		return sorted[i].State < sorted[j].State
	})

	in := DayInput{IsNightshift: nightshift}

	// belongsToday reports whether a punch on date is part of this day's shift
	// rather than the tail of the previous night.
	belongsToday := func(local time.Time) bool {
		if !sameDay(local, date) {
			return false
		}
		return !nightshift || clockOf(local) >= cutoff
	}
	fromNextMorning := func(local time.Time) bool {
		return nightshift && sameDay(local, next) && clockOf(local) < cutoff
	}

	for _, p := range sorted {
		local := p.PunchedAt.In(loc)
		if p.State == attendance.PunchIn && sameDay(local, date) {
			in.TimeIn = &local
			break
		}
	}

	var breaks []time.Time
	for _, p := range sorted {
		local := p.PunchedAt.In(loc)
		if in.TimeIn != nil && local.Before(*in.TimeIn) {
			continue
		}
		switch p.State {
		case attendance.PunchOut:
			if belongsToday(local) {
				in.TimeOut = &local
			} else if fromNextMorning(local) {
				in.NextDayTimeout = &local
			}
		case attendance.PunchBreak:
			if belongsToday(local) || fromNextMorning(local) {
				breaks = append(breaks, local)
			}
		}
	}

	if len(breaks) > 0 {
		in.BreakIn = &breaks[0]
	}
	if len(breaks) > 1 {
		in.BreakOut = &breaks[1]
	}
	return in
}

// Digest fingerprints everything a classification depends on, so an
// unchanged day can be detected without rewriting it.
func Digest(in DayInput, rules Rules) string {
	h := sha256.New()
	for _, t := range []*time.Time{in.TimeIn, in.TimeOut, in.BreakIn, in.BreakOut, in.NextDayTimeout} {
		writeTime(h, t)
	}
	expected := rules.ExpectedTimeIn
	if in.ExpectedTimeIn != nil {
		expected = *in.ExpectedTimeIn
	}
	fmt.Fprintf(h, "%t|%d|%d|%d|%t", in.IsNightshift, expected, rules.DefaultBreakMinutes, rules.StandardWorkMinutes, rules.CapWorkedAtStandard)
	return hex.EncodeToString(h.Sum(nil))
}

func writeTime(w io.Writer, t *time.Time) {
	if t == nil {
		io.WriteString(w, "-|")
		return
	}
	io.WriteString(w, t.UTC().Format(time.RFC3339Nano)+"|")
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
