package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func punch(day, clock string, state attendance.PunchState) attendance.RawPunch {
	return attendance.RawPunch{EmployeeID: "emp-1", DeviceID: "dev-1", PunchedAt: *at(day, clock), State: state}
}

func midnight(day string) time.Time {
	return *at(day, "00:00:00")
}

func TestAssembleDayShift(t *testing.T) {
	punches := []attendance.RawPunch{
		punch("2025-03-03", "17:02:00", attendance.PunchOut),
		punch("2025-03-03", "08:05:00", attendance.PunchIn),
		punch("2025-03-03", "12:00:00", attendance.PunchBreak),
		punch("2025-03-03", "12:50:00", attendance.PunchBreak),
		punch("2025-03-03", "08:06:00", attendance.PunchIn),
		punch("2025-03-03", "16:55:00", attendance.PunchOut),
		punch("2025-03-04", "08:00:00", attendance.PunchIn),
	}

	in := AssembleDay(midnight("2025-03-03"), punches, false, 12*time.Hour)
	require.NotNil(t, in.TimeIn)
	require.NotNil(t, in.TimeOut)
	require.NotNil(t, in.BreakIn)
	require.NotNil(t, in.BreakOut)
	assert.Equal(t, "08:05", in.TimeIn.Format("15:04"))
	assert.Equal(t, "17:02", in.TimeOut.Format("15:04"))
	assert.Equal(t, "12:00", in.BreakIn.Format("15:04"))
	assert.Equal(t, "12:50", in.BreakOut.Format("15:04"))
	assert.Nil(t, in.NextDayTimeout)
}

func TestAssembleDayIgnoresOutBeforeIn(t *testing.T) {
	punches := []attendance.RawPunch{
		punch("2025-03-03", "07:00:00", attendance.PunchOut),
		punch("2025-03-03", "08:00:00", attendance.PunchIn),
	}
	in := AssembleDay(midnight("2025-03-03"), punches, false, 12*time.Hour)
	require.NotNil(t, in.TimeIn)
	assert.Nil(t, in.TimeOut)

	result := Classify(in, DefaultRules())
	assert.False(t, result.IsProcessable)
	assert.Equal(t, attendance.AnomalyMissingTimeOut, result.Anomaly)
}

func TestAssembleNightShift(t *testing.T) {
	punches := []attendance.RawPunch{
		// Tail of the previous night: belongs to 2025-03-02.
		punch("2025-03-03", "06:01:00", attendance.PunchOut),
		punch("2025-03-03", "21:58:00", attendance.PunchIn),
		punch("2025-03-04", "02:00:00", attendance.PunchBreak),
		punch("2025-03-04", "02:30:00", attendance.PunchBreak),
		punch("2025-03-04", "06:03:00", attendance.PunchOut),
		// After the cutoff: start of the next shift's day, not ours.
		punch("2025-03-04", "21:59:00", attendance.PunchIn),
		punch("2025-03-04", "13:00:00", attendance.PunchOut),
	}

	in := AssembleDay(midnight("2025-03-03"), punches, true, 12*time.Hour)
	require.NotNil(t, in.TimeIn)
	require.NotNil(t, in.NextDayTimeout)
	assert.Equal(t, "2025-03-03 21:58", in.TimeIn.Format("2006-01-02 15:04"))
	assert.Equal(t, "2025-03-04 06:03", in.NextDayTimeout.Format("2006-01-02 15:04"))
	assert.Nil(t, in.TimeOut)
	require.NotNil(t, in.BreakOut)
	assert.Equal(t, "02:30", in.BreakOut.Format("15:04"))

	result := Classify(in, DefaultRules())
	assert.True(t, result.IsProcessable)
	assert.True(t, result.IsNightshift)
	assert.Equal(t, 30, result.BreakMinutes)
	assert.Equal(t, 455, result.NetWorkedMinutes)
}

func TestDigestChangesWithPunchesAndRules(t *testing.T) {
	base := DayInput{TimeIn: at("2025-03-03", "08:00:00"), TimeOut: at("2025-03-03", "17:00:00")}
	same := DayInput{TimeIn: at("2025-03-03", "08:00:00"), TimeOut: at("2025-03-03", "17:00:00")}
	later := DayInput{TimeIn: at("2025-03-03", "08:00:00"), TimeOut: at("2025-03-03", "17:01:00")}

	assert.Equal(t, Digest(base, DefaultRules()), Digest(same, DefaultRules()))
	assert.NotEqual(t, Digest(base, DefaultRules()), Digest(later, DefaultRules()))

	capped := DefaultRules()
	capped.CapWorkedAtStandard = true
	assert.NotEqual(t, Digest(base, DefaultRules()), Digest(base, capped))
}
