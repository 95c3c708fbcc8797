package certification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-16 是周一
func monday(hour, minute, second int) time.Time {
	return time.Date(2025, 6, 16, hour, minute, second, 0, time.Local)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{"19:00", Clock{19, 0}},
		{"07:30:15", Clock{7, 30}},
		{" 9:5 ", Clock{9, 5}},
		{"9", Clock{9, 0}},
		{"", Clock{}},
		{"ab:cd", Clock{}},
		{"25:00", Clock{0, 0}},
		{"12:75", Clock{12, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseClock(tt.in), "input %q", tt.in)
	}
}

func TestClock_Format(t *testing.T) {
	assert.Equal(t, "12:00 AM", Clock{0, 0}.Format12h())
	assert.Equal(t, "12:05 PM", Clock{12, 5}.Format12h())
	assert.Equal(t, "7:00 PM", Clock{19, 0}.Format12h())
	assert.Equal(t, "11:59 AM", Clock{11, 59}.Format12h())
	assert.Equal(t, "07:05", Clock{7, 5}.String())
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0 minutes", FormatRemaining(30*time.Second))
	assert.Equal(t, "1 minute", FormatRemaining(time.Minute+59*time.Second))
	assert.Equal(t, "59 minutes", FormatRemaining(59*time.Minute+59*time.Second))
	assert.Equal(t, "1 hour 0 minutes", FormatRemaining(time.Hour))
	assert.Equal(t, "2 hours 1 minute", FormatRemaining(121*time.Minute))
	assert.Equal(t, "2 hours 15 minutes", FormatRemaining(2*time.Hour+15*time.Minute+59*time.Second))
	assert.Equal(t, "0 minutes", FormatRemaining(-time.Minute))
}

func TestCalculate_Scenarios(t *testing.T) {
	mwf := NewSchedule(DaysFromList([]string{"mon", "wed", "fri"}), "19:00")

	t.Run("countdown before deadline", func(t *testing.T) {
		status := Calculate(mwf, monday(18, 0, 0))

		assert.Equal(t, "1 hour 0 minutes", status.TimeRemaining)
		assert.Empty(t, status.NextOccurrence)
		assert.Equal(t, time.Hour, status.Remaining)
		assert.Equal(t, monday(19, 0, 0), status.Deadline)
		assert.True(t, status.Live())
	})

	t.Run("deadline passed moves to wednesday", func(t *testing.T) {
		status := Calculate(mwf, monday(20, 0, 0))

		assert.Empty(t, status.TimeRemaining)
		assert.Equal(t, "Jun 18 7:00 PM", status.NextOccurrence)
		assert.Equal(t, LabelDate, status.NextLabel)
		assert.Equal(t, time.Date(2025, 6, 18, 19, 0, 0, 0, time.Local), status.NextAt)
		assert.True(t, status.Upcoming())
	})

	t.Run("exactly at deadline counts as passed", func(t *testing.T) {
		status := Calculate(mwf, monday(19, 0, 0))

		assert.Empty(t, status.TimeRemaining)
		assert.Equal(t, "Jun 18 7:00 PM", status.NextOccurrence)
	})

	t.Run("one nanosecond before deadline", func(t *testing.T) {
		status := Calculate(mwf, monday(19, 0, 0).Add(-time.Nanosecond))

		assert.Equal(t, "0 minutes", status.TimeRemaining)
	})

	t.Run("truncates instead of rounding", func(t *testing.T) {
		status := Calculate(mwf, monday(16, 44, 1))
		assert.Equal(t, "2 hours 15 minutes", status.TimeRemaining)

		status = Calculate(mwf, monday(18, 15, 30))
		assert.Equal(t, "44 minutes", status.TimeRemaining)
	})

	t.Run("tomorrow label", func(t *testing.T) {
		sunday := time.Date(2025, 6, 22, 10, 0, 0, 0, time.Local)
		status := Calculate(mwf, sunday)

		assert.Equal(t, "tomorrow 7:00 PM", status.NextOccurrence)
		assert.Equal(t, LabelTomorrow, status.NextLabel)
	})

	t.Run("single weekday wraps a full week", func(t *testing.T) {
		onlyMonday := NewSchedule(DaysFromText("mon"), "07:00")
		status := Calculate(onlyMonday, monday(8, 0, 0))

		assert.Equal(t, "Jun 23 7:00 AM", status.NextOccurrence)
		assert.Equal(t, time.Date(2025, 6, 23, 7, 0, 0, 0, time.Local), status.NextAt)
	})

	t.Run("empty schedule yields nothing", func(t *testing.T) {
		empty := NewSchedule(DaysFromText("[]"), "19:00")
		for h := 0; h < 24; h++ {
			status := Calculate(empty, monday(h, 0, 0))
			assert.True(t, status.Unscheduled())
			assert.Equal(t, Status{}, status)
		}
	})

	t.Run("malformed time means midnight", func(t *testing.T) {
		broken := NewSchedule(DaysFromList([]string{"mon", "tue"}), "late evening")
		status := Calculate(broken, monday(0, 0, 0))

		assert.Empty(t, status.TimeRemaining)
		assert.Equal(t, "tomorrow 12:00 AM", status.NextOccurrence)
	})
}

func TestCalculate_InputFormsAgree(t *testing.T) {
	forms := []WeekdaysInput{
		DaysFromList([]string{"mon", "wed"}),
		DaysFromText("['mon', 'wed']"),
		DaysFromText("mon, wed"),
	}

	for day := 0; day < 7; day++ {
		for _, hour := range []int{0, 6, 12, 18, 23} {
			now := time.Date(2025, 6, 16+day, hour, 30, 0, 0, time.Local)
			want := Calculate(NewSchedule(forms[0], "18:45"), now)
			for _, form := range forms[1:] {
				got := Calculate(NewSchedule(form, "18:45"), now)
				require.Equal(t, want, got, "now=%s", now)
			}
		}
	}
}

func TestCalculate_Properties(t *testing.T) {
	deadline := Clock{Hour: 12, Minute: 30}

	for set := WeekdaySet(1); set < 1<<7; set++ {
		schedule := Schedule{Days: set, Deadline: deadline}
		for day := 0; day < 7; day++ {
			for _, minute := range []int{0, 12*60 + 29, 12*60 + 30, 23*60 + 59} {
				now := time.Date(2025, 6, 16+day, minute/60, minute%60, 0, 0, time.Local)
				status := Calculate(schedule, now)

				// 幂等
				require.Equal(t, status, Calculate(schedule, now))

				todayScheduled := set.Has(now.Weekday())
				beforeDeadline := now.Before(deadline.On(now))

				if todayScheduled && beforeDeadline {
					require.True(t, status.Live(), "set=%07b now=%s", set, now)
					require.Empty(t, status.NextOccurrence)
				} else {
					require.Empty(t, status.TimeRemaining, "set=%07b now=%s", set, now)
					require.NotEmpty(t, status.NextOccurrence, "set=%07b now=%s", set, now)
					require.True(t, status.NextAt.After(now))
					require.True(t, set.Has(status.NextAt.Weekday()))
				}
			}
		}
	}
}

func TestNextLabel_Rank(t *testing.T) {
	assert.Less(t, LabelTomorrow.Rank(), LabelDate.Rank())
	assert.Less(t, LabelDate.Rank(), LabelNone.Rank())
}
