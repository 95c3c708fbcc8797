package certification

import (
	"fmt"
	"time"
)

// 向前扫描的最大天数（含 now+7d，即下周的同一天）
const lookaheadDays = 7

// Schedule 是规范化后的社区认证配置
type Schedule struct {
	Days     WeekdaySet
	Deadline Clock
}

// NewSchedule 从后端的 cert_days / cert_time 构造，任何输入都不会失败
func NewSchedule(days WeekdaysInput, deadline string) Schedule {
	return Schedule{
		Days:     ParseWeekdays(days),
		Deadline: ParseClock(deadline),
	}
}

// NextLabel 标记下一次认证相对今天的位置，用于首页排序。
// 今天的截止时间用 Remaining 表示，前瞻只从明天开始
type NextLabel string

const (
	LabelNone     NextLabel = ""
	LabelTomorrow NextLabel = "tomorrow"
	LabelDate     NextLabel = "date"
)

// Rank 越小越紧急
func (l NextLabel) Rank() int {
	switch l {
	case LabelTomorrow:
		return 0
	case LabelDate:
		return 1
	default:
		return 2
	}
}

// Status 是派生结果，不持久化。TimeRemaining 与 NextOccurrence 至多一个非空，
// 两者都为空只在未配置认证日时出现
type Status struct {
	TimeRemaining  string
	NextOccurrence string

	Remaining time.Duration
	Deadline  time.Time // 今日截止时刻，仅 TimeRemaining 非空时有效
	NextAt    time.Time // 下一次认证的截止时刻，仅 NextOccurrence 非空时有效
	NextLabel NextLabel
}

// Live 今天是认证日且截止时间未到
func (s Status) Live() bool {
	return s.TimeRemaining != ""
}

// Upcoming 只有下一次认证的描述
func (s Status) Upcoming() bool {
	return s.TimeRemaining == "" && s.NextOccurrence != ""
}

// Unscheduled 两个字段都为空，调用方需要当作“未排期”处理
func (s Status) Unscheduled() bool {
	return s.TimeRemaining == "" && s.NextOccurrence == ""
}

// Calculate 是纯函数：相同的 schedule 与 now 总是得到相同的结果
func Calculate(schedule Schedule, now time.Time) Status {
	if schedule.Days.Empty() {
		return Status{}
	}

	if schedule.Days.Has(now.Weekday()) {
		deadline := schedule.Deadline.On(now)
		// 恰好等于截止时刻视为已过
		if now.Before(deadline) {
			remaining := deadline.Sub(now)
			return Status{
				TimeRemaining: FormatRemaining(remaining),
				Remaining:     remaining,
				Deadline:      deadline,
			}
		}
	}

	for offset := 1; offset <= lookaheadDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if !schedule.Days.Has(day.Weekday()) {
			continue
		}

		label := LabelDate
		if offset == 1 {
			label = LabelTomorrow
		}
		return Status{
			NextOccurrence: describeNext(label, day, schedule.Deadline),
			NextAt:         schedule.Deadline.On(day),
			NextLabel:      label,
		}
	}

	return Status{}
}

func describeNext(label NextLabel, day time.Time, deadline Clock) string {
	if label == LabelTomorrow {
		return fmt.Sprintf("%s %s", label, deadline.Format12h())
	}
	return fmt.Sprintf("%s %s", day.Format("Jan 2"), deadline.Format12h())
}

// FormatRemaining 截断到分钟：不足 60 分钟只报分钟，否则报小时与分钟
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	if minutes < 60 {
		return plural(minutes, "minute")
	}
	return plural(minutes/60, "hour") + " " + plural(minutes%60, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
