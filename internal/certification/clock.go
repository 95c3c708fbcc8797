package certification

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock 是不带时区的墙上时间，按调用方本地时钟解释
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"，缺失或非法的字段按 0 处理，秒被忽略
func ParseClock(value string) Clock {
	parts := strings.Split(strings.TrimSpace(value), ":")

	var c Clock
	if len(parts) > 0 {
		c.Hour = parseField(parts[0], 23)
	}
	if len(parts) > 1 {
		c.Minute = parseField(parts[1], 59)
	}
	return c
}

func parseField(raw string, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > max {
		return 0
	}
	return n
}

// On 把时钟落到 day 所在的日期上，秒与纳秒清零
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// String 返回 "HH:MM"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Format12h 返回 12 小时制，例如 "7:00 PM"、"12:30 AM"
func (c Clock) Format12h() string {
	suffix := "AM"
	if c.Hour >= 12 {
		suffix = "PM"
	}
	hour := c.Hour % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, c.Minute, suffix)
}
