package certification

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"
)

// WeekdaySet 以位图保存规范化后的认证星期，bit i 对应 time.Weekday(i)
// 零值表示“从不认证”
type WeekdaySet uint8

// 规范化的三字母星期标记，下标与 time.Weekday 一致
var canonicalTokens = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// 客户端与后端出现过的写法，只接受完整拼写
var weekdayAliases = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,

	"일": time.Sunday,
	"월": time.Monday,
	"화": time.Tuesday,
	"수": time.Wednesday,
	"목": time.Thursday,
	"금": time.Friday,
	"토": time.Saturday,
}

// mondayFirst 展示用顺序
var mondayFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// WeekdaysInput 是 cert_days 的两种形态：有序字符串列表，或需要宽松切分的自由文本
type WeekdaysInput struct {
	list   []string
	text   string
	isList bool
}

// DaysFromList 包装后端返回的真实数组
func DaysFromList(days []string) WeekdaysInput {
	return WeekdaysInput{list: days, isList: true}
}

// DaysFromText 包装字符串形式，如 "['mon','wed']" 或 "mon, wed"
func DaysFromText(text string) WeekdaysInput {
	return WeekdaysInput{text: text}
}

// IsList 报告输入是否为列表形态
func (in WeekdaysInput) IsList() bool {
	return in.isList
}

// Tokens 返回未规范化的原始标记
func (in WeekdaysInput) Tokens() []string {
	if in.isList {
		return in.list
	}
	return splitDaysText(in.text)
}

// MarshalJSON 列表形态编码为数组，文本形态编码为字符串，便于缓存后原样还原
func (in WeekdaysInput) MarshalJSON() ([]byte, error) {
	if in.isList {
		list := in.list
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(in.text)
}

func (in *WeekdaysInput) UnmarshalJSON(data []byte) error {
	parsed := gjson.ParseBytes(data)
	switch {
	case parsed.IsArray():
		list := make([]string, 0)
		parsed.ForEach(func(_, value gjson.Result) bool {
			list = append(list, value.String())
			return true
		})
		*in = DaysFromList(list)
	case parsed.Type == gjson.String:
		*in = DaysFromText(parsed.Str)
	default:
		*in = DaysFromText("")
	}
	return nil
}

// ParseWeekdays 将任意形态的 cert_days 规范化为 WeekdaySet，不认识的标记直接丢弃
func ParseWeekdays(in WeekdaysInput) WeekdaySet {
	var set WeekdaySet
	for _, token := range in.Tokens() {
		// 列表元素本身也可能夹带括号或引号
		for _, part := range splitDaysText(token) {
			if day, ok := normalizeWeekday(part); ok {
				set = set.With(day)
			}
		}
	}
	return set
}

const (
	daySeparators = ",，、/;；|&"
	dayEnclosures = `[]{}()'"`
)

// splitDaysText 先按 JSON 数组严格解析（单引号改写为双引号），失败时按分隔符切分并去掉括号与引号
func splitDaysText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "[") {
		candidate := strings.ReplaceAll(text, "'", `"`)
		if gjson.Valid(candidate) {
			parsed := gjson.Parse(candidate)
			if parsed.IsArray() {
				var tokens []string
				parsed.ForEach(func(_, value gjson.Result) bool {
					tokens = append(tokens, value.String())
					return true
				})
				return tokens
			}
		}
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(daySeparators, r) || unicode.IsSpace(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, dayEnclosures)
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// normalizeWeekday 小写、去空白后映射到 sun..sat，兼容 "Monday"、"Tues"、"월요일"
func normalizeWeekday(token string) (time.Weekday, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	token = strings.TrimSuffix(token, "요일")
	day, ok := weekdayAliases[token]
	return day, ok
}

// TokenOf 返回 time.Weekday 对应的规范化标记
func TokenOf(day time.Weekday) string {
	return canonicalTokens[day]
}

// With 返回加入 day 后的集合
func (s WeekdaySet) With(day time.Weekday) WeekdaySet {
	return s | 1<<uint(day)
}

// Has 判断 day 是否为认证日
func (s WeekdaySet) Has(day time.Weekday) bool {
	return s&(1<<uint(day)) != 0
}

// Empty 集合为空表示未配置认证日
func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Tokens 按周一在前的顺序返回规范化标记
func (s WeekdaySet) Tokens() []string {
	tokens := make([]string, 0, 7)
	for _, day := range mondayFirst {
		if s.Has(day) {
			tokens = append(tokens, canonicalTokens[day])
		}
	}
	return tokens
}

// FormatDays 用于社区详情页展示，例如 "mon, wed, fri"
func FormatDays(s WeekdaySet) string {
	return strings.Join(s.Tokens(), ", ")
}

// Scheduled 报告集合中是否至少有一天
func Scheduled(s WeekdaySet) bool {
	return !s.Empty()
}
