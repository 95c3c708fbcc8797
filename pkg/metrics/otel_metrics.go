package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 后端调用
	BackendRequestTotal metric.Int64Counter
	BackendDuration     metric.Float64Histogram

	// 首页组装
	FanoutSubstitutions metric.Int64Counter
	HintClearedTotal    metric.Int64Counter

	// 提醒
	ReminderPublished metric.Int64Counter
	ReminderDelivered metric.Int64Counter
}

var (
	// 全局指标实例，未初始化时所有 Record 方法都是空操作
	metrics *OTelMetrics
	meter   = otel.Meter("workoutmate")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	m := &OTelMetrics{}
	var err error

	if m.BackendRequestTotal, err = meter.Int64Counter(
		"backend_request_total",
		metric.WithDescription("Total number of requests sent to the community backend"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.BackendDuration, err = meter.Float64Histogram(
		"backend_request_duration_seconds",
		metric.WithDescription("Community backend request latency in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if m.FanoutSubstitutions, err = meter.Int64Counter(
		"home_fanout_substitution_total",
		metric.WithDescription("Per-community counts defaulted to zero because a sub-fetch failed"),
		metric.WithUnit("{community}"),
	); err != nil {
		return err
	}

	if m.HintClearedTotal, err = meter.Int64Counter(
		"completion_hint_cleared_total",
		metric.WithDescription("Stale certified-today hints cleared during reconciliation"),
		metric.WithUnit("{hint}"),
	); err != nil {
		return err
	}

	if m.ReminderPublished, err = meter.Int64Counter(
		"reminder_published_total",
		metric.WithDescription("Deadline reminders published to the queue"),
		metric.WithUnit("{message}"),
	); err != nil {
		return err
	}

	if m.ReminderDelivered, err = meter.Int64Counter(
		"reminder_delivered_total",
		metric.WithDescription("Deadline reminders consumed by the worker"),
		metric.WithUnit("{message}"),
	); err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordBackendCall 记录一次后端调用
func RecordBackendCall(ctx context.Context, operation string, status int, elapsed time.Duration) {
	m := GetMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status", status),
	)
	m.BackendRequestTotal.Add(ctx, 1, attrs)
	m.BackendDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordFanoutSubstitution 成员或帖子拉取失败，计数按 0 处理
func RecordFanoutSubstitution(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.FanoutSubstitutions.Add(ctx, 1)
	}
}

// RecordHintCleared 清除过期的“今日已认证”提示
func RecordHintCleared(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.HintClearedTotal.Add(ctx, 1)
	}
}

// RecordReminderPublished 记录提醒入队
func RecordReminderPublished(ctx context.Context, ok bool) {
	if m := GetMetrics(); m != nil {
		m.ReminderPublished.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
	}
}

// RecordReminderDelivered 记录提醒被消费
func RecordReminderDelivered(ctx context.Context, outcome string) {
	if m := GetMetrics(); m != nil {
		m.ReminderDelivered.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
