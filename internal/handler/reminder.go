package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"WorkoutMate/internal/service"
	"WorkoutMate/pkg/response"
)

type ReminderHandler struct {
	reminders *service.ReminderService
}

func NewReminderHandler(reminders *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// Subscribe 订阅截止提醒，重复订阅会刷新快照
// POST /v1/communities/:id/reminders
func (h *ReminderHandler) Subscribe(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.reminders.Subscribe(ctx, session, c.Param("id"))
	if err != nil {
		fail(ctx, c, "reminder_subscribe", err)
		return
	}
	response.Success(ctx, c, data)
}

// GET /v1/communities/:id/reminders
func (h *ReminderHandler) Get(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.reminders.Get(ctx, session, c.Param("id"))
	if err != nil {
		fail(ctx, c, "reminder_get", err)
		return
	}
	response.Success(ctx, c, data)
}

// DELETE /v1/communities/:id/reminders
func (h *ReminderHandler) Unsubscribe(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	if err := h.reminders.Unsubscribe(ctx, session, c.Param("id")); err != nil {
		fail(ctx, c, "reminder_unsubscribe", err)
		return
	}
	response.NoContent(ctx, c)
}
