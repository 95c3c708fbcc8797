package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"WorkoutMate/internal/model"
	"WorkoutMate/internal/repository"
)

// memoryHints 内存版 CompletionHints
type memoryHints struct {
	mu     sync.Mutex
	values map[string]string
	clears int
	err    error
}

func newMemoryHints() *memoryHints {
	return &memoryHints{values: make(map[string]string)}
}

func (h *memoryHints) key(userID, communityID string) string {
	return userID + "|" + communityID
}

func (h *memoryHints) Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return false, h.err
	}
	return h.values[h.key(userID, communityID)] == day.Format("2006-01-02"), nil
}

func (h *memoryHints) Set(ctx context.Context, userID, communityID string, day time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.values[h.key(userID, communityID)] = day.Format("2006-01-02")
	return nil
}

func (h *memoryHints) Clear(ctx context.Context, userID, communityID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.clears++
	delete(h.values, h.key(userID, communityID))
	return nil
}

func (h *memoryHints) has(userID, communityID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.values[h.key(userID, communityID)]
	return ok
}

// memoryReminders 内存版 ReminderStore
type memoryReminders struct {
	mu   sync.Mutex
	subs map[string]model.ReminderSubscription
	err  error
}

func newMemoryReminders() *memoryReminders {
	return &memoryReminders{subs: make(map[string]model.ReminderSubscription)}
}

func (m *memoryReminders) Upsert(ctx context.Context, sub *model.ReminderSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := sub.UserID + "|" + sub.CommunityID
	if existing, ok := m.subs[key]; ok {
		sub.ID = existing.ID
		sub.PublicID = existing.PublicID
	} else {
		sub.ID = int64(len(m.subs) + 1)
	}
	m.subs[key] = *sub
	return nil
}

func (m *memoryReminders) Delete(ctx context.Context, userID, communityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + communityID
	if _, ok := m.subs[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.subs, key)
	return nil
}

func (m *memoryReminders) Get(ctx context.Context, userID, communityID string) (*model.ReminderSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[userID+"|"+communityID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

var errBoom = errors.New("boom")

// 2025-06-16 是周一
func at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, 16+day, hour, minute, 0, 0, time.Local)
}
