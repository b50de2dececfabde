package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yeser/yeser/internal/database/repository"
)

// ReminderService decides when the daily reminder is due and records
// deliveries. Delivery itself (the banner) is up to the UI.
type ReminderService struct {
	Reminders *repository.ReminderRepo
	TZ        *time.Location
	Now       func() time.Time
}

// Configure creates or updates the reminder settings.
func (s *ReminderService) Configure(ctx context.Context, hour, minute int, enabled bool) error {
	rem, err := s.Reminders.Get(ctx)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	if rem != nil {
		id = rem.ID
	}
	return s.Reminders.Upsert(ctx, repository.Reminder{
		ID:      id,
		Hour:    hour,
		Minute:  minute,
		Enabled: enabled,
	})
}

// Due reports whether the reminder should fire now: it is enabled, today's
// fire time has passed, and it has not been delivered since that fire time.
func (s *ReminderService) Due(ctx context.Context) (bool, error) {
	rem, err := s.Reminders.Get(ctx)
	if err != nil || rem == nil || !rem.Enabled {
		return false, err
	}
	now := s.now()
	fire := time.Date(now.Year(), now.Month(), now.Day(), rem.Hour, rem.Minute, 0, 0, now.Location())
	if now.Before(fire) {
		return false, nil
	}
	if rem.SnoozedUntil != nil && now.Before(*rem.SnoozedUntil) {
		return false, nil
	}
	if rem.LastDeliveredAt != nil && !rem.LastDeliveredAt.Before(fire) {
		return false, nil
	}
	return true, nil
}

// Snooze pushes the reminder back by d from now.
func (s *ReminderService) Snooze(ctx context.Context, d time.Duration) error {
	rem, err := s.Reminders.Get(ctx)
	if err != nil || rem == nil {
		return err
	}
	return s.Reminders.Snooze(ctx, rem.ID, s.now().Add(d))
}

// MarkDelivered records that the reminder was surfaced.
func (s *ReminderService) MarkDelivered(ctx context.Context) error {
	rem, err := s.Reminders.Get(ctx)
	if err != nil || rem == nil {
		return err
	}
	return s.Reminders.MarkDelivered(ctx, rem.ID, s.now())
}

func (s *ReminderService) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.TZ
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}
