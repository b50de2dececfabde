package repository

import (
	"context"
	"database/sql"
	"time"
)

// ReminderRepo handles the single daily reminder row.
type ReminderRepo struct {
	db *sql.DB
}

func NewReminderRepo(db *sql.DB) *ReminderRepo { return &ReminderRepo{db: db} }

// Get returns the reminder, or nil when none is configured yet.
func (r *ReminderRepo) Get(ctx context.Context) (*Reminder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, hour, minute, enabled, last_delivered_at, snoozed_until FROM reminders LIMIT 1`)
	var rem Reminder
	var enabled int
	var delivered, snoozed sql.NullTime
	if err := row.Scan(&rem.ID, &rem.Hour, &rem.Minute, &enabled, &delivered, &snoozed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rem.Enabled = enabled != 0
	if delivered.Valid {
		rem.LastDeliveredAt = &delivered.Time
	}
	if snoozed.Valid {
		rem.SnoozedUntil = &snoozed.Time
	}
	return &rem, nil
}

func (r *ReminderRepo) Upsert(ctx context.Context, rem Reminder) error {
	enabled := 0
	if rem.Enabled {
		enabled = 1
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO reminders(id, hour, minute, enabled, last_delivered_at)
	VALUES(?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET hour=excluded.hour, minute=excluded.minute, enabled=excluded.enabled;
	`, rem.ID, rem.Hour, rem.Minute, enabled, rem.LastDeliveredAt)
	return err
}

func (r *ReminderRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reminders SET last_delivered_at = ?, snoozed_until = NULL WHERE id = ?`, at, id)
	return err
}

// Snooze defers the reminder until the given time and forgets today's
// delivery so it fires again afterwards.
func (r *ReminderRepo) Snooze(ctx context.Context, id string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reminders SET snoozed_until = ?, last_delivered_at = NULL WHERE id = ?`, until, id)
	return err
}
