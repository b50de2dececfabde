package repository

import "time"

// Entry represents one gratitude statement recorded on a day. Day is the
// local calendar day bucket in YYYY-MM-DD form; streaks and analytics group
// by it rather than by the UTC timestamp.
type Entry struct {
	ID        string
	Day       string
	Text      string
	Mood      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reminder represents the daily reminder row. A single row is kept.
type Reminder struct {
	ID              string
	Hour            int
	Minute          int
	Enabled         bool
	LastDeliveredAt *time.Time
	SnoozedUntil    *time.Time
}

// Session represents a persisted auth session.
type Session struct {
	ID           string
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Prompt represents a gratitude prompt row.
type Prompt struct {
	ID        string
	Text      string
	SortOrder int
}

// DayMood is the per-day mood aggregate used by analytics.
type DayMood struct {
	Day     string
	Average float64
	Count   int
}
