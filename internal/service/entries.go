package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/yeser/yeser/internal/database/repository"
)

// ErrDuplicateEntry is returned when a new statement is nearly identical to
// one already recorded the same day.
var ErrDuplicateEntry = errors.New("an almost identical entry already exists today")

// duplicateThreshold is the normalized edit-distance ratio below which two
// same-day statements are treated as the same entry.
const duplicateThreshold = 0.25

// EntryService records and edits gratitude entries.
type EntryService struct {
	Entries *repository.EntryRepo
	TZ      *time.Location
}

// Today returns entries recorded on the current local day.
func (s *EntryService) Today(ctx context.Context) ([]repository.Entry, error) {
	return s.Entries.ListByDay(ctx, s.day(time.Now()))
}

// AddEntry records a statement with a mood score for the current local day.
// A statement that is a near-duplicate of one already recorded that day is
// rejected with ErrDuplicateEntry so accidental double submissions don't
// inflate the journal.
func (s *EntryService) AddEntry(ctx context.Context, text string, mood int) (*repository.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("entry text is empty")
	}
	if mood < 1 || mood > 5 {
		return nil, fmt.Errorf("mood %d out of range 1..5", mood)
	}

	day := s.day(time.Now())
	existing, err := s.Entries.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if nearDuplicate(text, e.Text) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, e.Text)
		}
	}

	entry := repository.Entry{
		ID:   uuid.NewString(),
		Day:  day,
		Text: text,
		Mood: mood,
	}
	if err := s.Entries.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// EditEntry updates an entry's text.
func (s *EntryService) EditEntry(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("entry text is empty")
	}
	return s.Entries.UpdateText(ctx, id, text)
}

// RemoveEntry deletes an entry.
func (s *EntryService) RemoveEntry(ctx context.Context, id string) error {
	return s.Entries.Delete(ctx, id)
}

func (s *EntryService) day(t time.Time) string {
	loc := s.TZ
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(repository.DayFormat)
}

func nearDuplicate(a, b string) bool {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	if a == b {
		return true
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxlen := len(a)
	if len(b) > maxlen {
		maxlen = len(b)
	}
	if maxlen == 0 {
		return true
	}
	return float64(dist)/float64(maxlen) < duplicateThreshold
}
