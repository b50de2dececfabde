package service

import (
	"context"
	"time"

	"github.com/yeser/yeser/internal/database/repository"
)

// Streak summarises consecutive journaling days.
type Streak struct {
	Current int
	Longest int
	LastDay string
}

// StreakService derives streaks from the days that have entries.
type StreakService struct {
	Entries *repository.EntryRepo
	TZ      *time.Location
	Now     func() time.Time
}

// Compute walks the distinct entry days. The current streak counts back from
// today, or from yesterday when today has no entry yet (writing later today
// extends it rather than resetting it).
func (s *StreakService) Compute(ctx context.Context) (Streak, error) {
	days, err := s.Entries.DaysWithEntries(ctx)
	if err != nil {
		return Streak{}, err
	}
	if len(days) == 0 {
		return Streak{}, nil
	}

	parsed := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.Parse(repository.DayFormat, d)
		if err != nil {
			return Streak{}, err
		}
		parsed = append(parsed, t)
	}

	st := Streak{LastDay: days[0]}

	// Longest run anywhere in the history. Days are distinct and
	// descending, so a run is a sequence of exactly-one-day gaps.
	run := 1
	for i := 1; i < len(parsed); i++ {
		if parsed[i-1].Sub(parsed[i]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > st.Longest {
			st.Longest = run
		}
	}
	if st.Longest == 0 {
		st.Longest = 1
	}

	today := s.today()
	gap := today.Sub(parsed[0])
	if gap > 24*time.Hour {
		return st, nil // streak broken
	}
	st.Current = 1
	for i := 1; i < len(parsed); i++ {
		if parsed[i-1].Sub(parsed[i]) != 24*time.Hour {
			break
		}
		st.Current++
	}
	if st.Current > st.Longest {
		st.Longest = st.Current
	}
	return st, nil
}

func (s *StreakService) today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.TZ
	if loc == nil {
		loc = time.Local
	}
	day := now().In(loc).Format(repository.DayFormat)
	t, _ := time.Parse(repository.DayFormat, day)
	return t
}
