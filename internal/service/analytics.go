package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yeser/yeser/internal/database/repository"
)

// MonthStats is the aggregate shown on the stats view.
type MonthStats struct {
	Month       time.Time
	Entries     int
	ActiveDays  int
	MoodAverage float64
	MoodByDay   []repository.DayMood
}

// AnalyticsService computes mood and activity aggregates.
type AnalyticsService struct {
	Entries *repository.EntryRepo
}

// MonthStats fans the independent aggregate queries out concurrently and
// joins the results.
func (s *AnalyticsService) MonthStats(ctx context.Context, month time.Time) (*MonthStats, error) {
	stats := &MonthStats{Month: month}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, days, err := s.Entries.CountForMonth(ctx, month)
		if err != nil {
			return err
		}
		stats.Entries = entries
		stats.ActiveDays = days
		return nil
	})
	g.Go(func() error {
		avg, err := s.Entries.MoodAverageForMonth(ctx, month)
		if err != nil {
			return err
		}
		stats.MoodAverage = avg
		return nil
	})
	g.Go(func() error {
		trend, err := s.Entries.MoodByDayForMonth(ctx, month)
		if err != nil {
			return err
		}
		stats.MoodByDay = trend
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
