package repository

import (
	"context"
	"database/sql"
	"time"
)

// DayFormat is the calendar-day bucket layout used throughout.
const DayFormat = "2006-01-02"

// EntryRepo handles gratitude entries.
type EntryRepo struct {
	db *sql.DB
}

func NewEntryRepo(db *sql.DB) *EntryRepo { return &EntryRepo{db: db} }

func (r *EntryRepo) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO entries(id, day, text, mood, created_at, updated_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, e.ID, e.Day, e.Text, e.Mood)
	return err
}

func (r *EntryRepo) UpdateText(ctx context.Context, id, text string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE entries SET text = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, text, id)
	return err
}

func (r *EntryRepo) UpdateMood(ctx context.Context, id string, mood int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE entries SET mood = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, mood, id)
	return err
}

func (r *EntryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	return err
}

func (r *EntryRepo) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, day, text, mood, created_at, updated_at FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepo) ListByDay(ctx context.Context, day string) ([]Entry, error) {
	return r.list(ctx, `SELECT id, day, text, mood, created_at, updated_at FROM entries WHERE day = ? ORDER BY created_at ASC`, day)
}

func (r *EntryRepo) ListByMonth(ctx context.Context, month time.Time) ([]Entry, error) {
	start, end := monthBounds(month)
	return r.list(ctx, `SELECT id, day, text, mood, created_at, updated_at FROM entries WHERE day >= ? AND day < ? ORDER BY day DESC, created_at ASC`, start, end)
}

func (r *EntryRepo) list(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DaysWithEntries returns distinct day buckets in descending order, the input
// for streak computation.
func (r *EntryRepo) DaysWithEntries(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT day FROM entries ORDER BY day DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// CountForMonth returns entry and active-day counts for the stats view.
func (r *EntryRepo) CountForMonth(ctx context.Context, month time.Time) (entries int, activeDays int, err error) {
	start, end := monthBounds(month)
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT day) FROM entries WHERE day >= ? AND day < ?`, start, end)
	err = row.Scan(&entries, &activeDays)
	return
}

// MoodAverageForMonth returns the mean mood, or 0 with no entries.
func (r *EntryRepo) MoodAverageForMonth(ctx context.Context, month time.Time) (float64, error) {
	start, end := monthBounds(month)
	var avg sql.NullFloat64
	row := r.db.QueryRowContext(ctx, `SELECT AVG(mood) FROM entries WHERE day >= ? AND day < ?`, start, end)
	if err := row.Scan(&avg); err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

// MoodByDayForMonth returns the per-day mood trend in ascending day order.
func (r *EntryRepo) MoodByDayForMonth(ctx context.Context, month time.Time) ([]DayMood, error) {
	start, end := monthBounds(month)
	rows, err := r.db.QueryContext(ctx, `
	SELECT day, AVG(mood), COUNT(*)
	FROM entries
	WHERE day >= ? AND day < ?
	GROUP BY day
	ORDER BY day ASC;
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayMood
	for rows.Next() {
		var dm DayMood
		if err := rows.Scan(&dm.Day, &dm.Average, &dm.Count); err != nil {
			return nil, err
		}
		out = append(out, dm)
	}
	return out, rows.Err()
}

func monthBounds(month time.Time) (string, string) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format(DayFormat), end.Format(DayFormat)
}

// scanEntry handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.Day, &e.Text, &e.Mood, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}
