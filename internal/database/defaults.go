package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// SeedDefaults ensures baseline gratitude prompts exist for new databases.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	var existing int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	defaults := []string{
		"What made you smile today?",
		"Who are you thankful for right now, and why?",
		"What small comfort did you enjoy today?",
		"What went better than expected?",
		"What did you learn today that you're glad to know?",
		"What about your surroundings are you grateful for?",
		"What part of your routine would you miss if it were gone?",
	}
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		for idx, text := range defaults {
			id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("prompt:"+text)).String()
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO prompts(id, text, sort_order)
			VALUES(?, ?, ?)
			ON CONFLICT(id) DO NOTHING;
			`, id, text, idx); err != nil {
				return err
			}
		}
		return nil
	})
}
