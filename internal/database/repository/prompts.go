package repository

import (
	"context"
	"database/sql"
)

// PromptRepo handles gratitude prompts.
type PromptRepo struct {
	db *sql.DB
}

func NewPromptRepo(db *sql.DB) *PromptRepo { return &PromptRepo{db: db} }

func (r *PromptRepo) List(ctx context.Context) ([]Prompt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, text, sort_order FROM prompts ORDER BY sort_order, text`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prompt
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.Text, &p.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PromptRepo) Upsert(ctx context.Context, p Prompt) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO prompts(id, text, sort_order)
	VALUES(?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET text=excluded.text, sort_order=excluded.sort_order;
	`, p.ID, p.Text, p.SortOrder)
	return err
}
