package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yeser/yeser/internal/database/repository"
)

func TestAddEntryAndListToday(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	svc := &EntryService{Entries: repository.NewEntryRepo(db), TZ: time.UTC}
	ctx := context.Background()

	e, err := svc.AddEntry(ctx, "  morning coffee with my sister  ", 4)
	require.NoError(t, err)
	require.Equal(t, "morning coffee with my sister", e.Text)
	require.Equal(t, 4, e.Mood)
	require.Equal(t, time.Now().UTC().Format(repository.DayFormat), e.Day)

	today, err := svc.Today(ctx)
	require.NoError(t, err)
	require.Len(t, today, 1)
	require.Equal(t, e.ID, today[0].ID)
}

func TestAddEntryRejectsNearDuplicate(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	svc := &EntryService{Entries: repository.NewEntryRepo(db), TZ: time.UTC}
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, "grateful for the rain this morning", 3)
	require.NoError(t, err)

	// Near-identical wording should be rejected.
	_, err = svc.AddEntry(ctx, "grateful for the rain this mornin", 3)
	require.ErrorIs(t, err, ErrDuplicateEntry)

	// A genuinely different statement is fine.
	_, err = svc.AddEntry(ctx, "a long walk by the water", 5)
	require.NoError(t, err)

	today, err := svc.Today(ctx)
	require.NoError(t, err)
	require.Len(t, today, 2)
}

func TestAddEntryValidation(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	svc := &EntryService{Entries: repository.NewEntryRepo(db), TZ: time.UTC}
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, "   ", 3)
	require.Error(t, err)

	_, err = svc.AddEntry(ctx, "valid text", 0)
	require.Error(t, err)

	_, err = svc.AddEntry(ctx, "valid text", 6)
	require.Error(t, err)
}

func TestEditAndRemoveEntry(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	repo := repository.NewEntryRepo(db)
	svc := &EntryService{Entries: repo, TZ: time.UTC}
	ctx := context.Background()

	e, err := svc.AddEntry(ctx, "first draft", 2)
	require.NoError(t, err)

	require.NoError(t, svc.EditEntry(ctx, e.ID, "second draft"))
	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, "second draft", got.Text)

	require.Error(t, svc.EditEntry(ctx, e.ID, "  "))

	require.NoError(t, svc.RemoveEntry(ctx, e.ID))
	got, err = repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestNearDuplicate(t *testing.T) {
	t.Parallel()

	require.True(t, nearDuplicate("Thankful for tea", "thankful for tea"))
	require.True(t, nearDuplicate("thankful for teas", "thankful for tea"))
	require.False(t, nearDuplicate("thankful for tea", "a quiet evening at home"))
}
