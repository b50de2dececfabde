package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yeser/yeser/internal/config"
	"github.com/yeser/yeser/internal/database"
	"github.com/yeser/yeser/internal/database/repository"
	"github.com/yeser/yeser/internal/ops"
	"github.com/yeser/yeser/internal/service"
	"github.com/yeser/yeser/internal/supabase"
	"github.com/yeser/yeser/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog := newLogger()
	defer closeLog()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.SeedDefaults(ctx, db); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}

	// repositories
	entryRepo := repository.NewEntryRepo(db)
	reminderRepo := repository.NewReminderRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	promptRepo := repository.NewPromptRepo(db)

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		logger.Warn("using local timezone, configured one failed to load", "tz", cfg.UI.Timezone, "err", err)
		loc = time.Local
	}

	// services
	auth := &service.AuthService{
		Client:   supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey),
		Sessions: sessionRepo,
		Ops:      ops.NewManager(logger),
		Log:      logger,
	}
	entries := &service.EntryService{Entries: entryRepo, TZ: loc}
	streaks := &service.StreakService{Entries: entryRepo, TZ: loc}
	analytics := &service.AnalyticsService{Entries: entryRepo}
	reminders := &service.ReminderService{Reminders: reminderRepo, TZ: loc}

	p := tea.NewProgram(tui.New(ctx, cfg,
		tui.Repos{Entries: entryRepo, Reminders: reminderRepo, Sessions: sessionRepo, Prompts: promptRepo},
		tui.Services{Entries: entries, Streaks: streaks, Analytics: analytics, Reminders: reminders, Auth: auth},
		loc, logger,
	), tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// newLogger writes structured logs to the file named by YESER_LOG; with no
// file configured logs are discarded so they never bleed into the TUI.
func newLogger() (*slog.Logger, func()) {
	path := os.Getenv("YESER_LOG")
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("warn: log file unavailable: %v", err)
		return slog.New(slog.DiscardHandler), func() {}
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), func() { _ = f.Close() }
}
