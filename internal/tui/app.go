package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yeser/yeser/internal/anim"
	"github.com/yeser/yeser/internal/config"
	"github.com/yeser/yeser/internal/database/repository"
	"github.com/yeser/yeser/internal/lifecycle"
	"github.com/yeser/yeser/internal/nav"
	"github.com/yeser/yeser/internal/service"
)

// App ties together views.
type App struct {
	ctx      context.Context
	repos    Repos
	services Services
	cfg      config.Config
	tz       *time.Location
	log      *slog.Logger

	life   *lifecycle.Coordinator
	routes *nav.Coordinator
	stack  *viewStack
	banner *anim.Sequencer

	todayEntries []repository.Entry
	history      []repository.Entry
	month        time.Time
	stats        *service.MonthStats
	streak       service.Streak
	prompts      []repository.Prompt
	promptIdx    int
	session      *repository.Session

	entryCursor   int
	historyCursor int
	modal         modalState
	inputBuffer   string
	editingID     string

	loginStage loginStage
	emailInput string
	codeInput  string

	remHour     int
	remMinute   int
	remEnabled  bool
	reminderDue bool

	status     string
	statusKind statusKind
	statusSeq  int
	dateFormat string
}

type Repos struct {
	Entries   *repository.EntryRepo
	Reminders *repository.ReminderRepo
	Sessions  *repository.SessionRepo
	Prompts   *repository.PromptRepo
}

type Services struct {
	Entries   *service.EntryService
	Streaks   *service.StreakService
	Analytics *service.AnalyticsService
	Reminders *service.ReminderService
	Auth      *service.AuthService
}

const (
	viewToday    = "today"
	viewHistory  = "history"
	viewStats    = "stats"
	viewSettings = "settings"
	viewLogin    = "login"
)

type modalState string

const (
	modalNone          modalState = ""
	modalNewEntry      modalState = "newEntry"
	modalPickMood      modalState = "pickMood"
	modalEditEntry     modalState = "editEntry"
	modalConfirmDelete modalState = "confirmDelete"
)

type loginStage string

const (
	stageEmail loginStage = "email"
	stageCode  loginStage = "code"
)

type statusKind int

// Banner priority order: an error banner interrupts anything, a reminder
// interrupts routine feedback, plain info yields to everything.
const (
	statusInfo statusKind = iota
	statusSuccess
	statusReminder
	statusError
)

const statusTTL = 3 * time.Second

func New(ctx context.Context, cfg config.Config, repos Repos, services Services, tz *time.Location, log *slog.Logger) *App {
	if tz == nil {
		tz = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	stack := newViewStack(viewToday)
	routes := nav.New(stack, log)
	stack.settled = routes.Settled
	return &App{
		ctx:        ctx,
		repos:      repos,
		services:   services,
		cfg:        cfg,
		tz:         tz,
		log:        log,
		life:       lifecycle.New(log),
		routes:     routes,
		stack:      stack,
		banner:     anim.NewSequencer(log),
		month:      time.Now().In(tz),
		loginStage: stageEmail,
		remHour:    cfg.Reminder.Hour,
		remMinute:  cfg.Reminder.Minute,
		remEnabled: cfg.Reminder.Enabled,
		dateFormat: cfg.UI.DateFormat,
	}
}

func (a *App) Init() tea.Cmd {
	a.life.Mount()
	return tea.Batch(
		a.loadSession(),
		a.loadToday(),
		a.loadStreak(),
		a.loadPrompts(),
		a.loadReminder(),
		reminderTick(),
	)
}

// loads

func (a *App) loadToday() tea.Cmd {
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindFetch, func() (any, error) {
			return a.services.Entries.Today(a.ctx)
		})
		if !ok {
			return nil
		}
		return todayMsg(v.([]repository.Entry))
	}
}

func (a *App) loadHistory() tea.Cmd {
	month := a.month
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindFetch, func() (any, error) {
			return a.repos.Entries.ListByMonth(a.ctx, month)
		})
		if !ok {
			return nil
		}
		return historyMsg(v.([]repository.Entry))
	}
}

func (a *App) loadStats() tea.Cmd {
	month := a.month
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindFetch, func() (any, error) {
			return a.services.Analytics.MonthStats(a.ctx, month)
		})
		if !ok {
			return nil
		}
		return statsMsg{stats: v.(*service.MonthStats)}
	}
}

func (a *App) loadStreak() tea.Cmd {
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindFetch, func() (any, error) {
			return a.services.Streaks.Compute(a.ctx)
		})
		if !ok {
			return nil
		}
		return streakMsg(v.(service.Streak))
	}
}

func (a *App) loadPrompts() tea.Cmd {
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindFetch, func() (any, error) {
			return a.repos.Prompts.List(a.ctx)
		})
		if !ok {
			return nil
		}
		return promptsMsg(v.([]repository.Prompt))
	}
}

func (a *App) loadReminder() tea.Cmd {
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindFetch, func() (any, error) {
			return a.repos.Reminders.Get(a.ctx)
		})
		if !ok {
			return nil
		}
		return reminderMsg{reminder: v.(*repository.Reminder)}
	}
}

func (a *App) loadSession() tea.Cmd {
	return func() tea.Msg {
		sess, err := a.services.Auth.RefreshIfNeeded(a.ctx)
		if err != nil {
			if !errors.Is(err, service.ErrNotSignedIn) {
				a.log.Warn("session refresh failed", "err", err)
			}
			return sessionMsg{}
		}
		return sessionMsg{session: sess}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The mounted gate applies where results land, not where the work was
	// started: a fetch that settles after teardown must not touch app state.
	if a.staleResult(msg) {
		return a, nil
	}
	switch m := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(m)

	case tea.FocusMsg:
		a.life.SetFocused(true)
		a.life.SetAppState(lifecycle.AppActive)
		return a, tea.Batch(a.loadToday(), a.loadStreak())
	case tea.BlurMsg:
		a.life.SetFocused(false)
		a.life.SetAppState(lifecycle.AppInactive)

	case todayMsg:
		a.todayEntries = []repository.Entry(m)
		if a.entryCursor >= len(a.todayEntries) {
			a.entryCursor = 0
		}
	case historyMsg:
		a.history = []repository.Entry(m)
		if a.historyCursor >= len(a.history) {
			a.historyCursor = 0
		}
	case statsMsg:
		a.stats = m.stats
	case streakMsg:
		a.streak = service.Streak(m)
	case promptsMsg:
		a.prompts = []repository.Prompt(m)
		if a.promptIdx >= len(a.prompts) {
			a.promptIdx = 0
		}
	case reminderMsg:
		if m.reminder != nil {
			a.remHour = m.reminder.Hour
			a.remMinute = m.reminder.Minute
			a.remEnabled = m.reminder.Enabled
		}
	case sessionMsg:
		a.session = m.session
		if a.session == nil {
			a.routes.Reset(viewLogin)
		}

	case magicLinkSentMsg:
		a.loginStage = stageCode
		text := "sign-in code sent to " + a.emailInput
		if m.shared {
			text = "a code is already on its way to " + a.emailInput
		}
		return a, a.showStatus(statusInfo, text)
	case signedInMsg:
		a.session = m.session
		a.codeInput = ""
		a.loginStage = stageEmail
		a.routes.Reset(viewToday)
		return a, tea.Batch(a.showStatus(statusSuccess, "signed in as "+m.session.Email), a.loadToday(), a.loadStreak())
	case signedOutMsg:
		a.session = nil
		a.emailInput = ""
		a.routes.Reset(viewLogin)
		return a, a.showStatus(statusInfo, "signed out")

	case reminderTickMsg:
		return a, tea.Batch(a.checkReminder(), reminderTick())
	case reminderDueMsg:
		a.reminderDue = true
		return a, tea.Batch(
			a.showStatus(statusReminder, "time to note what you're grateful for today ([z] snooze)"),
			a.markReminderCmd(),
		)

	case statusRequestMsg:
		return a, a.showStatus(m.kind, m.text)
	case statusDoneMsg:
		a.banner.Finish(m.name)
		if cur := a.banner.Running(); cur != "" {
			return a, tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusDoneMsg{name: cur} })
		}
		a.status = ""
	case errMsg:
		return a, a.showStatus(statusError, "error: "+m.Error())
	}
	return a, nil
}

// staleResult reports whether msg carries the outcome of async work whose
// owner has since been torn down.
func (a *App) staleResult(msg tea.Msg) bool {
	switch msg.(type) {
	case todayMsg, historyMsg, statsMsg, streakMsg, promptsMsg, reminderMsg, sessionMsg,
		magicLinkSentMsg, signedInMsg, signedOutMsg, reminderDueMsg, reminderTickMsg,
		statusRequestMsg, statusDoneMsg, errMsg:
		return !a.life.Admits(lifecycle.Conditions{Mounted: true})
	}
	return false
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.modal != modalNone {
		return a.handleModalKey(m)
	}
	switch m.String() {
	case "q", "ctrl+c":
		a.life.Unmount()
		return a, tea.Quit
	case "esc":
		a.routes.Back()
		return a, nil
	}

	switch a.stack.Current() {
	case viewLogin:
		return a.handleLoginKey(m)
	case viewHistory:
		return a.handleHistoryKey(m)
	case viewStats:
		return a.handleStatsKey(m)
	case viewSettings:
		return a.handleSettingsKey(m)
	default:
		return a.handleTodayKey(m)
	}
}

func (a *App) handleTodayKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "h":
		if a.routes.Navigate(viewHistory) {
			return a, a.loadHistory()
		}
	case "s":
		if a.routes.Navigate(viewStats) {
			return a, tea.Batch(a.loadStats(), a.loadStreak())
		}
	case "p":
		if a.routes.Navigate(viewSettings) {
			return a, a.loadReminder()
		}
	case "up", "k":
		if a.entryCursor > 0 {
			a.entryCursor--
		}
	case "down", "j":
		if a.entryCursor < len(a.todayEntries)-1 {
			a.entryCursor++
		}
	case "tab":
		if len(a.prompts) > 0 {
			a.promptIdx = (a.promptIdx + 1) % len(a.prompts)
		}
	case "n":
		a.modal = modalNewEntry
		a.inputBuffer = ""
	case "e":
		if len(a.todayEntries) > 0 {
			e := a.todayEntries[a.entryCursor]
			a.modal = modalEditEntry
			a.editingID = e.ID
			a.inputBuffer = e.Text
		}
	case "m":
		if len(a.todayEntries) > 0 {
			e := a.todayEntries[a.entryCursor]
			return a, a.updateMoodCmd(e.ID, e.Mood%5+1)
		}
	case "backspace", "delete":
		if len(a.todayEntries) > 0 {
			a.modal = modalConfirmDelete
			a.editingID = a.todayEntries[a.entryCursor].ID
		}
	case "z":
		if a.reminderDue {
			a.reminderDue = false
			return a, a.snoozeReminderCmd()
		}
	}
	return a, nil
}

func (a *App) handleHistoryKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "t":
		a.routes.Navigate(viewToday)
	case "s":
		if a.routes.Navigate(viewStats) {
			return a, tea.Batch(a.loadStats(), a.loadStreak())
		}
	case "left":
		a.month = a.month.AddDate(0, -1, 0)
		a.historyCursor = 0
		return a, a.loadHistory()
	case "right":
		a.month = a.month.AddDate(0, 1, 0)
		a.historyCursor = 0
		return a, a.loadHistory()
	case "up", "k":
		if a.historyCursor > 0 {
			a.historyCursor--
		}
	case "down", "j":
		if a.historyCursor < len(a.history)-1 {
			a.historyCursor++
		}
	}
	return a, nil
}

func (a *App) handleStatsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "t":
		a.routes.Navigate(viewToday)
	case "h":
		if a.routes.Navigate(viewHistory) {
			return a, a.loadHistory()
		}
	case "left":
		a.month = a.month.AddDate(0, -1, 0)
		return a, a.loadStats()
	case "right":
		a.month = a.month.AddDate(0, 1, 0)
		return a, a.loadStats()
	}
	return a, nil
}

func (a *App) handleSettingsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "t":
		a.routes.Navigate(viewToday)
	case "r":
		a.remEnabled = !a.remEnabled
	case "up", "k":
		a.remHour = (a.remHour + 1) % 24
	case "down", "j":
		a.remHour = (a.remHour + 23) % 24
	case "left":
		a.remMinute = (a.remMinute + 45) % 60
	case "right":
		a.remMinute = (a.remMinute + 15) % 60
	case "enter":
		return a, a.saveReminderCmd()
	case "o":
		if a.session != nil {
			return a, a.signOutCmd()
		}
		a.routes.Navigate(viewLogin)
	}
	return a, nil
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	buf := &a.emailInput
	if a.loginStage == stageCode {
		buf = &a.codeInput
	}
	switch m.Type {
	case tea.KeyEnter:
		if a.loginStage == stageEmail {
			email := strings.TrimSpace(a.emailInput)
			if email == "" || !strings.Contains(email, "@") {
				return a, a.showStatus(statusError, "enter a valid email address")
			}
			if a.services.Auth.Sending() {
				return a, a.showStatus(statusInfo, "already sending, hold on")
			}
			return a, a.sendMagicLinkCmd(email)
		}
		code := strings.TrimSpace(a.codeInput)
		if code == "" {
			return a, a.showStatus(statusError, "enter the code from your email")
		}
		return a, a.confirmCodeCmd(strings.TrimSpace(a.emailInput), code)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(*buf) > 0 {
			*buf = (*buf)[:len(*buf)-1]
		}
	case tea.KeySpace:
		*buf += " "
	case tea.KeyRunes:
		*buf += string(m.Runes)
	}
	if m.String() == "ctrl+b" && a.loginStage == stageCode {
		a.loginStage = stageEmail
		a.codeInput = ""
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalNewEntry, modalEditEntry:
		switch m.Type {
		case tea.KeyEsc:
			a.modal = modalNone
			a.inputBuffer = ""
		case tea.KeyEnter:
			text := strings.TrimSpace(a.inputBuffer)
			if text == "" {
				return a, a.showStatus(statusError, "write something first")
			}
			if a.modal == modalNewEntry {
				a.modal = modalPickMood
				return a, nil
			}
			a.modal = modalNone
			a.inputBuffer = ""
			return a, a.editEntryCmd(a.editingID, text)
		case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
			if len(a.inputBuffer) > 0 {
				a.inputBuffer = a.inputBuffer[:len(a.inputBuffer)-1]
			}
		case tea.KeySpace:
			a.inputBuffer += " "
		case tea.KeyRunes:
			a.inputBuffer += string(m.Runes)
		}
	case modalPickMood:
		switch m.String() {
		case "esc":
			a.modal = modalNewEntry
		case "1", "2", "3", "4", "5":
			mood := int(m.String()[0] - '0')
			text := strings.TrimSpace(a.inputBuffer)
			a.modal = modalNone
			a.inputBuffer = ""
			return a, a.addEntryCmd(text, mood)
		}
	case modalConfirmDelete:
		switch m.String() {
		case "y", "Y":
			id := a.editingID
			a.modal = modalNone
			a.editingID = ""
			return a, a.removeEntryCmd(id)
		case "n", "N", "esc":
			a.modal = modalNone
			a.editingID = ""
		}
	}
	return a, nil
}

// commands

func (a *App) addEntryCmd(text string, mood int) tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			err := a.life.Run(lifecycle.KindMutation, func() error {
				_, err := a.services.Entries.AddEntry(a.ctx, text, mood)
				return err
			})
			if err != nil {
				if errors.Is(err, service.ErrDuplicateEntry) {
					return statusRequestMsg{kind: statusError, text: "you already wrote that today"}
				}
				return errMsg{err}
			}
			return statusRequestMsg{kind: statusSuccess, text: "entry saved"}
		},
		a.loadToday(),
		a.loadStreak(),
	)
}

func (a *App) editEntryCmd(id, text string) tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			err := a.life.Run(lifecycle.KindMutation, func() error {
				return a.services.Entries.EditEntry(a.ctx, id, text)
			})
			if err != nil {
				return errMsg{err}
			}
			return statusRequestMsg{kind: statusSuccess, text: "entry updated"}
		},
		a.loadToday(),
	)
}

func (a *App) updateMoodCmd(id string, mood int) tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			err := a.life.Run(lifecycle.KindMutation, func() error {
				return a.repos.Entries.UpdateMood(a.ctx, id, mood)
			})
			if err != nil {
				return errMsg{err}
			}
			return nil
		},
		a.loadToday(),
	)
}

func (a *App) removeEntryCmd(id string) tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			err := a.life.Run(lifecycle.KindMutation, func() error {
				return a.services.Entries.RemoveEntry(a.ctx, id)
			})
			if err != nil {
				return errMsg{err}
			}
			return statusRequestMsg{kind: statusSuccess, text: "entry removed"}
		},
		a.loadToday(),
		a.loadStreak(),
	)
}

func (a *App) saveReminderCmd() tea.Cmd {
	hour, minute, enabled := a.remHour, a.remMinute, a.remEnabled
	return func() tea.Msg {
		err := a.life.Run(lifecycle.KindMutation, func() error {
			if err := a.services.Reminders.Configure(a.ctx, hour, minute, enabled); err != nil {
				return err
			}
			a.cfg.Reminder.Hour = hour
			a.cfg.Reminder.Minute = minute
			a.cfg.Reminder.Enabled = enabled
			return config.Save(a.cfg)
		})
		if err != nil {
			return errMsg{err}
		}
		return statusRequestMsg{kind: statusSuccess, text: "reminder saved"}
	}
}

func (a *App) sendMagicLinkCmd(email string) tea.Cmd {
	return func() tea.Msg {
		var shared bool
		err := a.life.Run(lifecycle.KindMutation, func() error {
			var err error
			shared, err = a.services.Auth.SendMagicLink(a.ctx, email)
			return err
		})
		if err != nil {
			return errMsg{err}
		}
		return magicLinkSentMsg{shared: shared}
	}
}

func (a *App) confirmCodeCmd(email, code string) tea.Cmd {
	return func() tea.Msg {
		var sess *repository.Session
		err := a.life.Run(lifecycle.KindMutation, func() error {
			var err error
			sess, err = a.services.Auth.ConfirmMagicLink(a.ctx, email, code)
			return err
		})
		if err != nil {
			return errMsg{err}
		}
		return signedInMsg{session: sess}
	}
}

func (a *App) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		err := a.life.Run(lifecycle.KindMutation, func() error {
			return a.services.Auth.SignOut(a.ctx)
		})
		if err != nil {
			return errMsg{err}
		}
		return signedOutMsg{}
	}
}

func (a *App) checkReminder() tea.Cmd {
	return func() tea.Msg {
		v, ok := a.life.SafeRun(lifecycle.KindTimer, func() (any, error) {
			return a.services.Reminders.Due(a.ctx)
		})
		if !ok || !v.(bool) {
			return nil
		}
		return reminderDueMsg{}
	}
}

func (a *App) markReminderCmd() tea.Cmd {
	return func() tea.Msg {
		err := a.life.Run(lifecycle.KindMutation, func() error {
			return a.services.Reminders.MarkDelivered(a.ctx)
		})
		if err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) snoozeReminderCmd() tea.Cmd {
	return func() tea.Msg {
		err := a.life.Run(lifecycle.KindMutation, func() error {
			return a.services.Reminders.Snooze(a.ctx, time.Hour)
		})
		if err != nil {
			return errMsg{err}
		}
		return statusRequestMsg{kind: statusInfo, text: "reminder snoozed for an hour"}
	}
}

func reminderTick() tea.Cmd {
	return tea.Tick(30*time.Second, func(time.Time) tea.Msg { return reminderTickMsg{} })
}

// showStatus runs text through the banner sequencer so a routine confirmation
// never papers over an error that is still on screen.
func (a *App) showStatus(kind statusKind, text string) tea.Cmd {
	a.statusSeq++
	name := fmt.Sprintf("banner-%d", a.statusSeq)
	a.banner.Play(anim.Animation{
		Name:     name,
		Priority: int(kind),
		Start: func() {
			a.status = text
			a.statusKind = kind
		},
	})
	if a.banner.Running() != name {
		// queued behind a higher-priority banner; its expiry arms our tick
		return nil
	}
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusDoneMsg{name: name} })
}

// messages

type todayMsg []repository.Entry

type historyMsg []repository.Entry

type statsMsg struct{ stats *service.MonthStats }

type streakMsg service.Streak

type promptsMsg []repository.Prompt

type reminderMsg struct{ reminder *repository.Reminder }

type sessionMsg struct{ session *repository.Session }

type magicLinkSentMsg struct{ shared bool }

type signedInMsg struct{ session *repository.Session }

type signedOutMsg struct{}

type reminderTickMsg struct{}

type reminderDueMsg struct{}

type statusRequestMsg struct {
	kind statusKind
	text string
}

type statusDoneMsg struct{ name string }

type errMsg struct{ error }
