package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styles
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	reminderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
)

func (a *App) View() string {
	var body string
	switch a.stack.Current() {
	case viewLogin:
		body = a.renderLogin()
	case viewHistory:
		body = a.renderHistory()
	case viewStats:
		body = a.renderStats()
	case viewSettings:
		body = a.renderSettings()
	default:
		body = a.renderToday()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	if a.status != "" {
		body += "\n" + a.renderStatus()
	}
	return body
}

func (a *App) renderStatus() string {
	switch a.statusKind {
	case statusError:
		return errorStyle.Render(a.status)
	case statusSuccess:
		return successStyle.Render(a.status)
	case statusReminder:
		return reminderStyle.Render(a.status)
	default:
		return a.status
	}
}

func (a *App) renderToday() string {
	title := titleStyle.Render("Yeşer - " + time.Now().In(a.tz).Format("Monday, 02 January"))
	out := title + "\n"
	if a.streak.Current > 0 {
		out += fmt.Sprintf("Streak: %d day(s)  (longest %d)\n", a.streak.Current, a.streak.Longest)
	}
	if len(a.prompts) > 0 {
		out += mutedStyle.Render("Prompt: "+a.prompts[a.promptIdx].Text+"  [tab] next prompt") + "\n"
	}
	out += "\n"
	if len(a.todayEntries) == 0 {
		out += "Nothing written today yet. Press [n] to add your first entry.\n"
	}
	for i, e := range a.todayEntries {
		marker := " "
		if i == a.entryCursor {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %s  %s\n", marker, moodGlyphs(e.Mood), e.Text)
	}
	out += "\n[n] New  [e] Edit  [m] Mood  [del] Delete  [h] History  [s] Stats  [p] Settings  [q] Quit"
	return out
}

func (a *App) renderHistory() string {
	title := titleStyle.Render("History - " + a.month.Format("January 2006"))
	out := title + "\n"
	if len(a.history) == 0 {
		out += "No entries this month.\n"
	}
	lastDay := ""
	for i, e := range a.history {
		if e.Day != lastDay {
			out += mutedStyle.Render(e.Day) + "\n"
			lastDay = e.Day
		}
		marker := " "
		if i == a.historyCursor {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %s  %s\n", marker, moodGlyphs(e.Mood), e.Text)
	}
	out += "\n[←/→] Month  [t] Today  [s] Stats  [esc] Back  [q] Quit"
	return out
}

func (a *App) renderStats() string {
	title := titleStyle.Render("Stats - " + a.month.Format("January 2006"))
	out := title + "\n"
	if a.stats == nil {
		out += "Loading...\n"
	} else {
		out += fmt.Sprintf("Entries: %d  Active days: %d\n", a.stats.Entries, a.stats.ActiveDays)
		if a.stats.MoodAverage > 0 {
			out += fmt.Sprintf("Average mood: %.1f/5\n", a.stats.MoodAverage)
		}
		if a.streak.Current > 0 || a.streak.Longest > 0 {
			out += fmt.Sprintf("Streak: %d current, %d longest\n", a.streak.Current, a.streak.Longest)
		}
		if len(a.stats.MoodByDay) > 0 {
			out += "\nMood by day:\n"
			for _, dm := range a.stats.MoodByDay {
				bar := strings.Repeat("█", int(dm.Average+0.5))
				out += fmt.Sprintf("  %s  %-5s %.1f (%d)\n", dm.Day, bar, dm.Average, dm.Count)
			}
		}
	}
	out += "\n[←/→] Month  [t] Today  [h] History  [esc] Back  [q] Quit"
	return out
}

func (a *App) renderSettings() string {
	title := titleStyle.Render("Settings")
	out := title + "\n"
	enabled := "off"
	if a.remEnabled {
		enabled = "on"
	}
	out += fmt.Sprintf("Daily reminder: %s at %02d:%02d\n", enabled, a.remHour, a.remMinute)
	out += "[r] Toggle  [↑/↓] Hour  [←/→] Minute  [enter] Save\n\n"
	if a.session != nil {
		out += fmt.Sprintf("Signed in as %s\n[o] Sign out\n", a.session.Email)
	} else {
		out += "Not signed in\n[o] Sign in\n"
	}
	out += mutedStyle.Render(fmt.Sprintf("Timezone: %s  Date format: %s", a.cfg.UI.Timezone, a.dateFormat)) + "\n"
	out += "\n[t] Today  [esc] Back  [q] Quit"
	return out
}

func (a *App) renderLogin() string {
	title := titleStyle.Render("Sign in")
	out := title + "\n"
	if a.loginStage == stageEmail {
		out += fmt.Sprintf("Email: %s\n", a.emailInput)
		out += "Type your email and press Enter to receive a sign-in code."
		if a.services.Auth.Sending() {
			out += "\n" + mutedStyle.Render("sending...")
		}
	} else {
		out += fmt.Sprintf("Code for %s: %s\n", a.emailInput, a.codeInput)
		out += "Enter the code from your email. [ctrl+b] Different email"
	}
	out += "\n\n[q] Quit"
	return out
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalNewEntry:
		return titleStyle.Render("What are you grateful for?") + fmt.Sprintf("\n%s\n[enter] Next  [esc] Cancel", a.inputBuffer)
	case modalPickMood:
		return titleStyle.Render("How do you feel?") + "\n[1] ▁  [2] ▂  [3] ▄  [4] ▆  [5] █\n[esc] Back to text"
	case modalEditEntry:
		return titleStyle.Render("Edit entry") + fmt.Sprintf("\n%s\n[enter] Save  [esc] Cancel", a.inputBuffer)
	case modalConfirmDelete:
		return titleStyle.Render("Delete this entry?") + "\n[y] Yes  [n] No"
	default:
		return ""
	}
}

func moodGlyphs(mood int) string {
	if mood < 1 {
		mood = 1
	}
	if mood > 5 {
		mood = 5
	}
	return strings.Repeat("●", mood) + strings.Repeat("○", 5-mood)
}
