package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/mathrace/internal/model"
	"github.com/verte-zerg/mathrace/internal/race"
	"github.com/verte-zerg/mathrace/internal/stats"
)

const (
	trackWidth   = 32
	winFallback  = "Wonderful job! You're getting faster."
	newBestBadge = "New High Score!"
)

var (
	accentColor = lipgloss.Color("#9DB8A3")
	mutedColor  = lipgloss.Color("#A09A92")

	labelStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	stepsStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Padding(1, 0)
	trackStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A6840")).Background(lipgloss.Color("#D6E8D8")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A3A30")).Background(lipgloss.Color("#F0DBD6")).Padding(0, 1)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#92400E")).Background(lipgloss.Color("#FEF3C7")).Bold(true).Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#D4CEC6"))
	panelStyle = lipgloss.NewStyle().
			Padding(1, 3).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(accentColor)
)

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	if m.session.Won() {
		content = m.renderWin()
	} else {
		content = m.renderRace()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderRace() string {
	q := m.session.Question()
	steps := m.session.Steps()
	parts := []string{
		renderStats(m.session.Stats()),
		"",
		stepsStyle.Render(fmt.Sprintf("%d / %d", steps, model.WinSteps)),
		m.bar.ViewAs(float64(steps) / float64(model.WinSteps)),
		trackStyle.Render(renderTrack(steps, trackWidth)),
		questionStyle.Render(fmt.Sprintf("%d + %d = ?", q.A, q.B)),
		m.renderInput(),
		renderMessage(m.session.Message()),
		footerStyle.Render(fmt.Sprintf("%s  ·  enter check  ·  ctrl+r restart  ·  esc quit", formatElapsed(m.session))),
	}
	return lipgloss.JoinVertical(lipgloss.Center, parts...)
}

func (m *Model) renderInput() string {
	style := inputStyle
	switch m.session.Message().Kind {
	case race.MessageError:
		style = style.BorderForeground(lipgloss.Color("#C9A89A"))
	case race.MessageSuccess:
		style = style.BorderForeground(accentColor)
	}
	box := style.Render(m.input.View())
	if m.session.Shaking() {
		// Nudge the box sideways while the wrong-answer cue is active.
		return lipgloss.NewStyle().PaddingLeft(2).Render(box)
	}
	return box
}

func (m *Model) renderWin() string {
	last := m.session.LastRun()
	st := m.session.Stats()
	var lines []string
	if last.IsNewBest {
		lines = append(lines, badgeStyle.Render(newBestBadge), "")
	}
	text := m.session.Message().Text
	if text == "" {
		text = winFallback
	}
	lines = append(lines,
		labelStyle.Render("RACE COMPLETE"),
		valueStyle.Render("🏁 Success!"),
		"",
		fmt.Sprintf("%s %s    %s %s",
			labelStyle.Render("Time taken"), valueStyle.Render(stats.FormatClock(&last.TimeMs)),
			labelStyle.Render("Best time"), stepsStyle.Render(stats.FormatClock(st.BestTimeMs)),
		),
		"",
		text,
		"",
		footerStyle.Render("enter play again  ·  esc quit"),
	)
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func renderStats(st model.Stats) string {
	return strings.Join([]string{
		labelStyle.Render("Streak ") + valueStyle.Render(fmt.Sprintf("%d 🔥", st.CurrentStreak)),
		labelStyle.Render("Best streak ") + valueStyle.Render(fmt.Sprintf("%d 🏆", st.BestStreak)),
		labelStyle.Render("Best time ") + valueStyle.Render(stats.FormatSeconds(st.BestTimeMs)+" ⚡"),
	}, "   ")
}

func renderMessage(msg race.Message) string {
	switch msg.Kind {
	case race.MessageSuccess:
		return successStyle.Render(msg.Text)
	case race.MessageError:
		return errorStyle.Render(msg.Text)
	default:
		return " "
	}
}

// renderTrack draws the car at its share of the distance to the flag.
func renderTrack(steps, width int) string {
	if width < 3 {
		width = 3
	}
	lane := width - 2
	pos := steps * lane / model.WinSteps
	pos = max(0, min(pos, lane))
	return strings.Repeat("·", pos) + ">" + strings.Repeat("·", lane-pos) + "|"
}

func formatElapsed(s *race.Session) string {
	ms := s.Elapsed().Milliseconds()
	return stats.FormatClock(&ms)
}
