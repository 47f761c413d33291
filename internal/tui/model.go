// Package tui provides the Bubble Tea race interface.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/mathrace/internal/model"
	"github.com/verte-zerg/mathrace/internal/race"
)

const clockInterval = 200 * time.Millisecond

// RunRecorder stores completed runs. *store.Store satisfies it.
type RunRecorder interface {
	InsertRun(ctx context.Context, run model.RunRecord) error
}

type timerMsg struct {
	timer race.Timer
	token uint64
}

type statsMsg race.StatsResult

type finishMsg race.FinishResult

type clockMsg time.Time

// Model implements the Bubble Tea race UI.
type Model struct {
	session  *race.Session
	recorder RunRecorder
	log      zerolog.Logger

	input textinput.Model
	bar   progress.Model

	width  int
	height int
}

// NewModel constructs a race TUI model around session. recorder may be nil.
func NewModel(session *race.Session, recorder RunRecorder, log zerolog.Logger) *Model {
	input := textinput.New()
	input.Placeholder = "?"
	input.Prompt = ""
	input.CharLimit = 6
	input.Width = 6
	input.Focus()

	bar := progress.New(
		progress.WithSolidFill(string(accentColor)),
		progress.WithoutPercentage(),
		progress.WithWidth(40),
	)

	return &Model{
		session:  session,
		recorder: recorder,
		log:      log,
		input:    input,
		bar:      bar,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		fetchStats(m.session.FetchStats()),
		clockTick(),
	)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(40, msg.Width-20))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case timerMsg:
		if m.session.Fire(msg.timer, msg.token) && msg.timer == race.TimerAutoReset {
			m.input.Reset()
		}
		return m, nil
	case statsMsg:
		m.session.ApplyStats(race.StatsResult(msg))
		return m, nil
	case finishMsg:
		res := race.FinishResult(msg)
		m.session.ApplyFinish(res)
		m.recordRun(res)
		return m, nil
	case clockMsg:
		return m, clockTick()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyCtrlR:
		m.reset()
		return m, nil
	case tea.KeyEnter:
		if m.session.Won() {
			m.reset()
			return m, nil
		}
		return m, m.submit()
	}
	if m.session.Won() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	res := m.session.Submit(m.input.Value())
	if res.ClearInput {
		m.input.Reset()
	}
	cmds := make([]tea.Cmd, 0, len(res.Schedules)+1)
	for _, sc := range res.Schedules {
		cmds = append(cmds, schedule(sc))
	}
	if res.Finish != nil {
		cmds = append(cmds, reportFinish(*res.Finish))
	}
	return tea.Batch(cmds...)
}

func (m *Model) reset() {
	m.session.Reset()
	m.input.Reset()
}

func (m *Model) recordRun(res race.FinishResult) {
	if m.recorder == nil {
		return
	}
	run := model.RunRecord{
		ID:         uuid.NewString(),
		StartedAt:  res.Report.StartedAt,
		EndedAt:    res.Report.EndedAt,
		UserID:     res.Report.Request.UserID,
		TimeMs:     res.Report.Request.TimeMs,
		WrongCount: res.Report.Request.WrongCount,
		IsNewBest:  res.Report.IsNewBest,
		Reported:   res.Err == nil,
	}
	if err := m.recorder.InsertRun(context.Background(), run); err != nil {
		m.log.Error().Err(err).Msg("failed to save run")
	}
}

func schedule(sc race.Schedule) tea.Cmd {
	return tea.Tick(sc.After, func(time.Time) tea.Msg {
		return timerMsg{timer: sc.Timer, token: sc.Token}
	})
}

func fetchStats(f race.StatsFetch) tea.Cmd {
	return func() tea.Msg {
		return statsMsg(f.Do(context.Background()))
	}
}

func reportFinish(f race.FinishReport) tea.Cmd {
	return func() tea.Msg {
		return finishMsg(f.Do(context.Background()))
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}
