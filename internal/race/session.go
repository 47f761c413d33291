// Package race implements the addition race session state machine.
//
// A Session is driven by a single event loop: Submit and Reset come from the
// player, Fire from expired timers, and ApplyStats/ApplyFinish from completed
// remote calls. Remote calls are described by StatsFetch and FinishReport
// values whose Do methods never touch the session, so the host may run them on
// any goroutine and feed the results back through the loop. A Session is not
// safe for concurrent use.
package race

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/mathrace/internal/generator"
	"github.com/verte-zerg/mathrace/internal/model"
	"github.com/verte-zerg/mathrace/internal/statsclient"
)

// Player-facing texts.
const (
	TextNotANumber = "Please enter a number."
	TextWrong      = "Not quite — try again."
	TextFinishFail = "Finish line! Great job!"
	TextFinishOK   = "Amazing!"
)

// Praise is the set of encouragement messages shown after a correct answer.
var Praise = []string{"Well done", "Correct", "Nicely done", "Great work", "Excellent", "Keep it up"}

// MessageKind classifies transient feedback.
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessageSuccess
	MessageError
	MessageWin
)

// Message is transient feedback for the player.
type Message struct {
	Text string
	Kind MessageKind
}

// Outcome describes what a submission did.
type Outcome int

const (
	// OutcomeIgnored means the run is already won.
	OutcomeIgnored Outcome = iota
	// OutcomeInvalid means the input was not a number.
	OutcomeInvalid
	// OutcomeWrong means a numeric answer did not match.
	OutcomeWrong
	// OutcomeCorrect means progress advanced and a new question is up.
	OutcomeCorrect
	// OutcomeFinished means the final question was answered.
	OutcomeFinished
)

// StatsClient is the remote stats service. *statsclient.Client satisfies it.
type StatsClient interface {
	FetchStats(ctx context.Context, userID string) (model.Stats, error)
	ReportFinish(ctx context.Context, finish statsclient.FinishRequest) (statsclient.FinishResponse, error)
}

// Options configures a Session.
type Options struct {
	UserID    string
	Client    StatsClient
	Generator *generator.Generator
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Result reports the effects of Submit.
type Result struct {
	Outcome    Outcome
	Err        error
	ClearInput bool
	Schedules  []Schedule
	// Finish is set when the run was completed and must be reported.
	Finish *FinishReport
}

// Session owns the state of one player's race.
type Session struct {
	userID string
	client StatsClient
	gen    *generator.Generator
	now    func() time.Time
	log    zerolog.Logger

	steps      int
	wrongCount int
	question   model.Question
	startedAt  time.Time
	won        bool
	message    Message
	shaking    bool
	lastRun    model.LastRun

	stats      model.Stats
	statsFresh bool

	run        uint64
	fetchToken uint64
	timers     timers
}

// New creates a session in the Playing state with the timer started.
func New(opts Options) *Session {
	s := &Session{
		userID: opts.UserID,
		client: opts.Client,
		gen:    opts.Generator,
		now:    opts.Now,
		log:    opts.Logger,
	}
	if s.gen == nil {
		s.gen = generator.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.begin()
	return s
}

func (s *Session) begin() {
	s.run++
	s.steps = 0
	s.wrongCount = 0
	s.question = s.gen.Question()
	s.startedAt = s.now()
	s.won = false
	s.message = Message{}
	s.shaking = false
	s.timers.disarmAll()
}

// UserID returns the player identifier the session reports under.
func (s *Session) UserID() string { return s.userID }

// Steps returns the number of correct answers in the current run.
func (s *Session) Steps() int { return s.steps }

// WrongCount returns the number of wrong answers in the current run.
func (s *Session) WrongCount() int { return s.wrongCount }

// Question returns the problem currently shown.
func (s *Session) Question() model.Question { return s.question }

// StartedAt returns when the current run began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Won reports whether the current run is complete.
func (s *Session) Won() bool { return s.won }

// Message returns the pending feedback message.
func (s *Session) Message() Message { return s.message }

// Shaking reports whether the wrong-answer cue is active.
func (s *Session) Shaking() bool { return s.shaking }

// LastRun returns the most recently completed run.
func (s *Session) LastRun() model.LastRun { return s.lastRun }

// Stats returns the cached copy of the remote stats.
func (s *Session) Stats() model.Stats { return s.stats }

// Elapsed returns the time spent in the current run so far.
func (s *Session) Elapsed() time.Duration {
	if s.won {
		return time.Duration(s.lastRun.TimeMs) * time.Millisecond
	}
	d := s.now().Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Submit evaluates a raw answer.
func (s *Session) Submit(raw string) Result {
	if s.won {
		return Result{Outcome: OutcomeIgnored}
	}
	val, err := ParseAnswer(raw)
	if err != nil {
		return Result{
			Outcome:   OutcomeInvalid,
			Err:       err,
			Schedules: []Schedule{s.setMessage(Message{Text: TextNotANumber, Kind: MessageError})},
		}
	}

	if val != s.question.Answer {
		s.wrongCount++
		s.shaking = true
		return Result{
			Outcome:    OutcomeWrong,
			ClearInput: true,
			Schedules: []Schedule{
				s.setMessage(Message{Text: TextWrong, Kind: MessageError}),
				s.timers.arm(TimerShake),
			},
		}
	}

	s.steps++
	if s.steps < model.WinSteps {
		s.question = s.gen.Question()
		praise := s.gen.Pick(Praise)
		return Result{
			Outcome:    OutcomeCorrect,
			ClearInput: true,
			Schedules:  []Schedule{s.setMessage(Message{Text: praise, Kind: MessageSuccess})},
		}
	}
	return s.finish()
}

func (s *Session) finish() Result {
	endedAt := s.now()
	elapsed := endedAt.Sub(s.startedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	best := s.stats.BestTimeMs
	isNewBest := best == nil || elapsed < *best

	s.lastRun = model.LastRun{TimeMs: elapsed, IsNewBest: isNewBest}
	s.won = true
	s.shaking = false
	s.message = Message{}
	s.timers.disarm(TimerMessage)
	s.timers.disarm(TimerShake)

	s.log.Info().
		Int64("time_ms", elapsed).
		Int("wrong_count", s.wrongCount).
		Bool("new_best", isNewBest).
		Msg("run finished")

	return Result{
		Outcome:   OutcomeFinished,
		Schedules: []Schedule{s.timers.arm(TimerAutoReset)},
		Finish: &FinishReport{
			run:    s.run,
			client: s.client,
			Request: statsclient.FinishRequest{
				UserID:     s.userID,
				TimeMs:     elapsed,
				WrongCount: s.wrongCount,
			},
			StartedAt: s.startedAt,
			EndedAt:   endedAt,
			IsNewBest: isNewBest,
		},
	}
}

// Reset starts a new run. It is valid in any state and invalidates pending
// timers and outstanding finish reports of the previous run.
func (s *Session) Reset() {
	s.begin()
}

// Fire handles an expired timer. It returns false when the token was
// superseded and nothing happened.
func (s *Session) Fire(kind Timer, token uint64) bool {
	if !s.timers.live(kind, token) {
		return false
	}
	s.timers.disarm(kind)
	switch kind {
	case TimerMessage:
		if s.message.Kind == MessageSuccess || s.message.Kind == MessageError {
			s.message = Message{}
		}
	case TimerShake:
		s.shaking = false
	case TimerAutoReset:
		s.log.Debug().Msg("auto reset after win")
		s.Reset()
	}
	return true
}

func (s *Session) setMessage(msg Message) Schedule {
	s.message = msg
	return s.timers.arm(TimerMessage)
}

// FetchStats describes a stats request. Issuing a new one makes earlier ones
// stale, and its result replaces stats that arrived with a finish.
func (s *Session) FetchStats() StatsFetch {
	s.fetchToken++
	s.statsFresh = false
	return StatsFetch{token: s.fetchToken, userID: s.userID, client: s.client}
}

// ApplyStats installs fetched stats. Failures keep the defaults. Results are
// dropped when stale or when fresher stats already arrived with a finish.
func (s *Session) ApplyStats(r StatsResult) bool {
	if r.token != s.fetchToken || s.statsFresh {
		s.log.Debug().Msg("dropping superseded stats fetch")
		return false
	}
	if r.Err != nil {
		s.log.Warn().Err(r.Err).Msg("using default stats")
		return false
	}
	s.stats = r.Stats
	return true
}

// ApplyFinish installs the outcome of a finish report. Results belonging to
// a run that was reset are discarded.
func (s *Session) ApplyFinish(r FinishResult) bool {
	if r.run != s.run || !s.won {
		s.log.Debug().Msg("dropping finish result of superseded run")
		return false
	}
	if r.Err != nil {
		s.log.Warn().Err(r.Err).Msg("finish not reported")
		s.message = Message{Text: TextFinishFail, Kind: MessageWin}
		return true
	}
	text := r.Response.Message
	if text == "" {
		text = TextFinishOK
	}
	s.message = Message{Text: text, Kind: MessageWin}
	if r.Response.Stats != nil {
		s.stats = *r.Response.Stats
		s.statsFresh = true
	}
	return true
}
