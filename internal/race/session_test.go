package race

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/mathrace/internal/generator"
	"github.com/verte-zerg/mathrace/internal/model"
	"github.com/verte-zerg/mathrace/internal/statsclient"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeClient struct {
	stats     model.Stats
	fetchErr  error
	resp      statsclient.FinishResponse
	finishErr error
	reports   []statsclient.FinishRequest
}

func (f *fakeClient) FetchStats(context.Context, string) (model.Stats, error) {
	return f.stats, f.fetchErr
}

func (f *fakeClient) ReportFinish(_ context.Context, req statsclient.FinishRequest) (statsclient.FinishResponse, error) {
	f.reports = append(f.reports, req)
	return f.resp, f.finishErr
}

func newTestSession(t *testing.T, client StatsClient) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(Options{
		UserID:    "user_abc123xyz",
		Client:    client,
		Generator: generator.NewWithSeed(42),
		Now:       clock.Now,
		Logger:    zerolog.Nop(),
	})
	return s, clock
}

func answer(s *Session) string {
	return strconv.Itoa(s.Question().Answer)
}

func int64Ptr(v int64) *int64 { return &v }

func findSchedule(t *testing.T, res Result, kind Timer) Schedule {
	t.Helper()
	for _, sc := range res.Schedules {
		if sc.Timer == kind {
			return sc
		}
	}
	t.Fatalf("no %s schedule in %+v", kind, res.Schedules)
	return Schedule{}
}

func TestNewSessionInitialState(t *testing.T) {
	s, clock := newTestSession(t, &fakeClient{})
	if s.Steps() != 0 || s.WrongCount() != 0 || s.Won() {
		t.Fatalf("unexpected initial state: steps=%d wrong=%d won=%v", s.Steps(), s.WrongCount(), s.Won())
	}
	if !s.StartedAt().Equal(clock.t) {
		t.Fatalf("expected start time %v, got %v", clock.t, s.StartedAt())
	}
	q := s.Question()
	if q.Answer != q.A+q.B {
		t.Fatalf("bad question %+v", q)
	}
	if s.Message().Kind != MessageNone {
		t.Fatalf("expected no message")
	}
}

func TestCorrectAnswerAdvances(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	for i := 0; i < model.WinSteps-1; i++ {
		res := s.Submit(answer(s))
		if res.Outcome != OutcomeCorrect {
			t.Fatalf("step %d: expected correct, got %v", i, res.Outcome)
		}
		if s.Steps() != i+1 {
			t.Fatalf("expected steps %d, got %d", i+1, s.Steps())
		}
		if s.Won() {
			t.Fatalf("won too early at step %d", s.Steps())
		}
		if !res.ClearInput || res.Finish != nil {
			t.Fatalf("unexpected result %+v", res)
		}
		msg := s.Message()
		if msg.Kind != MessageSuccess || !contains(Praise, msg.Text) {
			t.Fatalf("expected praise, got %+v", msg)
		}
		findSchedule(t, res, TimerMessage)
	}
}

func TestCorrectAnswerReplacesQuestion(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	// The generator may repeat a problem, so compare against fresh draws from
	// an identically seeded generator instead of the previous question.
	ref := generator.NewWithSeed(42)
	first := ref.Question()
	if s.Question() != first {
		t.Fatalf("expected first question %+v, got %+v", first, s.Question())
	}
	s.Submit(answer(s))
	next := ref.Question()
	if s.Question() != next {
		t.Fatalf("expected replacement question %+v, got %+v", next, s.Question())
	}
}

func TestWinScenarioNewBest(t *testing.T) {
	client := &fakeClient{
		resp: statsclient.FinishResponse{
			Message: "New personal best!",
			Stats:   &model.Stats{CurrentStreak: 1, BestStreak: 1, BestTimeMs: int64Ptr(12340)},
		},
	}
	s, clock := newTestSession(t, client)

	var res Result
	for i := 0; i < model.WinSteps; i++ {
		clock.Advance(2468 * time.Millisecond)
		res = s.Submit(answer(s))
	}
	if res.Outcome != OutcomeFinished {
		t.Fatalf("expected finish, got %v", res.Outcome)
	}
	if !s.Won() || s.Steps() != model.WinSteps {
		t.Fatalf("expected won with %d steps, got won=%v steps=%d", model.WinSteps, s.Won(), s.Steps())
	}
	if got := s.LastRun(); got.TimeMs != 12340 || !got.IsNewBest {
		t.Fatalf("unexpected last run %+v", got)
	}
	if res.Finish == nil {
		t.Fatalf("expected finish report")
	}
	if res.Finish.Request.TimeMs != 12340 || res.Finish.Request.UserID != "user_abc123xyz" || res.Finish.Request.WrongCount != 0 {
		t.Fatalf("unexpected finish request %+v", res.Finish.Request)
	}
	findSchedule(t, res, TimerAutoReset)

	if !s.ApplyFinish(res.Finish.Do(context.Background())) {
		t.Fatalf("expected finish result to apply")
	}
	if msg := s.Message(); msg.Kind != MessageWin || msg.Text != "New personal best!" {
		t.Fatalf("unexpected win message %+v", msg)
	}
	if st := s.Stats(); st.CurrentStreak != 1 || st.BestTimeMs == nil || *st.BestTimeMs != 12340 {
		t.Fatalf("expected stats replaced, got %+v", st)
	}
	if len(client.reports) != 1 {
		t.Fatalf("expected one report, got %d", len(client.reports))
	}
}

func TestIsNewBestComparesAgainstPreRunBest(t *testing.T) {
	cases := []struct {
		name    string
		best    *int64
		elapsed time.Duration
		want    bool
	}{
		{"no best", nil, 30 * time.Second, true},
		{"faster", int64Ptr(10000), 9999 * time.Millisecond, true},
		{"equal", int64Ptr(10000), 10 * time.Second, false},
		{"slower", int64Ptr(10000), 11 * time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{stats: model.Stats{BestTimeMs: tc.best}}
			s, clock := newTestSession(t, client)
			s.ApplyStats(s.FetchStats().Do(context.Background()))
			for i := 0; i < model.WinSteps-1; i++ {
				s.Submit(answer(s))
			}
			clock.Advance(tc.elapsed)
			res := s.Submit(answer(s))
			if res.Outcome != OutcomeFinished {
				t.Fatalf("expected finish, got %v", res.Outcome)
			}
			if got := s.LastRun().IsNewBest; got != tc.want {
				t.Fatalf("expected isNewBest=%v, got %v", tc.want, got)
			}
			if s.LastRun().TimeMs < 0 {
				t.Fatalf("negative time")
			}
		})
	}
}

func TestInvalidInputLeavesStateUnchanged(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	s.Submit(answer(s))
	q := s.Question()
	for _, raw := range []string{"", "abc", "   ", "-", "+", ".5", "x12"} {
		res := s.Submit(raw)
		if res.Outcome != OutcomeInvalid || !errors.Is(res.Err, ErrNotANumber) {
			t.Fatalf("%q: expected invalid, got %+v", raw, res)
		}
		if s.Steps() != 1 || s.WrongCount() != 0 || s.Question() != q {
			t.Fatalf("%q: state changed: steps=%d wrong=%d", raw, s.Steps(), s.WrongCount())
		}
		if msg := s.Message(); msg.Kind != MessageError || msg.Text != TextNotANumber {
			t.Fatalf("%q: unexpected message %+v", raw, msg)
		}
		if res.ClearInput {
			t.Fatalf("%q: input should be kept", raw)
		}
	}
}

func TestWrongAnswer(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	q := s.Question()
	res := s.Submit(strconv.Itoa(q.Answer + 1))
	if res.Outcome != OutcomeWrong {
		t.Fatalf("expected wrong, got %v", res.Outcome)
	}
	if s.WrongCount() != 1 || s.Steps() != 0 || s.Question() != q {
		t.Fatalf("unexpected state: wrong=%d steps=%d", s.WrongCount(), s.Steps())
	}
	if msg := s.Message(); msg.Kind != MessageError || msg.Text != TextWrong {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !s.Shaking() || !res.ClearInput {
		t.Fatalf("expected shake and cleared input")
	}
	shake := findSchedule(t, res, TimerShake)
	if shake.After != ShakeDuration {
		t.Fatalf("unexpected shake delay %v", shake.After)
	}
	if !s.Fire(TimerShake, shake.Token) || s.Shaking() {
		t.Fatalf("expected shake to clear")
	}
}

func TestFractionalInputTruncates(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	res := s.Submit(" " + answer(s) + ".9 ")
	if res.Outcome != OutcomeCorrect {
		t.Fatalf("expected fractional input to be coerced, got %v", res.Outcome)
	}
}

func TestResetReinitializes(t *testing.T) {
	s, clock := newTestSession(t, &fakeClient{})
	s.Submit(answer(s))
	s.Submit("999")
	clock.Advance(5 * time.Second)
	s.Reset()
	if s.Steps() != 0 || s.WrongCount() != 0 || s.Won() || s.Shaking() {
		t.Fatalf("unexpected state after reset")
	}
	if s.Message().Kind != MessageNone {
		t.Fatalf("expected message cleared")
	}
	if !s.StartedAt().Equal(clock.t) {
		t.Fatalf("expected timer restarted")
	}
	q := s.Question()
	if q.Answer != q.A+q.B {
		t.Fatalf("bad question after reset")
	}
}

func TestSubmitIgnoredAfterWin(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	for i := 0; i < model.WinSteps; i++ {
		s.Submit(answer(s))
	}
	if res := s.Submit("1"); res.Outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %v", res.Outcome)
	}
	if s.Steps() != model.WinSteps || s.WrongCount() != 0 {
		t.Fatalf("state changed after win")
	}
}

func TestFetchFailureKeepsDefaults(t *testing.T) {
	client := &fakeClient{fetchErr: statsclient.ErrUnavailable}
	s, _ := newTestSession(t, client)
	if s.ApplyStats(s.FetchStats().Do(context.Background())) {
		t.Fatalf("failed fetch should not apply")
	}
	st := s.Stats()
	if st.CurrentStreak != 0 || st.BestStreak != 0 || st.BestTimeMs != nil {
		t.Fatalf("expected default stats, got %+v", st)
	}
	if res := s.Submit(answer(s)); res.Outcome != OutcomeCorrect {
		t.Fatalf("session should remain playable")
	}
}

func TestFinishFailureKeepsWinAndStats(t *testing.T) {
	client := &fakeClient{
		stats:     model.Stats{CurrentStreak: 4, BestStreak: 9, BestTimeMs: int64Ptr(8000)},
		finishErr: statsclient.ErrReportFailed,
	}
	s, _ := newTestSession(t, client)
	s.ApplyStats(s.FetchStats().Do(context.Background()))

	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	if !s.ApplyFinish(res.Finish.Do(context.Background())) {
		t.Fatalf("expected failure to apply fallback message")
	}
	if !s.Won() {
		t.Fatalf("win must not be rolled back")
	}
	if msg := s.Message(); msg.Text != TextFinishFail || msg.Kind != MessageWin {
		t.Fatalf("unexpected message %+v", msg)
	}
	if st := s.Stats(); st.CurrentStreak != 4 || st.BestStreak != 9 || *st.BestTimeMs != 8000 {
		t.Fatalf("stats should be unchanged, got %+v", st)
	}
}

func TestFinishWithoutMessageOrStats(t *testing.T) {
	client := &fakeClient{stats: model.Stats{BestStreak: 2}}
	s, _ := newTestSession(t, client)
	s.ApplyStats(s.FetchStats().Do(context.Background()))
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	s.ApplyFinish(res.Finish.Do(context.Background()))
	if msg := s.Message(); msg.Text != TextFinishOK {
		t.Fatalf("expected default message, got %q", msg.Text)
	}
	if s.Stats().BestStreak != 2 {
		t.Fatalf("stats should be kept when response omits them")
	}
}

func TestFinishResultOfResetRunIsDiscarded(t *testing.T) {
	client := &fakeClient{
		resp: statsclient.FinishResponse{Message: "late", Stats: &model.Stats{CurrentStreak: 5}},
	}
	s, _ := newTestSession(t, client)
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	s.Reset()
	if s.ApplyFinish(res.Finish.Do(context.Background())) {
		t.Fatalf("stale finish must be discarded")
	}
	if s.Message().Kind != MessageNone || s.Won() {
		t.Fatalf("new run was corrupted: %+v won=%v", s.Message(), s.Won())
	}
	if s.Stats().CurrentStreak != 0 {
		t.Fatalf("stale stats applied")
	}
}

func TestLateFetchDoesNotClobberFinishStats(t *testing.T) {
	client := &fakeClient{
		stats: model.Stats{CurrentStreak: 1},
		resp:  statsclient.FinishResponse{Stats: &model.Stats{CurrentStreak: 2}},
	}
	s, _ := newTestSession(t, client)
	fetch := s.FetchStats()
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	s.ApplyFinish(res.Finish.Do(context.Background()))
	if s.ApplyStats(fetch.Do(context.Background())) {
		t.Fatalf("late fetch should be dropped")
	}
	if s.Stats().CurrentStreak != 2 {
		t.Fatalf("expected finish stats to win, got %+v", s.Stats())
	}
}

func TestSupersededFetchIsDropped(t *testing.T) {
	client := &fakeClient{stats: model.Stats{BestStreak: 3}}
	s, _ := newTestSession(t, client)
	old := s.FetchStats()
	current := s.FetchStats()
	if s.ApplyStats(old.Do(context.Background())) {
		t.Fatalf("old fetch should be dropped")
	}
	if !s.ApplyStats(current.Do(context.Background())) {
		t.Fatalf("current fetch should apply")
	}
}

func TestFetchAfterFinishApplies(t *testing.T) {
	client := &fakeClient{
		resp: statsclient.FinishResponse{Stats: &model.Stats{CurrentStreak: 2}},
	}
	s, _ := newTestSession(t, client)
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	s.ApplyFinish(res.Finish.Do(context.Background()))

	client.stats = model.Stats{CurrentStreak: 3, BestStreak: 3}
	refetch := s.FetchStats()
	if !s.ApplyStats(refetch.Do(context.Background())) {
		t.Fatalf("fetch issued after finish should apply")
	}
	if s.Stats().CurrentStreak != 3 {
		t.Fatalf("expected refetched stats, got %+v", s.Stats())
	}
}

func TestMessageTimerSupersededByNewMessage(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	first := findSchedule(t, s.Submit("nope"), TimerMessage)
	second := findSchedule(t, s.Submit(answer(s)), TimerMessage)
	if second.After != MessageTTL {
		t.Fatalf("unexpected message ttl %v", second.After)
	}
	if s.Fire(TimerMessage, first.Token) {
		t.Fatalf("stale message timer fired")
	}
	if s.Message().Kind != MessageSuccess {
		t.Fatalf("newer message was cleared")
	}
	if !s.Fire(TimerMessage, second.Token) {
		t.Fatalf("current message timer should fire")
	}
	if s.Message().Kind != MessageNone {
		t.Fatalf("expected message cleared")
	}
	if s.Fire(TimerMessage, second.Token) {
		t.Fatalf("timer fired twice")
	}
}

func TestWinMessagePersists(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{resp: statsclient.FinishResponse{Message: "done"}})
	var last Schedule
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
		if i == model.WinSteps-2 {
			last = findSchedule(t, res, TimerMessage)
		}
	}
	s.ApplyFinish(res.Finish.Do(context.Background()))
	if s.Fire(TimerMessage, last.Token) {
		t.Fatalf("praise timer should have been disarmed by the win")
	}
	if s.Message().Kind != MessageWin {
		t.Fatalf("win message cleared")
	}
}

func TestAutoReset(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	auto := findSchedule(t, res, TimerAutoReset)
	if auto.After != AutoResetDelay {
		t.Fatalf("unexpected auto reset delay %v", auto.After)
	}
	if !s.Fire(TimerAutoReset, auto.Token) {
		t.Fatalf("auto reset should fire")
	}
	if s.Won() || s.Steps() != 0 {
		t.Fatalf("expected new run after auto reset")
	}
}

func TestManualResetDisarmsAutoReset(t *testing.T) {
	s, _ := newTestSession(t, &fakeClient{})
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	auto := findSchedule(t, res, TimerAutoReset)
	s.Reset()
	s.Submit(answer(s))
	if s.Fire(TimerAutoReset, auto.Token) {
		t.Fatalf("auto reset fired after manual reset")
	}
	if s.Steps() != 1 {
		t.Fatalf("new run was reset by stale timer")
	}
}

func TestMissingClientFailsGracefully(t *testing.T) {
	s, _ := newTestSession(t, nil)
	if s.ApplyStats(s.FetchStats().Do(context.Background())) {
		t.Fatalf("expected fetch without client to fail")
	}
	var res Result
	for i := 0; i < model.WinSteps; i++ {
		res = s.Submit(answer(s))
	}
	fin := res.Finish.Do(context.Background())
	if !errors.Is(fin.Err, statsclient.ErrReportFailed) {
		t.Fatalf("expected report failure, got %v", fin.Err)
	}
	s.ApplyFinish(fin)
	if s.Message().Text != TextFinishFail {
		t.Fatalf("expected fallback message")
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
