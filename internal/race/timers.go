package race

import "time"

// Timer identifies a category of scheduled session callback.
type Timer int

const (
	// TimerMessage clears a success or error message.
	TimerMessage Timer = iota
	// TimerShake ends the wrong-answer attention cue.
	TimerShake
	// TimerAutoReset starts a new run after a win.
	TimerAutoReset
	timerCount
)

// Timer delays.
const (
	MessageTTL     = 2500 * time.Millisecond
	ShakeDuration  = 420 * time.Millisecond
	AutoResetDelay = 6000 * time.Millisecond
)

func (t Timer) String() string {
	switch t {
	case TimerMessage:
		return "message"
	case TimerShake:
		return "shake"
	case TimerAutoReset:
		return "auto-reset"
	default:
		return "unknown"
	}
}

func (t Timer) delay() time.Duration {
	switch t {
	case TimerMessage:
		return MessageTTL
	case TimerShake:
		return ShakeDuration
	default:
		return AutoResetDelay
	}
}

// Schedule asks the host to call Session.Fire(Timer, Token) after After elapses.
type Schedule struct {
	Timer Timer
	Token uint64
	After time.Duration
}

// timers hands out one live token per category; arming or disarming a
// category makes every earlier token for it stale.
type timers struct {
	tokens [timerCount]uint64
}

func (t *timers) arm(kind Timer) Schedule {
	t.tokens[kind]++
	return Schedule{Timer: kind, Token: t.tokens[kind], After: kind.delay()}
}

func (t *timers) disarm(kind Timer) {
	t.tokens[kind]++
}

func (t *timers) disarmAll() {
	for kind := range t.tokens {
		t.tokens[kind]++
	}
}

func (t *timers) live(kind Timer, token uint64) bool {
	if kind < 0 || kind >= timerCount {
		return false
	}
	return t.tokens[kind] == token
}
