package session

import (
	"quantumbreach/internal/game"
)

// EventKind classifies controller notifications.
type EventKind int

const (
	EventDetection EventKind = iota + 1
	EventChallengeLoading
	EventChallengeReady
	EventChallengeTick
	EventStageCleared
	EventChallengeSucceeded
	EventChallengeFailed
	EventChallengeCancelled
	// EventChallengeAborted reports an open challenge closed by game over.
	EventChallengeAborted
	EventSuppressionToggled
	EventGameOver
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventDetection:
		return "detection"
	case EventChallengeLoading:
		return "challenge_loading"
	case EventChallengeReady:
		return "challenge_ready"
	case EventChallengeTick:
		return "challenge_tick"
	case EventStageCleared:
		return "stage_cleared"
	case EventChallengeSucceeded:
		return "challenge_succeeded"
	case EventChallengeFailed:
		return "challenge_failed"
	case EventChallengeCancelled:
		return "challenge_cancelled"
	case EventChallengeAborted:
		return "challenge_aborted"
	case EventSuppressionToggled:
		return "suppression_toggled"
	case EventGameOver:
		return "game_over"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

// Event is a notification about a state change. Events carry just enough for
// display; the authoritative state is always the snapshot accessors.
type Event struct {
	Kind      EventKind
	SessionID string
	TargetID  string
	// Detection is the meter level after the change.
	Detection float64
	// Bonus is the time granted by a stage clear.
	Bonus int
	// FromFallback is set on EventChallengeReady when the text source failed.
	FromFallback bool
	Outcome      game.Outcome
	Difficulty   game.Difficulty
	Suppressed   bool
}

// Observer receives every event synchronously while the controller lock is
// held. Implementations must be fast and must not call back into the controller.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(e Event) { f(e) }
