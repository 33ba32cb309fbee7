// Package challenge runs a single timed, multi-stage typed-match breach attempt.
//
// A Session knows nothing about timers or the wider game: its owner calls Tick
// once per interval and Input on every buffer change, and reacts to the Result.
package challenge

import (
	"errors"
	"slices"

	"quantumbreach/internal/game"
)

const (
	// MinBudget is the smallest time budget ever granted, in ticks.
	MinBudget = 8

	// SuppressionTime is the extra budget per active suppression, in ticks.
	SuppressionTime = 6
)

// ErrNoStages is returned by New when no stage strings are supplied.
var ErrNoStages = errors.New("challenge: at least one stage is required")

// Budget computes the starting time budget in ticks:
// max(MinBudget, ceil(base(rank) * factor(difficulty) + SuppressionTime * suppressed)).
// Arithmetic is done in percent so that e.g. 40 * 0.6 is exactly 24.
func Budget(rank game.Rank, d game.Difficulty, suppressed int) int {
	if suppressed < 0 {
		suppressed = 0
	}
	hundredths := rank.BaseTime()*d.TimePercent() + SuppressionTime*suppressed*100
	budget := (hundredths + 99) / 100
	return max(MinBudget, budget)
}

// ResultKind classifies what an update did.
type ResultKind int

const (
	ResultNone ResultKind = iota
	// ResultStageCleared means a non-final stage matched and the bonus was applied.
	ResultStageCleared
	// ResultCompleted means the final stage matched. The session is closed.
	ResultCompleted
	// ResultExpired means the countdown reached zero. The session is closed.
	ResultExpired
)

func (k ResultKind) String() string {
	switch k {
	case ResultNone:
		return "none"
	case ResultStageCleared:
		return "stage_cleared"
	case ResultCompleted:
		return "completed"
	case ResultExpired:
		return "expired"
	}
	return "unknown"
}

// Result reports the effect of a Tick or Input call.
type Result struct {
	Kind  ResultKind
	Bonus int // ticks added, only for ResultStageCleared
	Stage int // stage index that was cleared or active
}

// Session is one open breach attempt. It is not safe for concurrent use.
type Session struct {
	target     game.Target
	difficulty game.Difficulty
	stages     []string
	stage      int
	typed      string
	remaining  int
	budget     int
	closed     bool
}

// New opens a session against target. stages must be non-empty; the budget is
// derived from the target rank, session difficulty and suppression count.
func New(target game.Target, d game.Difficulty, suppressed int, stages []string) (*Session, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	budget := Budget(target.Rank, d, suppressed)
	return &Session{
		target:     target,
		difficulty: d,
		stages:     slices.Clone(stages),
		remaining:  budget,
		budget:     budget,
	}, nil
}

// Target returns the node under attack.
func (s *Session) Target() game.Target { return s.target }

// Closed reports whether the session has finished or been closed.
func (s *Session) Closed() bool { return s.closed }

// Close ends the session without a result. Safe to call repeatedly.
func (s *Session) Close() { s.closed = true }

// Tick counts down one interval.
func (s *Session) Tick() Result {
	if s.closed {
		return Result{}
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.closed = true
		return Result{Kind: ResultExpired, Stage: s.stage}
	}
	return Result{Stage: s.stage}
}

// Input replaces the typed buffer and compares it to the active stage. Only full
// equality counts; a mistyped character simply fails to match.
func (s *Session) Input(buffer string) Result {
	if s.closed {
		return Result{}
	}
	s.typed = buffer
	if buffer != s.stages[s.stage] {
		return Result{Stage: s.stage}
	}

	cleared := s.stage
	if cleared == len(s.stages)-1 {
		s.closed = true
		return Result{Kind: ResultCompleted, Stage: cleared}
	}

	bonus := s.difficulty.StageBonus()
	s.remaining += bonus
	s.stage++
	s.typed = ""
	return Result{Kind: ResultStageCleared, Bonus: bonus, Stage: cleared}
}

// Snapshot is a read-only view of a session for presentation.
type Snapshot struct {
	Target        game.Target
	Stages        []string
	Stage         int
	Typed         string
	TimeRemaining int
	TimeBudget    int
	Closed        bool
}

// Active returns the stage string currently being typed.
func (s Snapshot) Active() string {
	if s.Stage < 0 || s.Stage >= len(s.Stages) {
		return ""
	}
	return s.Stages[s.Stage]
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Target:        s.target,
		Stages:        slices.Clone(s.stages),
		Stage:         s.stage,
		Typed:         s.typed,
		TimeRemaining: s.remaining,
		TimeBudget:    s.budget,
		Closed:        s.closed,
	}
}
