// Package session implements the breach session controller: the single owner of
// session state, the roster, the detection meter and the open challenge.
//
// Every public operation is a guarded predicate. A call outside its guard (wrong
// phase, unknown node, game already over) is a silent no-op that returns false.
//
// Both timers (detection tick, challenge countdown) are clock.Tasks tagged with
// the generation they were started for. Stopping a task and bumping the
// generation happen under the controller lock, so a tick that races a stop is
// discarded instead of mutating state that has moved on.
package session

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"quantumbreach/internal/challenge"
	"quantumbreach/internal/clock"
	"quantumbreach/internal/detection"
	"quantumbreach/internal/game"
	"quantumbreach/internal/logging"
	"quantumbreach/internal/payload"
	"quantumbreach/internal/roster"
)

// DefaultTick is the interval of both the detection tick and the challenge countdown.
const DefaultTick = time.Second

// Options configures a Controller.
type Options struct {
	// Source provides challenge text. Nil always uses the fallback table.
	Source payload.Source
	// Scheduler drives both timers. Defaults to clock.Real.
	Scheduler clock.Scheduler
	// Tick is the timer interval. Defaults to DefaultTick.
	Tick time.Duration
	// SourceTimeout bounds the wait for Source. Zero means no extra bound.
	SourceTimeout time.Duration
	// Observer is notified of every event (metrics, tests).
	Observer Observer
	// Rand returns values in [0,1) for ambient feed lines. Defaults to math/rand/v2.
	Rand func() float64
	// EventBuffer sizes the Events channel. Defaults to 64.
	EventBuffer int
}

// State is a snapshot of the session-level counters and flags.
type State struct {
	SessionID         string
	Difficulty        game.Difficulty
	DetectionLevel    float64
	HackedCount       int
	TotalTargets      int
	IsGameOver        bool
	Outcome           game.Outcome
	WarningAccepted   bool
	TutorialCompleted bool
}

// Phase derives the lifecycle position from the flags.
func (s State) Phase() game.Phase {
	switch {
	case s.IsGameOver:
		return game.PhaseGameOver
	case s.TutorialCompleted:
		return game.PhaseActive
	case s.Difficulty != game.DifficultyUnset:
		return game.PhaseDifficultySet
	case s.WarningAccepted:
		return game.PhaseWarned
	}
	return game.PhaseUninitialized
}

// pendingOpen tracks a challenge that is waiting on the text source.
type pendingOpen struct {
	gen      uint64
	targetID string
}

// Controller owns one session at a time. It is safe for concurrent use; all
// mutations are serialized.
type Controller struct {
	opts Options

	mu        sync.Mutex
	state     State
	roster    []game.Target
	meter     detection.Meter
	feed      feed
	challenge *challenge.Session
	pending   *pendingOpen

	// gen invalidates every timer callback and pending open started before it changed.
	gen           uint64
	detectionTask clock.Task
	challengeTask clock.Task
	closed        bool

	events chan Event
}

// New creates a controller in the UNINITIALIZED phase.
func New(opts Options) *Controller {
	if opts.Scheduler == nil {
		opts.Scheduler = clock.Real{}
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}

	c := &Controller{
		opts:   opts,
		events: make(chan Event, opts.EventBuffer),
	}
	c.resetLocked()
	return c
}

func (c *Controller) log() *logging.Logger {
	return logging.Get(logging.CategorySession).With("session_id", c.state.SessionID)
}

// Events delivers notifications. Sends never block; when the buffer is full
// the event is dropped and consumers should re-read snapshots.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// emit must be called with c.mu held.
func (c *Controller) emit(e Event) {
	e.SessionID = c.state.SessionID
	e.Detection = c.meter.Level()
	if e.Difficulty == game.DifficultyUnset {
		e.Difficulty = c.state.Difficulty
	}
	if c.opts.Observer != nil {
		c.opts.Observer.Observe(e)
	}
	select {
	case c.events <- e:
	default:
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() game.Phase {
	return c.State().Phase()
}

// Roster returns a copy of the session roster.
func (c *Controller) Roster() []game.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.roster)
}

// Challenge returns the open challenge, if any.
func (c *Controller) Challenge() (challenge.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return challenge.Snapshot{}, false
	}
	return c.challenge.Snapshot(), true
}

// Loading reports the target of a challenge waiting on the text source.
func (c *Controller) Loading() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return "", false
	}
	return c.pending.targetID, true
}

// Feed returns the activity feed, newest first.
func (c *Controller) Feed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feed.snapshot()
}

// SuppressionCount returns the number of suppressed, compromised nodes.
func (c *Controller) SuppressionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return game.SuppressionCount(c.roster)
}

// SuppressionCap returns the suppression limit for the session, or 0 before a
// difficulty is chosen.
func (c *Controller) SuppressionCap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Difficulty.Valid() {
		return 0
	}
	return c.state.Difficulty.SuppressionCap()
}

// Critical reports whether the detection level is past the warning threshold.
func (c *Controller) Critical() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meter.Critical()
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// AcceptWarning moves UNINITIALIZED to WARNED.
func (c *Controller) AcceptWarning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.WarningAccepted {
		return false
	}
	c.state.WarningAccepted = true
	c.log().Info("warning accepted")
	return true
}

// SelectDifficulty fixes the session difficulty and generates the roster. It is
// accepted once per session, after the warning.
func (c *Controller) SelectDifficulty(d game.Difficulty) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !d.Valid() || !c.state.WarningAccepted || c.state.Difficulty != game.DifficultyUnset {
		c.log().Debug("rejected difficulty %s in phase %s", d, c.state.Phase())
		return false
	}
	c.state.Difficulty = d
	c.roster = roster.Generate(d)
	c.state.TotalTargets = len(c.roster)
	c.log().Info("difficulty %s selected, %d targets", d, c.state.TotalTargets)
	return true
}

// CompleteTutorial enters the ACTIVE phase and starts the detection timer.
func (c *Controller) CompleteTutorial() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.IsGameOver || c.state.TutorialCompleted || c.state.Difficulty == game.DifficultyUnset {
		return false
	}
	c.state.TutorialCompleted = true
	gen := c.gen
	c.detectionTask = c.opts.Scheduler.Every(c.opts.Tick, func() { c.onDetectionTick(gen) })
	c.log().Info("session active, detection running")
	return true
}

// Reset discards the whole session, cancelling both timers and any open or
// loading challenge without success/failure side effects.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.emit(Event{Kind: EventReset})
}

// Close stops every timer and drops any open or loading challenge. The
// controller rejects all operations afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTimersLocked()
	c.gen++
	if c.challenge != nil {
		c.challenge.Close()
		c.challenge = nil
	}
	c.pending = nil
	c.closed = true
}

func (c *Controller) resetLocked() {
	c.stopTimersLocked()
	c.gen++
	if c.challenge != nil {
		c.challenge.Close()
	}
	c.challenge = nil
	c.pending = nil
	c.roster = nil
	c.meter.Reset()
	c.feed = newFeed()
	c.state = State{SessionID: uuid.NewString()}
	c.log().Info("new session")
}

func (c *Controller) stopTimersLocked() {
	if c.detectionTask != nil {
		c.detectionTask.Stop()
		c.detectionTask = nil
	}
	c.stopChallengeTimerLocked()
}

func (c *Controller) stopChallengeTimerLocked() {
	if c.challengeTask != nil {
		c.challengeTask.Stop()
		c.challengeTask = nil
	}
}

// endGameLocked sets the terminal state. The first reason wins.
func (c *Controller) endGameLocked(outcome game.Outcome) {
	if c.state.IsGameOver {
		return
	}
	c.state.IsGameOver = true
	c.state.Outcome = outcome
	c.stopTimersLocked()
	// Any open attempt ends silently; the game result is already decided.
	c.gen++
	if c.challenge != nil {
		id := c.challenge.Target().ID
		c.challenge.Close()
		c.restoreOnlineLocked(id)
		c.challenge = nil
		c.emit(Event{Kind: EventChallengeAborted, TargetID: id})
	}
	if c.pending != nil {
		c.restoreOnlineLocked(c.pending.targetID)
		c.pending = nil
	}
	c.log().Info("game over: %s (detection %.2f, hacked %d/%d)",
		outcome, c.meter.Level(), c.state.HackedCount, c.state.TotalTargets)
	c.emit(Event{Kind: EventGameOver, Outcome: outcome})
}

// =============================================================================
// DETECTION
// =============================================================================

func (c *Controller) onDetectionTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state.IsGameOver || c.closed {
		return
	}

	inc, tripped := c.meter.Advance(c.state.Difficulty, game.SuppressionCount(c.roster))
	c.state.DetectionLevel = c.meter.Level()
	if logging.IsCategoryEnabled(logging.CategoryDetection) {
		logging.Get(logging.CategoryDetection).Debug("tick +%.2f -> %.2f", inc, c.state.DetectionLevel)
	}

	if c.opts.Rand() > 1-ambientChance {
		c.feed.push(ambientFeed[int(c.opts.Rand()*float64(len(ambientFeed)))%len(ambientFeed)])
	}

	c.emit(Event{Kind: EventDetection})
	if tripped {
		c.endGameLocked(game.OutcomeDefeat)
	}
}

// =============================================================================
// SUPPRESSION
// =============================================================================

// ToggleSuppression flips suppression on a compromised node. Turning it on is
// rejected once the difficulty cap is reached; turning it off always succeeds.
func (c *Controller) ToggleSuppression(targetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.IsGameOver {
		return false
	}
	i := c.indexLocked(targetID)
	if i < 0 || c.roster[i].Status != game.StatusCompromised {
		return false
	}
	t := &c.roster[i]
	if !t.Suppressed && game.SuppressionCount(c.roster) >= c.state.Difficulty.SuppressionCap() {
		c.log().Debug("suppression cap %d reached, rejecting %s", c.state.Difficulty.SuppressionCap(), targetID)
		return false
	}
	t.Suppressed = !t.Suppressed
	c.log().Info("suppression on %s: %v", t.Name, t.Suppressed)
	c.emit(Event{Kind: EventSuppressionToggled, TargetID: targetID, Suppressed: t.Suppressed})
	return true
}

func (c *Controller) indexLocked(targetID string) int {
	return slices.IndexFunc(c.roster, func(t game.Target) bool { return t.ID == targetID })
}

func (c *Controller) restoreOnlineLocked(targetID string) {
	if i := c.indexLocked(targetID); i >= 0 && c.roster[i].Status == game.StatusBreaching {
		c.roster[i].Status = game.StatusOnline
	}
}

// =============================================================================
// CHALLENGES
// =============================================================================

// OpenChallenge starts a breach attempt on an ONLINE node. It blocks while the
// text source is consulted; the countdown only starts once the stages are known.
// It returns false if the guard fails or the attempt was cancelled, reset or
// overtaken by game over while waiting.
func (c *Controller) OpenChallenge(ctx context.Context, targetID string) bool {
	c.mu.Lock()
	if c.closed || c.state.IsGameOver || c.challenge != nil || c.pending != nil {
		c.mu.Unlock()
		return false
	}
	i := c.indexLocked(targetID)
	if i < 0 || c.roster[i].Status != game.StatusOnline {
		c.mu.Unlock()
		return false
	}
	c.roster[i].Status = game.StatusBreaching
	target := c.roster[i]
	pending := &pendingOpen{gen: c.gen, targetID: targetID}
	c.pending = pending
	c.emit(Event{Kind: EventChallengeLoading, TargetID: targetID})
	c.mu.Unlock()

	if c.opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.SourceTimeout)
		defer cancel()
	}
	res := payload.Resolve(ctx, c.opts.Source, target.Rank, target.Name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.pending != pending || pending.gen != c.gen {
		logging.Get(logging.CategoryChallenge).Debug("discarding stale payload for %s", target.Name)
		return false
	}
	c.pending = nil

	suppressed := game.SuppressionCount(c.roster)
	sess, err := challenge.New(target, c.state.Difficulty, suppressed, res.Stages)
	if err != nil {
		// Resolve always returns at least one stage.
		c.restoreOnlineLocked(targetID)
		c.log().Error("challenge setup failed for %s: %v", target.Name, err)
		return false
	}
	c.challenge = sess
	gen := c.gen
	c.challengeTask = c.opts.Scheduler.Every(c.opts.Tick, func() { c.onChallengeTick(gen) })

	snap := sess.Snapshot()
	logging.Get(logging.CategoryChallenge).Info("breach on %s: %d stages, budget %d (suppression %d, fallback %v)",
		target.Name, len(snap.Stages), snap.TimeBudget, suppressed, res.FromFallback)
	c.emit(Event{Kind: EventChallengeReady, TargetID: targetID, FromFallback: res.FromFallback})
	return true
}

// Input forwards the typed buffer to the open challenge.
func (c *Controller) Input(buffer string) challenge.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.challenge == nil || c.state.IsGameOver {
		return challenge.Result{}
	}

	res := c.challenge.Input(buffer)
	targetID := c.challenge.Target().ID
	switch res.Kind {
	case challenge.ResultStageCleared:
		logging.Get(logging.CategoryChallenge).Debug("stage %d cleared on %s, +%d", res.Stage, targetID, res.Bonus)
		c.emit(Event{Kind: EventStageCleared, TargetID: targetID, Bonus: res.Bonus})
	case challenge.ResultCompleted:
		c.closeChallengeLocked()
		c.onChallengeSuccess(targetID)
	}
	return res
}

// CancelChallenge aborts an open or loading challenge. The node returns to
// ONLINE and detection is untouched. Calling it with nothing open is a no-op.
func (c *Controller) CancelChallenge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var targetID string
	switch {
	case c.challenge != nil:
		targetID = c.challenge.Target().ID
		c.closeChallengeLocked()
	case c.pending != nil:
		targetID = c.pending.targetID
		c.pending = nil
	default:
		return false
	}
	c.restoreOnlineLocked(targetID)
	c.log().Info("challenge on %s cancelled", targetID)
	c.emit(Event{Kind: EventChallengeCancelled, TargetID: targetID})
	return true
}

func (c *Controller) closeChallengeLocked() {
	c.stopChallengeTimerLocked()
	if c.challenge != nil {
		c.challenge.Close()
		c.challenge = nil
	}
}

func (c *Controller) onChallengeTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.challenge == nil || c.closed {
		return
	}

	res := c.challenge.Tick()
	targetID := c.challenge.Target().ID
	if res.Kind != challenge.ResultExpired {
		c.emit(Event{Kind: EventChallengeTick, TargetID: targetID})
		return
	}

	c.closeChallengeLocked()
	c.restoreOnlineLocked(targetID)
	c.onChallengeFailure(targetID)
}

// onChallengeSuccess must be called with c.mu held.
func (c *Controller) onChallengeSuccess(targetID string) {
	i := c.indexLocked(targetID)
	if i < 0 {
		return
	}
	c.roster[i].Status = game.StatusCompromised
	c.state.HackedCount++
	c.feed.push(feedBreachSuccess)
	c.log().Info("%s compromised (%d/%d)", c.roster[i].Name, c.state.HackedCount, c.state.TotalTargets)
	c.emit(Event{Kind: EventChallengeSucceeded, TargetID: targetID})

	if c.state.HackedCount == c.state.TotalTargets {
		c.endGameLocked(game.OutcomeVictory)
	}
}

// onChallengeFailure must be called with c.mu held.
func (c *Controller) onChallengeFailure(targetID string) {
	penalty := c.state.Difficulty.FailurePenalty()
	tripped := c.meter.Penalize(penalty)
	c.state.DetectionLevel = c.meter.Level()
	c.feed.push(feedBreachFailed)
	c.log().Info("breach on %s failed, detection +%.0f -> %.2f", targetID, penalty, c.state.DetectionLevel)
	c.emit(Event{Kind: EventChallengeFailed, TargetID: targetID})

	if tripped {
		c.endGameLocked(game.OutcomeDefeat)
	}
}
