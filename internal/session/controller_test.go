package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"quantumbreach/internal/challenge"
	"quantumbreach/internal/clock"
	"quantumbreach/internal/game"
	"quantumbreach/internal/payload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// =============================================================================
// HARNESS
// =============================================================================

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type harness struct {
	t     *testing.T
	clk   *clock.Manual
	rec   *recorder
	ctrl  *Controller
	stage []string
}

var testStages = []string{"id", "whoami", "ls"}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, clk: clock.NewManual(), rec: &recorder{}, stage: testStages}
	h.ctrl = New(Options{
		Source: payload.SourceFunc(func(context.Context, game.Rank, string) ([]string, error) {
			return h.stage, nil
		}),
		Scheduler: h.clk,
		Tick:      time.Second,
		Observer:  h.rec,
		Rand:      func() float64 { return 0 },
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

// activate walks the controller to ACTIVE at difficulty d.
func (h *harness) activate(d game.Difficulty) {
	h.t.Helper()
	require.True(h.t, h.ctrl.AcceptWarning())
	require.True(h.t, h.ctrl.SelectDifficulty(d))
	require.True(h.t, h.ctrl.CompleteTutorial())
}

func (h *harness) tick(n int) {
	h.clk.Advance(time.Duration(n) * time.Second)
}

// breach opens and completes a challenge on targetID.
func (h *harness) breach(targetID string) {
	h.t.Helper()
	require.True(h.t, h.ctrl.OpenChallenge(context.Background(), targetID))
	snap, ok := h.ctrl.Challenge()
	require.True(h.t, ok)
	for range snap.Stages {
		cur, _ := h.ctrl.Challenge()
		h.ctrl.Input(cur.Active())
	}
}

func (h *harness) target(id string) game.Target {
	h.t.Helper()
	for _, tg := range h.ctrl.Roster() {
		if tg.ID == id {
			return tg
		}
	}
	h.t.Fatalf("target %s not on roster", id)
	return game.Target{}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestLifecycle_Order(t *testing.T) {
	h := newHarness(t)
	c := h.ctrl

	assert.Equal(t, game.PhaseUninitialized, c.Phase())
	assert.False(t, c.SelectDifficulty(game.DifficultyEasy), "difficulty before warning")
	assert.False(t, c.CompleteTutorial(), "tutorial before difficulty")

	assert.True(t, c.AcceptWarning())
	assert.False(t, c.AcceptWarning())
	assert.Equal(t, game.PhaseWarned, c.Phase())

	assert.False(t, c.SelectDifficulty(game.DifficultyUnset))
	assert.True(t, c.SelectDifficulty(game.DifficultyEasy))
	assert.False(t, c.SelectDifficulty(game.DifficultyHard), "first selection is final")
	assert.Equal(t, game.PhaseDifficultySet, c.Phase())

	st := c.State()
	assert.Equal(t, game.DifficultyEasy, st.Difficulty)
	assert.Equal(t, 5, st.TotalTargets)
	assert.Len(t, c.Roster(), 5)

	// no detection before the tutorial is done
	h.tick(10)
	assert.Zero(t, c.State().DetectionLevel)

	assert.True(t, c.CompleteTutorial())
	assert.False(t, c.CompleteTutorial())
	assert.Equal(t, game.PhaseActive, c.Phase())
	assert.Equal(t, 1, h.clk.Active())
}

// =============================================================================
// DETECTION
// =============================================================================

func TestDetection_TicksAndDefeat(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyNightmare)

	h.tick(10)
	assert.InDelta(t, 10.0, h.ctrl.State().DetectionLevel, 1e-9)
	assert.Equal(t, 10, h.rec.count(EventDetection))

	h.tick(90)
	st := h.ctrl.State()
	assert.Equal(t, 100.0, st.DetectionLevel)
	assert.True(t, st.IsGameOver)
	assert.Equal(t, game.OutcomeDefeat, st.Outcome)
	assert.Equal(t, 1, h.rec.count(EventGameOver))

	// terminal: ticking halted, nothing moves
	h.tick(50)
	assert.Equal(t, 100, h.rec.count(EventDetection))
	assert.Equal(t, 100.0, h.ctrl.State().DetectionLevel)
	assert.Zero(t, h.clk.Active())
}

func TestDetection_NonDecreasing(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyMedium)

	prev := 0.0
	for i := 0; i < 50; i++ {
		h.tick(1)
		lvl := h.ctrl.State().DetectionLevel
		assert.GreaterOrEqual(t, lvl, prev)
		assert.LessOrEqual(t, lvl-prev, game.DifficultyMedium.DetectionBase()+1e-9)
		prev = lvl
	}
}

func TestDetection_SuppressionDamps(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyHard)

	h.breach("2")
	require.Equal(t, game.StatusCompromised, h.target("2").Status)
	require.True(t, h.ctrl.ToggleSuppression("2"))

	before := h.ctrl.State().DetectionLevel
	h.tick(1)
	assert.InDelta(t, 0.45-0.08, h.ctrl.State().DetectionLevel-before, 1e-9)
}

func TestDetection_AmbientFeed(t *testing.T) {
	h := newHarness(t)
	h.ctrl.opts.Rand = func() float64 { return 0.99 }
	h.activate(game.DifficultyEasy)

	h.tick(1)
	feed := h.ctrl.Feed()
	assert.Equal(t, "BYPASSING_HANDSHAKE", feed[0])
	assert.Len(t, feed, 4)

	h.tick(30)
	assert.Len(t, h.ctrl.Feed(), feedSize)
}

// =============================================================================
// CHALLENGES
// =============================================================================

func TestChallenge_OpenGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.False(t, h.ctrl.OpenChallenge(ctx, "1"), "no roster yet")
	h.activate(game.DifficultyEasy)

	assert.False(t, h.ctrl.OpenChallenge(ctx, "nope"))
	assert.False(t, h.ctrl.OpenChallenge(ctx, "3"), "HARD node is not on an EASY roster")

	require.True(t, h.ctrl.OpenChallenge(ctx, "1"))
	assert.Equal(t, game.StatusBreaching, h.target("1").Status)
	assert.False(t, h.ctrl.OpenChallenge(ctx, "2"), "one challenge at a time")
	assert.False(t, h.ctrl.OpenChallenge(ctx, "1"))

	snap, ok := h.ctrl.Challenge()
	require.True(t, ok)
	assert.Equal(t, testStages, snap.Stages)
	assert.Equal(t, 15, snap.TimeBudget)
}

func TestChallenge_BudgetUsesSuppressionAtOpen(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyHard)

	h.breach("2")
	h.breach("4")
	require.True(t, h.ctrl.ToggleSuppression("2"))
	require.True(t, h.ctrl.ToggleSuppression("4"))

	require.True(t, h.ctrl.OpenChallenge(context.Background(), "3"))
	snap, _ := h.ctrl.Challenge()
	assert.Equal(t, 36, snap.TimeBudget)
	assert.Equal(t, 36, snap.TimeRemaining)
}

func TestChallenge_StageBonusAndSuccess(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyMedium)
	require.True(t, h.ctrl.OpenChallenge(context.Background(), "2"))

	h.tick(3)
	snap, _ := h.ctrl.Challenge()
	assert.Equal(t, snap.TimeBudget-3, snap.TimeRemaining)

	assert.Equal(t, challenge.ResultNone, h.ctrl.Input("i").Kind)
	res := h.ctrl.Input("id")
	assert.Equal(t, challenge.ResultStageCleared, res.Kind)
	assert.Equal(t, 8, res.Bonus)
	assert.Equal(t, 1, h.rec.count(EventStageCleared))

	snap, _ = h.ctrl.Challenge()
	assert.Equal(t, snap.TimeBudget-3+8, snap.TimeRemaining)
	assert.Empty(t, snap.Typed)

	h.ctrl.Input("whoami")
	res = h.ctrl.Input("ls")
	assert.Equal(t, challenge.ResultCompleted, res.Kind)
	assert.Equal(t, 2, h.rec.count(EventStageCleared), "final stage grants no bonus")

	_, open := h.ctrl.Challenge()
	assert.False(t, open)
	assert.Equal(t, game.StatusCompromised, h.target("2").Status)
	assert.Equal(t, 1, h.ctrl.State().HackedCount)
	assert.Equal(t, feedBreachSuccess, h.ctrl.Feed()[0])
	assert.Equal(t, 1, h.clk.Active(), "only the detection timer remains")
}

func TestChallenge_TimeoutFailsOnce(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)
	require.True(t, h.ctrl.OpenChallenge(context.Background(), "1"))

	before := h.ctrl.State().DetectionLevel
	h.tick(15)

	assert.Equal(t, 1, h.rec.count(EventChallengeFailed))
	_, open := h.ctrl.Challenge()
	assert.False(t, open)
	assert.Equal(t, game.StatusOnline, h.target("1").Status)

	// 15 detection ticks at 0.05 plus the 15 point penalty
	assert.InDelta(t, before+15*0.05+15, h.ctrl.State().DetectionLevel, 1e-9)
	assert.Equal(t, feedBreachFailed, h.ctrl.Feed()[0])

	h.tick(30)
	assert.Equal(t, 1, h.rec.count(EventChallengeFailed), "no double count")
	assert.InDelta(t, before+45*0.05+15, h.ctrl.State().DetectionLevel, 1e-9)
}

func TestChallenge_PenaltyByDifficulty(t *testing.T) {
	for _, d := range game.Difficulties {
		t.Run(d.String(), func(t *testing.T) {
			h := newHarness(t)
			require.True(t, h.ctrl.AcceptWarning())
			require.True(t, h.ctrl.SelectDifficulty(d))
			// no tutorial: detection is not ticking, only the penalty moves the meter
			id := h.ctrl.Roster()[0].ID
			require.True(t, h.ctrl.OpenChallenge(context.Background(), id))
			snap, _ := h.ctrl.Challenge()
			h.tick(snap.TimeBudget)
			assert.Equal(t, d.FailurePenalty(), h.ctrl.State().DetectionLevel)
		})
	}
}

func TestChallenge_PenaltyTriggersDefeat(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyNightmare)

	// 50 penalty twice plus ticks crosses the ceiling on the second failure
	for i := 0; i < 2 && !h.ctrl.State().IsGameOver; i++ {
		require.True(t, h.ctrl.OpenChallenge(context.Background(), "3"))
		snap, _ := h.ctrl.Challenge()
		h.tick(snap.TimeBudget)
	}

	st := h.ctrl.State()
	assert.True(t, st.IsGameOver)
	assert.Equal(t, game.OutcomeDefeat, st.Outcome)
	assert.Equal(t, 100.0, st.DetectionLevel)
	assert.Zero(t, h.clk.Active())
}

func TestChallenge_Cancel(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)

	assert.False(t, h.ctrl.CancelChallenge(), "nothing open")
	require.True(t, h.ctrl.OpenChallenge(context.Background(), "1"))
	h.tick(2)
	lvl := h.ctrl.State().DetectionLevel

	assert.True(t, h.ctrl.CancelChallenge())
	assert.False(t, h.ctrl.CancelChallenge(), "idempotent")
	assert.Equal(t, game.StatusOnline, h.target("1").Status)
	assert.Equal(t, lvl, h.ctrl.State().DetectionLevel)
	assert.Zero(t, h.rec.count(EventChallengeFailed))
	assert.Zero(t, h.rec.count(EventChallengeSucceeded))

	// countdown is gone; target can be reopened
	h.tick(30)
	assert.Zero(t, h.rec.count(EventChallengeFailed))
	assert.True(t, h.ctrl.OpenChallenge(context.Background(), "1"))
}

func TestChallenge_SourceFailureUsesFallback(t *testing.T) {
	h := newHarness(t)
	h.ctrl.opts.Source = payload.SourceFunc(func(context.Context, game.Rank, string) ([]string, error) {
		return nil, errors.New("quota exceeded")
	})
	require.True(t, h.ctrl.AcceptWarning())
	require.True(t, h.ctrl.SelectDifficulty(game.DifficultyNightmare))

	require.True(t, h.ctrl.OpenChallenge(context.Background(), "3"))
	snap, _ := h.ctrl.Challenge()
	assert.Equal(t, payload.Fallback(game.RankHard), snap.Stages)
	assert.Len(t, snap.Stages, 2)

	for _, s := range snap.Stages {
		h.ctrl.Input(s)
	}
	assert.Equal(t, game.StatusCompromised, h.target("3").Status)
}

func TestChallenge_CancelWhileLoading(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	h.ctrl.opts.Source = payload.SourceFunc(func(context.Context, game.Rank, string) ([]string, error) {
		close(entered)
		<-release
		return testStages, nil
	})
	h.activate(game.DifficultyEasy)

	done := make(chan bool)
	go func() { done <- h.ctrl.OpenChallenge(context.Background(), "1") }()
	<-entered

	id, loading := h.ctrl.Loading()
	assert.True(t, loading)
	assert.Equal(t, "1", id)
	assert.False(t, h.ctrl.OpenChallenge(context.Background(), "2"), "loading blocks a second open")

	assert.True(t, h.ctrl.CancelChallenge())
	close(release)
	assert.False(t, <-done, "stale payload is discarded")

	_, open := h.ctrl.Challenge()
	assert.False(t, open)
	assert.Equal(t, game.StatusOnline, h.target("1").Status)
	assert.Equal(t, 1, h.clk.Active())
}

// =============================================================================
// SUPPRESSION
// =============================================================================

func TestSuppression_CapAndGuards(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)

	assert.False(t, h.ctrl.ToggleSuppression("1"), "ONLINE nodes cannot be suppressed")
	h.breach("1")
	h.breach("2")

	assert.True(t, h.ctrl.ToggleSuppression("1"))
	assert.Equal(t, 1, h.ctrl.SuppressionCount())
	assert.False(t, h.ctrl.ToggleSuppression("2"), "EASY cap is 1")

	assert.True(t, h.ctrl.ToggleSuppression("1"), "off is always allowed")
	assert.True(t, h.ctrl.ToggleSuppression("2"))
	assert.False(t, h.ctrl.ToggleSuppression("missing"))
}

func TestSuppression_NightmareCapZero(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyNightmare)
	h.breach("3")

	assert.Equal(t, 0, h.ctrl.SuppressionCap())
	assert.False(t, h.ctrl.ToggleSuppression("3"))
	assert.False(t, h.target("3").Suppressed)
}

// =============================================================================
// TERMINAL STATES
// =============================================================================

func TestVictory(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)

	roster := h.ctrl.Roster()
	for _, tg := range roster {
		h.breach(tg.ID)
	}

	st := h.ctrl.State()
	assert.True(t, st.IsGameOver)
	assert.Equal(t, game.OutcomeVictory, st.Outcome)
	assert.Equal(t, len(roster), st.HackedCount)
	assert.Equal(t, st.TotalTargets, st.HackedCount)
	assert.Zero(t, h.clk.Active())

	lvl := st.DetectionLevel
	h.tick(100)
	assert.Equal(t, lvl, h.ctrl.State().DetectionLevel, "frozen after game over")
	assert.Equal(t, game.OutcomeVictory, h.ctrl.State().Outcome, "first terminal reason is final")
}

func TestVictory_TwoTargetScenario(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)

	// shrink the roster to two nodes
	h.ctrl.mu.Lock()
	h.ctrl.roster = h.ctrl.roster[:2]
	h.ctrl.state.TotalTargets = 2
	h.ctrl.mu.Unlock()

	h.breach("1")
	h.tick(5)
	h.breach("2")

	st := h.ctrl.State()
	assert.True(t, st.IsGameOver)
	assert.Equal(t, game.OutcomeVictory, st.Outcome)
	assert.Equal(t, 2, st.HackedCount)
	assert.Less(t, st.DetectionLevel, 100.0)
}

func TestGameOver_FreezesMutations(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyNightmare)
	h.tick(90)
	h.breach("3")

	// detection trips while the PRO node is still being typed
	require.True(t, h.ctrl.OpenChallenge(context.Background(), "5"))
	h.tick(10)

	st := h.ctrl.State()
	require.True(t, st.IsGameOver)
	_, open := h.ctrl.Challenge()
	assert.False(t, open, "open challenge closed at game over")
	assert.Equal(t, game.StatusOnline, h.target("5").Status)

	assert.False(t, h.ctrl.OpenChallenge(context.Background(), "6"))
	assert.False(t, h.ctrl.ToggleSuppression("3"))
	assert.Equal(t, challenge.ResultNone, h.ctrl.Input("id").Kind)
	assert.Equal(t, 1, h.ctrl.State().HackedCount)
	assert.Equal(t, 1, h.rec.count(EventGameOver))
	assert.Equal(t, 1, h.rec.count(EventChallengeAborted))
	assert.Zero(t, h.rec.count(EventChallengeFailed), "game over is not a failed breach")
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyMedium)
	h.breach("1")
	require.True(t, h.ctrl.OpenChallenge(context.Background(), "2"))
	h.tick(4)

	oldID := h.ctrl.State().SessionID
	h.ctrl.Reset()

	st := h.ctrl.State()
	assert.NotEqual(t, oldID, st.SessionID)
	assert.Equal(t, State{SessionID: st.SessionID}, st)
	assert.Equal(t, game.PhaseUninitialized, st.Phase())
	assert.Empty(t, h.ctrl.Roster())
	assert.Equal(t, bootFeed, h.ctrl.Feed())
	_, open := h.ctrl.Challenge()
	assert.False(t, open)
	assert.Zero(t, h.clk.Active())

	// stale timers never touch the new session
	h.tick(60)
	assert.Zero(t, h.ctrl.State().DetectionLevel)
	assert.Zero(t, h.rec.count(EventChallengeFailed))
	assert.Zero(t, h.rec.count(EventChallengeCancelled))

	// and a fresh session can be played
	h.activate(game.DifficultyHard)
	assert.Equal(t, 8, h.ctrl.State().TotalTargets)
}

func TestStaleTickIgnored(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)

	// a tick that was already in flight when the generation moved on
	gen := h.ctrl.gen
	h.ctrl.Reset()
	h.ctrl.onDetectionTick(gen)
	h.ctrl.onChallengeTick(gen)

	assert.Zero(t, h.ctrl.State().DetectionLevel)
}

func TestEventsChannel_NonBlocking(t *testing.T) {
	clk := clock.NewManual()
	c := New(Options{Scheduler: clk, EventBuffer: 2, Rand: func() float64 { return 0 }})
	defer c.Close()
	require.True(t, c.AcceptWarning())
	require.True(t, c.SelectDifficulty(game.DifficultyEasy))
	require.True(t, c.CompleteTutorial())

	clk.Advance(10 * time.Second)
	assert.Len(t, c.Events(), 2)
	e := <-c.Events()
	assert.Equal(t, EventDetection, e.Kind)
	assert.Equal(t, c.State().SessionID, e.SessionID)
}

func TestClose_RejectsEverything(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)
	h.ctrl.Close()

	assert.Zero(t, h.clk.Active())
	assert.False(t, h.ctrl.OpenChallenge(context.Background(), "1"))
	h.ctrl.Reset()
	assert.Equal(t, game.PhaseActive, h.ctrl.Phase())
}

func TestClose_WhileLoading(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	h.ctrl.opts.Source = payload.SourceFunc(func(context.Context, game.Rank, string) ([]string, error) {
		close(entered)
		<-release
		return testStages, nil
	})
	h.activate(game.DifficultyEasy)

	done := make(chan bool)
	go func() { done <- h.ctrl.OpenChallenge(context.Background(), "1") }()
	<-entered

	h.ctrl.Close()
	close(release)
	assert.False(t, <-done, "payload arriving after Close is discarded")

	_, open := h.ctrl.Challenge()
	assert.False(t, open)
	assert.Zero(t, h.clk.Active(), "no countdown starts after Close")
	assert.Zero(t, h.rec.count(EventChallengeReady))
}

func TestClose_DropsOpenChallenge(t *testing.T) {
	h := newHarness(t)
	h.activate(game.DifficultyEasy)
	require.True(t, h.ctrl.OpenChallenge(context.Background(), "1"))
	gen := h.ctrl.gen

	h.ctrl.Close()
	h.ctrl.Close()

	_, open := h.ctrl.Challenge()
	assert.False(t, open)
	assert.Zero(t, h.clk.Active())
	h.ctrl.onChallengeTick(gen)
	assert.Zero(t, h.rec.count(EventChallengeFailed))
}

func TestRealClock_NoLeak(t *testing.T) {
	c := New(Options{Tick: 2 * time.Millisecond})
	require.True(t, c.AcceptWarning())
	require.True(t, c.SelectDifficulty(game.DifficultyNightmare))
	require.True(t, c.CompleteTutorial())
	require.True(t, c.OpenChallenge(context.Background(), "3"))

	assert.Eventually(t, func() bool { return c.State().DetectionLevel > 0 }, time.Second, time.Millisecond)
	c.Reset()
	c.Close()
}
