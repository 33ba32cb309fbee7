package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantumbreach/internal/game"
)

func target(rank game.Rank) game.Target {
	return game.Target{ID: "3", Name: "Neon_Spire_Grid", Rank: rank}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name       string
		rank       game.Rank
		difficulty game.Difficulty
		suppressed int
		want       int
	}{
		{"hard/hard/2", game.RankHard, game.DifficultyHard, 2, 36},
		{"easy/easy/0", game.RankEasy, game.DifficultyEasy, 0, 15},
		{"pro/nightmare/0", game.RankPro, game.DifficultyNightmare, 0, 24},
		{"medium/medium/1", game.RankMedium, game.DifficultyMedium, 1, 26},
		{"easy/nightmare floor", game.RankEasy, game.DifficultyNightmare, 0, MinBudget},
		{"easy/hard ceil", game.RankEasy, game.DifficultyHard, 0, 9},
		{"negative suppression", game.RankEasy, game.DifficultyEasy, -2, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Budget(tt.rank, tt.difficulty, tt.suppressed))
		})
	}
}

func TestNew_RequiresStages(t *testing.T) {
	_, err := New(target(game.RankEasy), game.DifficultyEasy, 0, nil)
	assert.ErrorIs(t, err, ErrNoStages)
}

func TestInput_StageAdvance(t *testing.T) {
	s, err := New(target(game.RankHard), game.DifficultyHard, 2, []string{"ls", "id", "whoami"})
	require.NoError(t, err)
	assert.Equal(t, 36, s.Snapshot().TimeRemaining)

	// partial and wrong input never rejects or resets anything
	assert.Equal(t, ResultNone, s.Input("l").Kind)
	assert.Equal(t, ResultNone, s.Input("lx").Kind)
	assert.Equal(t, "lx", s.Snapshot().Typed)

	res := s.Input("ls")
	assert.Equal(t, ResultStageCleared, res.Kind)
	assert.Equal(t, 5, res.Bonus)
	assert.Equal(t, 0, res.Stage)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Stage)
	assert.Equal(t, "", snap.Typed)
	assert.Equal(t, 41, snap.TimeRemaining)
	assert.Equal(t, 36, snap.TimeBudget)
	assert.Equal(t, "id", snap.Active())

	res = s.Input("id")
	assert.Equal(t, ResultStageCleared, res.Kind)
	assert.Equal(t, 46, s.Snapshot().TimeRemaining)

	res = s.Input("whoami")
	assert.Equal(t, ResultCompleted, res.Kind)
	assert.Zero(t, res.Bonus, "final stage grants no bonus")
	assert.Equal(t, 46, s.Snapshot().TimeRemaining)
	assert.True(t, s.Closed())

	// closed sessions ignore further updates
	assert.Equal(t, ResultNone, s.Input("whoami").Kind)
	assert.Equal(t, ResultNone, s.Tick().Kind)
}

func TestInput_BonusBySessionDifficulty(t *testing.T) {
	for _, d := range game.Difficulties {
		s, err := New(target(game.RankPro), d, 0, []string{"a", "b"})
		require.NoError(t, err)
		before := s.Snapshot().TimeRemaining
		res := s.Input("a")
		assert.Equal(t, d.StageBonus(), res.Bonus, d.String())
		assert.Equal(t, before+d.StageBonus(), s.Snapshot().TimeRemaining)
	}
}

func TestTick_Expires(t *testing.T) {
	s, err := New(target(game.RankEasy), game.DifficultyNightmare, 0, []string{"id"})
	require.NoError(t, err)

	for i := 0; i < MinBudget-1; i++ {
		assert.Equal(t, ResultNone, s.Tick().Kind)
	}
	assert.Equal(t, 1, s.Snapshot().TimeRemaining)

	assert.Equal(t, ResultExpired, s.Tick().Kind)
	assert.Equal(t, 0, s.Snapshot().TimeRemaining)
	assert.True(t, s.Closed())

	// expiry is reported exactly once
	assert.Equal(t, ResultNone, s.Tick().Kind)
	assert.Equal(t, 0, s.Snapshot().TimeRemaining)
}

func TestSingleStage(t *testing.T) {
	s, err := New(target(game.RankPro), game.DifficultyEasy, 0, []string{"pwn"})
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, s.Input("pwn").Kind)
}

func TestSnapshot_IsCopy(t *testing.T) {
	stages := []string{"a", "b", "c"}
	s, err := New(target(game.RankEasy), game.DifficultyEasy, 0, stages)
	require.NoError(t, err)

	stages[0] = "mutated"
	snap := s.Snapshot()
	snap.Stages[1] = "mutated"

	assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot().Stages)
}

func TestClose(t *testing.T) {
	s, err := New(target(game.RankEasy), game.DifficultyEasy, 0, []string{"a"})
	require.NoError(t, err)
	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	assert.Equal(t, ResultNone, s.Input("a").Kind)
}
