// Package game holds the closed vocabulary shared by every breach component:
// session difficulty, node rank, node status, terminal outcome and session phase,
// plus the lookup tables keyed by them.
//
// Every table is a total function over its enumeration. An out-of-range value is a
// programming error and panics rather than silently falling back to a default.
package game

import (
	"fmt"
	"strings"
)

// =============================================================================
// SESSION DIFFICULTY
// =============================================================================

// Difficulty is the player-selected tier, fixed for the lifetime of a session.
type Difficulty int

const (
	DifficultyUnset Difficulty = iota
	DifficultyEasy
	DifficultyMedium
	DifficultyHard
	DifficultyNightmare
)

// Difficulties lists the selectable tiers in menu order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyNightmare}

func (d Difficulty) String() string {
	switch d {
	case DifficultyUnset:
		return "UNSET"
	case DifficultyEasy:
		return "EASY"
	case DifficultyMedium:
		return "MEDIUM"
	case DifficultyHard:
		return "HARD"
	case DifficultyNightmare:
		return "NIGHTMARE"
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

// Valid reports whether d is a selectable tier.
func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyNightmare
}

// ParseDifficulty parses a tier name case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return DifficultyUnset, fmt.Errorf("unknown difficulty %q (valid: EASY, MEDIUM, HARD, NIGHTMARE)", s)
}

func mustDifficulty(d Difficulty) {
	if !d.Valid() {
		panic(fmt.Sprintf("game: no table entry for %s", d))
	}
}

// DetectionBase is the per-tick detection increase before suppression damping.
func (d Difficulty) DetectionBase() float64 {
	switch d {
	case DifficultyEasy:
		return 0.05
	case DifficultyMedium:
		return 0.15
	case DifficultyHard:
		return 0.45
	case DifficultyNightmare:
		return 1.0
	}
	mustDifficulty(d)
	return 0
}

// TimePercent scales a node's base challenge time, expressed in percent.
func (d Difficulty) TimePercent() int {
	switch d {
	case DifficultyEasy:
		return 100
	case DifficultyMedium:
		return 80
	case DifficultyHard:
		return 60
	case DifficultyNightmare:
		return 40
	}
	mustDifficulty(d)
	return 0
}

// StageBonus is the time (in ticks) granted for clearing a non-final stage.
func (d Difficulty) StageBonus() int {
	switch d {
	case DifficultyEasy:
		return 12
	case DifficultyMedium:
		return 8
	case DifficultyHard:
		return 5
	case DifficultyNightmare:
		return 2
	}
	mustDifficulty(d)
	return 0
}

// FailurePenalty is the lump-sum detection increase applied when a challenge expires.
func (d Difficulty) FailurePenalty() float64 {
	switch d {
	case DifficultyEasy, DifficultyMedium:
		return 15
	case DifficultyHard:
		return 30
	case DifficultyNightmare:
		return 50
	}
	mustDifficulty(d)
	return 0
}

// SuppressionCap is the maximum number of simultaneously suppressed nodes.
func (d Difficulty) SuppressionCap() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	case DifficultyNightmare:
		return 0
	}
	mustDifficulty(d)
	return 0
}

// RosterRanks lists the node ranks included in a roster for this tier.
func (d Difficulty) RosterRanks() []Rank {
	switch d {
	case DifficultyEasy:
		return []Rank{RankEasy, RankMedium}
	case DifficultyMedium:
		return []Rank{RankEasy, RankMedium, RankHard}
	case DifficultyHard:
		return []Rank{RankMedium, RankHard, RankPro}
	case DifficultyNightmare:
		return []Rank{RankHard, RankPro}
	}
	mustDifficulty(d)
	return nil
}

// =============================================================================
// NODE RANK
// =============================================================================

// Rank is the per-node security tier, distinct from session difficulty.
type Rank int

const (
	RankEasy Rank = iota + 1
	RankMedium
	RankHard
	RankPro
)

// Ranks lists every rank in ascending order.
var Ranks = []Rank{RankEasy, RankMedium, RankHard, RankPro}

func (r Rank) String() string {
	switch r {
	case RankEasy:
		return "EASY"
	case RankMedium:
		return "MEDIUM"
	case RankHard:
		return "HARD"
	case RankPro:
		return "PRO"
	}
	return fmt.Sprintf("Rank(%d)", int(r))
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	return r >= RankEasy && r <= RankPro
}

// ParseRank parses a rank name case-insensitively.
func ParseRank(s string) (Rank, error) {
	for _, r := range Ranks {
		if strings.EqualFold(strings.TrimSpace(s), r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q (valid: EASY, MEDIUM, HARD, PRO)", s)
}

func mustRank(r Rank) {
	if !r.Valid() {
		panic(fmt.Sprintf("game: no table entry for %s", r))
	}
}

// BaseTime is the unscaled challenge time budget in ticks.
func (r Rank) BaseTime() int {
	switch r {
	case RankEasy:
		return 15
	case RankMedium:
		return 25
	case RankHard:
		return 40
	case RankPro:
		return 60
	}
	mustRank(r)
	return 0
}

// PayloadBand is the inclusive character-length band requested from the text source.
func (r Rank) PayloadBand() (lo, hi int) {
	switch r {
	case RankEasy:
		return 5, 12
	case RankMedium:
		return 18, 30
	case RankHard:
		return 45, 65
	case RankPro:
		return 85, 130
	}
	mustRank(r)
	return 0, 0
}

// =============================================================================
// NODE STATUS / OUTCOME / PHASE
// =============================================================================

// Status is the lifecycle state of a roster node.
type Status int

const (
	StatusOnline Status = iota
	StatusBreaching
	StatusCompromised
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "ONLINE"
	case StatusBreaching:
		return "HACKING"
	case StatusCompromised:
		return "COMPROMISED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome is the terminal reason of a finished session.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "NONE"
	case OutcomeVictory:
		return "VICTORY"
	case OutcomeDefeat:
		return "DEFEAT"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Phase is the coarse session lifecycle position. Transitions only move forward;
// leaving PhaseGameOver requires a full reset.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseWarned
	PhaseDifficultySet
	PhaseActive
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "UNINITIALIZED"
	case PhaseWarned:
		return "WARNED"
	case PhaseDifficultySet:
		return "DIFFICULTY_SET"
	case PhaseActive:
		return "ACTIVE"
	case PhaseGameOver:
		return "GAME_OVER"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// =============================================================================
// TARGET
// =============================================================================

// Target is a simulated network node on the session roster.
type Target struct {
	ID         string
	Name       string
	Address    string
	Location   string
	Rank       Rank
	Status     Status
	Suppressed bool
}

// SuppressionCount counts suppressed nodes that are also compromised.
func SuppressionCount(targets []Target) int {
	n := 0
	for _, t := range targets {
		if t.Suppressed && t.Status == StatusCompromised {
			n++
		}
	}
	return n
}
