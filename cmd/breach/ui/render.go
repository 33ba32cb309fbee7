package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"quantumbreach/internal/game"
)

// Detection thresholds for the meter color.
const (
	cautionLevel  = 50.0
	criticalLevel = 80.0
)

// DetectionColor returns the meter color for a detection level.
func (s Styles) DetectionColor(level float64) lipgloss.Color {
	switch {
	case level > criticalLevel:
		return Destructive
	case level > cautionLevel:
		return Caution
	}
	return s.Theme.Primary
}

// RenderTyped colors the target string by what has been typed so far: matching
// characters in the primary color, mismatches in red, the rest muted.
func (s Styles) RenderTyped(target, typed string) string {
	want := []rune(target)
	got := []rune(typed)

	var b strings.Builder
	for i, r := range want {
		ch := string(r)
		switch {
		case i >= len(got):
			b.WriteString(s.Pending.Render(ch))
		case got[i] == r:
			b.WriteString(s.Typed.Render(ch))
		default:
			b.WriteString(s.Mistyped.Render(ch))
		}
	}
	// Overflow past the target is always wrong.
	if len(got) > len(want) {
		b.WriteString(s.Mistyped.Render(string(got[len(want):])))
	}
	return b.String()
}

// RenderStages draws the stage progress row.
func (s Styles) RenderStages(total, current int) string {
	parts := make([]string, 0, total)
	for i := 0; i < total; i++ {
		label := fmt.Sprintf("%d", i+1)
		switch {
		case i < current:
			parts = append(parts, s.StageDone.Render("✓"))
		case i == current:
			parts = append(parts, s.StageNow.Render(label))
		default:
			parts = append(parts, s.StageNext.Render(label))
		}
	}
	return strings.Join(parts, s.Muted.Render(" › "))
}

// RenderSlots draws the suppression slots. A zero cap still shows one locked slot.
func (s Styles) RenderSlots(used, limit int) string {
	if limit <= 0 {
		return s.Muted.Render("[×]") + " " + s.Muted.Render("LOCKED")
	}
	var b strings.Builder
	for i := 0; i < limit; i++ {
		if i < used {
			b.WriteString(s.Info.Render("[■]"))
		} else {
			b.WriteString(s.Muted.Render("[□]"))
		}
	}
	fmt.Fprintf(&b, " %d/%d", used, limit)
	return b.String()
}

// StatusLabel returns the display label for a target's state.
func StatusLabel(t game.Target) string {
	if t.Status == game.StatusCompromised {
		if t.Suppressed {
			return "PROTOCOL: ACTIVE"
		}
		return "COMPROMISED"
	}
	return t.Status.String()
}

func (s Styles) statusStyle(t game.Target) lipgloss.Style {
	switch {
	case t.Status == game.StatusCompromised && t.Suppressed:
		return s.Info
	case t.Status == game.StatusCompromised:
		return s.Success
	case t.Status == game.StatusBreaching:
		return s.Warning
	}
	return s.Body
}

// RosterTable renders targets as a table. selected < 0 highlights nothing.
func (s Styles) RosterTable(targets []game.Target, selected int) string {
	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		rows = append(rows, []string{t.ID, t.Name, t.Address, t.Location, t.Rank.String(), StatusLabel(t)})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Divider).
		Headers("ID", "NODE", "ADDRESS", "REGION", "RANK", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Title.Padding(0, 1)
			}
			if row == selected {
				return s.Selected.Padding(0, 1)
			}
			if col == 5 && row >= 0 && row < len(targets) {
				return s.statusStyle(targets[row]).Padding(0, 1)
			}
			return s.Cell
		}).
		String()
}

// Table renders a generic header/rows table in the console style.
func (s Styles) Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Divider).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Title.Padding(0, 1)
			}
			return s.Cell
		}).
		String()
}
