package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"quantumbreach/internal/challenge"
	"quantumbreach/internal/detection"
	"quantumbreach/internal/game"
)

// briefing builds the tutorial markdown for the chosen difficulty.
func briefing(d game.Difficulty) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# OPERATION BRIEFING // %s\n\n", d)
	b.WriteString("Every node on the grid runs a **three stage handshake**. ")
	b.WriteString("Type each stage exactly to advance; a single wrong character simply fails to match.\n\n")

	b.WriteString("## Trace\n\n")
	fmt.Fprintf(&b, "- The detection meter rises **%.2f%%** every second while you are connected.\n", d.DetectionBase())
	fmt.Fprintf(&b, "- A failed breach dumps a trace: **+%.0f%%** at once.\n", d.FailurePenalty())
	fmt.Fprintf(&b, "- At **%.0f%%** the connection is terminated.\n\n", detection.Ceiling)

	b.WriteString("## Time\n\n")
	fmt.Fprintf(&b, "- Budgets run at **%d%%** of the node base time:\n\n", d.TimePercent())
	b.WriteString("| RANK | BUDGET |\n|---|---|\n")
	for _, r := range game.Ranks {
		fmt.Fprintf(&b, "| %s | %ds |\n", r, challenge.Budget(r, d, 0))
	}
	b.WriteString("\n")
	if bonus := d.StageBonus(); bonus > 0 {
		fmt.Fprintf(&b, "- Clearing a stage restores **%ds**.\n", bonus)
	}
	fmt.Fprintf(&b, "- Each suppressed node adds **%ds** to the next breach.\n\n", challenge.SuppressionTime)

	b.WriteString("## Suppression\n\n")
	if limit := d.SuppressionCap(); limit > 0 {
		fmt.Fprintf(&b, "Engage the protocol on up to **%d** compromised node(s) to damp the trace by %.2f%% per tick each.\n",
			limit, detection.SuppressionDamping)
	} else {
		b.WriteString("Suppression protocols are **locked** at this tier.\n")
	}
	b.WriteString("\nTake every node on the grid before the trace completes.\n")
	return b.String()
}

// renderMarkdown renders md for the terminal. On renderer errors the raw text
// is returned.
func renderMarkdown(md, style string, width int) string {
	if width < 20 {
		width = 80
	}
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
