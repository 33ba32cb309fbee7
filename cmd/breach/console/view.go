package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"quantumbreach/cmd/breach/ui"
	"quantumbreach/internal/game"
	"quantumbreach/internal/roster"
)

const feedLines = 8

// View renders the current screen.
func (m Model) View() string {
	s := m.screen()

	var body string
	switch s {
	case screenBoot:
		body = m.viewBoot()
	case screenDifficulty:
		body = m.viewDifficulty()
	case screenTutorial:
		body = m.viewTutorial()
	case screenBoard:
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), m.viewBoard())
	case screenLoading:
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), m.viewLoading())
	case screenTerminal:
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), m.viewTerminal())
	case screenGameOver:
		body = m.viewGameOver()
	}

	footer := m.style.Footer.Render(m.help.ShortHelpView(m.keys.bindings(s)))
	return lipgloss.JoinVertical(lipgloss.Left, body, "", footer)
}

func (m Model) viewBoot() string {
	lines := m.bootLines()
	var b strings.Builder
	b.WriteString(m.banner())
	b.WriteString("\n\n")
	for _, l := range lines[:min(m.bootShown, len(lines))] {
		b.WriteString(m.style.Muted.Render(">> "))
		b.WriteString(m.style.Body.Render(l))
		b.WriteString("\n")
	}
	if m.bootShown >= len(lines) {
		b.WriteString(m.style.Success.Render("SYSTEM_READY_FOR_BREACH_INJECTION"))
		b.WriteString("\n\n")
		b.WriteString(m.style.Error.Render("COMPLIANCE_SECURITY_CHECK"))
		b.WriteString("\n")
		b.WriteString(m.style.Subtitle.Render(
			"All \"hacks\" are virtual scripts inside a typing simulation. Nothing here touches a real system."))
		b.WriteString("\n\n")
		b.WriteString(m.style.Badge.Render("ENTER // LOAD_KERNEL_//_BREACH"))
	}
	return b.String()
}

func (m Model) banner() string {
	if m.width < 80 {
		return m.style.Title.Render("QUANTUM_BREACH V1")
	}
	return ui.Logo(m.style)
}

func (m Model) viewDifficulty() string {
	var b strings.Builder
	b.WriteString(m.style.Title.Render("SELECT_THREAT_LEVEL"))
	b.WriteString("\n\n")
	for i, d := range game.Difficulties {
		line := fmt.Sprintf("%-10s nodes %-2d  trace +%.2f/s  time %3d%%  suppression %d",
			d, len(roster.Generate(d)), d.DetectionBase(), d.TimePercent(), d.SuppressionCap())
		if i == m.menuCursor {
			b.WriteString(m.style.Selected.Render("> " + line))
		} else {
			b.WriteString(m.style.Body.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewTutorial() string {
	if m.tutorial == "" {
		return renderMarkdown(briefing(m.ctrl.State().Difficulty), m.opts.TutorialStyle, m.width)
	}
	return m.tutorial
}

func (m Model) viewHeader() string {
	st := m.ctrl.State()
	level := st.DetectionLevel

	meter := m.meter
	meter.FullColor = string(m.style.DetectionColor(level))

	left := m.style.Title.Render("QUANTUM_BREACH V1") + "  " +
		m.style.Badge.Render(st.Difficulty.String()) + "  " +
		m.style.Body.Render(fmt.Sprintf("NODES %d/%d", st.HackedCount, st.TotalTargets))
	right := m.style.Muted.Render("TRACE ") + meter.ViewAs(level/100) + " " +
		lipgloss.NewStyle().Foreground(m.style.DetectionColor(level)).Bold(true).Render(fmt.Sprintf("%5.1f%%", level))

	return m.style.Header.Render(lipgloss.JoinHorizontal(lipgloss.Center, left, "   ", right))
}

func (m Model) viewBoard() string {
	targets := m.ctrl.Roster()
	selected := min(m.selected, len(targets)-1)
	table := m.style.RosterTable(targets, selected)

	var side strings.Builder
	side.WriteString(m.style.Title.Render("SUPPRESSION"))
	side.WriteString("\n")
	side.WriteString(m.style.RenderSlots(m.ctrl.SuppressionCount(), m.ctrl.SuppressionCap()))
	side.WriteString("\n\n")
	side.WriteString(m.style.Title.Render("ACTIVITY"))
	side.WriteString("\n")
	feed := m.ctrl.Feed()
	for _, l := range feed[:min(feedLines, len(feed))] {
		side.WriteString(m.style.Muted.Render("> " + l))
		side.WriteString("\n")
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, table, "  ", m.style.Panel.Render(side.String()))
	if m.ctrl.Critical() {
		warn := m.style.Error.Render("[!!] CRITICAL_TRACE_LEVEL_DETECTED [!!]  REBOOT KERNEL ADVISED (HACK NODES NOW)")
		board = lipgloss.JoinVertical(lipgloss.Left, warn, board)
	}
	return board
}

func (m Model) viewLoading() string {
	name := ""
	if id, ok := m.ctrl.Loading(); ok {
		for _, t := range m.ctrl.Roster() {
			if t.ID == id {
				name = t.Name
			}
		}
	}
	return "\n" + m.spinner.View() + " " + m.style.Warning.Render("FORGING_EXPLOIT // "+name) + "\n"
}

func (m Model) viewTerminal() string {
	snap, ok := m.ctrl.Challenge()
	if !ok {
		return ""
	}

	timer := m.style.Timer
	if snap.TimeRemaining < 10 {
		timer = m.style.TimerLow
	}
	head := m.style.Title.Render("V1_BREACH: "+snap.Target.Name) + "  " +
		m.style.Muted.Render("USER_ID: root@breach // RANK: "+snap.Target.Rank.String()) + "  " +
		timer.Render(fmt.Sprintf("%ds", snap.TimeRemaining))
	if m.bonus > 0 {
		head += "  " + m.style.BonusFlag.Render(fmt.Sprintf("TIME_RESTORED_V1 +%ds", m.bonus))
	}

	threshold := float64(snap.Stage+1) / float64(len(snap.Stages)) * 100

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		head,
		"",
		m.style.RenderStages(len(snap.Stages), snap.Stage),
		"",
		m.style.Muted.Render(">>>_CORE_V1_PAYLOAD_HANDSHAKE"),
		m.style.Panel.Render(m.style.RenderTyped(snap.Active(), snap.Typed)),
		"",
		m.input.View(),
		"",
		m.style.Info.Render(fmt.Sprintf("BYPASS_THRESHOLD: %.0f%%", threshold)),
	)
}

func (m Model) viewGameOver() string {
	st := m.ctrl.State()
	var title string
	if st.Outcome == game.OutcomeVictory {
		title = m.style.Success.Render("NETWORK_OWNED // ALL NODES COMPROMISED")
	} else {
		title = m.style.Error.Render("TRACE_COMPLETE // CONNECTION_TERMINATED")
	}
	stats := m.style.Body.Render(fmt.Sprintf("DIFFICULTY %s  NODES %d/%d  TRACE %.1f%%",
		st.Difficulty, st.HackedCount, st.TotalTargets, st.DetectionLevel))
	return lipgloss.JoinVertical(lipgloss.Left, "", title, "", stats, m.style.Muted.Render("SESSION "+st.SessionID))
}
