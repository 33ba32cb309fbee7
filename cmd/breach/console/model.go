// Package console is the interactive bubbletea front end for a breach session.
//
// The model never mutates game state itself. It reads controller snapshots in
// View and turns key presses into controller operations; controller events
// arrive through waitForEvent and only trigger a re-render.
package console

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quantumbreach/cmd/breach/ui"
	"quantumbreach/internal/challenge"
	"quantumbreach/internal/game"
	"quantumbreach/internal/logging"
	"quantumbreach/internal/session"
)

const (
	bootInterval  = 200 * time.Millisecond
	bonusDuration = time.Second
)

// screen is the view currently shown. It is derived from controller state on
// every render, never stored.
type screen int

const (
	screenBoot screen = iota
	screenDifficulty
	screenTutorial
	screenBoard
	screenLoading
	screenTerminal
	screenGameOver
)

// =============================================================================
// MESSAGES
// =============================================================================

type (
	bootTickMsg  struct{}
	eventMsg     session.Event
	bonusDoneMsg struct{ seq int }

	challengeOpenedMsg struct {
		targetID string
		ok       bool
	}
)

// Options configures the console.
type Options struct {
	Styles ui.Styles
	// TutorialStyle is the glamour standard style (dark, light, notty).
	TutorialStyle string
}

// Model is the bubbletea model for one console.
type Model struct {
	ctx   context.Context
	ctrl  *session.Controller
	opts  Options
	keys  keyMap
	help  help.Model
	style ui.Styles

	width  int
	height int

	bootShown  int
	menuCursor int
	selected   int
	tutorial   string

	spinner spinner.Model
	input   textinput.Model
	meter   progress.Model

	bonus    int
	bonusSeq int
}

// New creates a console bound to ctrl. ctx bounds challenge text requests.
func New(ctx context.Context, ctrl *session.Controller, opts Options) Model {
	s := opts.Styles

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Spinner

	ti := textinput.New()
	ti.Prompt = "ROOT@V1:~$ "
	ti.PromptStyle = s.Prompt
	ti.TextStyle = s.Typed
	ti.Placeholder = "EXECUTE_DECRYPTION_INJECTION..."
	ti.CharLimit = 256

	meter := progress.New(
		progress.WithSolidFill(string(s.Theme.Primary)),
		progress.WithoutPercentage(),
		progress.WithWidth(40),
	)

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		opts:    opts,
		keys:    defaultKeyMap(),
		help:    help.New(),
		style:   s,
		width:   100,
		height:  40,
		spinner: sp,
		input:   ti,
		meter:   meter,
	}
}

// Init starts the boot sequence and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.tickBoot(),
		m.waitForEvent(),
	)
}

func (m Model) tickBoot() tea.Cmd {
	return tea.Tick(bootInterval, func(time.Time) tea.Msg { return bootTickMsg{} })
}

// waitForEvent listens for controller events
func (m Model) waitForEvent() tea.Cmd {
	ch := m.ctrl.Events()
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

// openChallenge runs the blocking open off the update loop.
func openChallenge(ctx context.Context, ctrl *session.Controller, targetID string) tea.Cmd {
	return func() tea.Msg {
		return challengeOpenedMsg{targetID: targetID, ok: ctrl.OpenChallenge(ctx, targetID)}
	}
}

func (m Model) screen() screen {
	st := m.ctrl.State()
	switch st.Phase() {
	case game.PhaseUninitialized:
		return screenBoot
	case game.PhaseWarned:
		return screenDifficulty
	case game.PhaseDifficultySet:
		return screenTutorial
	case game.PhaseGameOver:
		return screenGameOver
	}
	if _, ok := m.ctrl.Loading(); ok {
		return screenLoading
	}
	if _, ok := m.ctrl.Challenge(); ok {
		return screenTerminal
	}
	return screenBoard
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.meter.Width = max(10, msg.Width/2-10)
		m.input.Width = max(20, msg.Width-20)
		if m.tutorial != "" {
			m.tutorial = renderMarkdown(briefing(m.ctrl.State().Difficulty), m.opts.TutorialStyle, m.width)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQ) {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case bootTickMsg:
		if m.screen() != screenBoot || m.bootShown >= len(m.bootLines()) {
			return m, nil
		}
		m.bootShown++
		return m, m.tickBoot()

	case eventMsg:
		m = m.handleEvent(session.Event(msg))
		return m, m.waitForEvent()

	case challengeOpenedMsg:
		if msg.ok {
			m.input.Reset()
			return m, m.input.Focus()
		}
		logging.Get(logging.CategoryConsole).Debug("open on %s did not complete", msg.targetID)
		return m, nil

	case bonusDoneMsg:
		if msg.seq == m.bonusSeq {
			m.bonus = 0
		}
		return m, nil

	case spinner.TickMsg:
		if m.screen() != screenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleEvent(e session.Event) Model {
	switch e.Kind {
	case session.EventGameOver, session.EventChallengeCancelled, session.EventChallengeAborted, session.EventChallengeFailed:
		m.input.Blur()
		m.input.Reset()
		m.bonus = 0
	case session.EventReset:
		m.bootShown = 0
		m.menuCursor = 0
		m.selected = 0
		m.tutorial = ""
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen() {
	case screenBoot:
		if key.Matches(msg, m.keys.Confirm) {
			if m.bootShown < len(m.bootLines()) {
				m.bootShown = len(m.bootLines())
				return m, nil
			}
			m.ctrl.AcceptWarning()
		}

	case screenDifficulty:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.menuCursor = (m.menuCursor + len(game.Difficulties) - 1) % len(game.Difficulties)
		case key.Matches(msg, m.keys.Down):
			m.menuCursor = (m.menuCursor + 1) % len(game.Difficulties)
		case key.Matches(msg, m.keys.Confirm):
			d := game.Difficulties[m.menuCursor]
			if m.ctrl.SelectDifficulty(d) {
				m.tutorial = renderMarkdown(briefing(d), m.opts.TutorialStyle, m.width)
			}
		}

	case screenTutorial:
		if key.Matches(msg, m.keys.Confirm) {
			m.ctrl.CompleteTutorial()
		}

	case screenBoard:
		return m.handleBoardKey(msg)

	case screenLoading:
		if key.Matches(msg, m.keys.Abort) {
			m.ctrl.CancelChallenge()
		}

	case screenTerminal:
		return m.handleTerminalKey(msg)

	case screenGameOver:
		switch {
		case key.Matches(msg, m.keys.Restart):
			m.ctrl.Reset()
			m.bootShown = 0
			return m, m.tickBoot()
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	roster := m.ctrl.Roster()
	if len(roster) == 0 {
		return m, nil
	}
	m.selected = min(m.selected, len(roster)-1)
	target := roster[m.selected]

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.selected = (m.selected + len(roster) - 1) % len(roster)
	case key.Matches(msg, m.keys.Down):
		m.selected = (m.selected + 1) % len(roster)
	case key.Matches(msg, m.keys.Suppress):
		m.ctrl.ToggleSuppression(target.ID)
	case key.Matches(msg, m.keys.Confirm):
		if target.Status != game.StatusOnline {
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, openChallenge(m.ctx, m.ctrl, target.ID))
	}
	return m, nil
}

func (m Model) handleTerminalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Abort) {
		m.ctrl.CancelChallenge()
		m.input.Blur()
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	res := m.ctrl.Input(m.input.Value())
	switch res.Kind {
	case challenge.ResultStageCleared:
		m.input.Reset()
		m.bonus = res.Bonus
		m.bonusSeq++
		seq := m.bonusSeq
		return m, tea.Batch(cmd, tea.Tick(bonusDuration, func(time.Time) tea.Msg { return bonusDoneMsg{seq: seq} }))
	case challenge.ResultCompleted:
		m.input.Reset()
		m.input.Blur()
	}
	return m, cmd
}

// bootLines is the boot sequence shown before the warning is accepted.
func (m Model) bootLines() []string {
	id := strings.ToUpper(strings.ReplaceAll(m.ctrl.State().SessionID, "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return []string{
		"QUANTUM_BREACH CORE V1 // STABLE",
		"CPU: 1024-bit Quantum-Cell Architecture... DETECTED",
		"Bypassing Global Encryption Matrix... DONE",
		"Establishing P2P Darknet Tunnel... SECURED",
		"Kernel Hijack Status: NOMINAL",
		"WARNING: ACCESSING CLASS-4 NETWORK DATA",
		"SYSTEM_ID: " + id,
		"AUTHORIZATION_PENDING_//_REBOOT_ADVISED",
	}
}
