package console

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding the console reacts to. Each screen only consults
// the subset that makes sense for it.
type keyMap struct {
	Quit     key.Binding
	ForceQ   key.Binding
	Up       key.Binding
	Down     key.Binding
	Confirm  key.Binding
	Suppress key.Binding
	Abort    key.Binding
	Restart  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "disconnect"),
		),
		ForceQ: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "kill"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "execute"),
		),
		Suppress: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "engage/suspend protocol"),
		),
		Abort: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "abort session"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reboot kernel"),
		),
	}
}

// bindings returns the help line for a screen.
func (k keyMap) bindings(s screen) []key.Binding {
	switch s {
	case screenBoot, screenTutorial:
		return []key.Binding{k.Confirm, k.ForceQ}
	case screenDifficulty:
		return []key.Binding{k.Up, k.Down, k.Confirm, k.ForceQ}
	case screenBoard:
		return []key.Binding{k.Up, k.Down, k.Confirm, k.Suppress, k.Quit}
	case screenLoading, screenTerminal:
		return []key.Binding{k.Abort, k.ForceQ}
	case screenGameOver:
		return []key.Binding{k.Restart, k.Quit}
	}
	return nil
}
