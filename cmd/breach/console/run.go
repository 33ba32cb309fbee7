package console

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"quantumbreach/internal/logging"
	"quantumbreach/internal/session"
)

// Run drives the console until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl *session.Controller, opts Options) error {
	log := logging.Get(logging.CategoryConsole)

	p := tea.NewProgram(New(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		log.Info("console stopped: %v", ctx.Err())
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("console closed by user")
	return nil
}
