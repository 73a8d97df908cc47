package app

import (
	"context"
	"errors"
	"fmt"

	"lifectl/internal/tui"
	"lifectl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// runWithTUI runs the configured role behind the status view. Quitting the
// view stops the role, and a role that stops on its own closes the view.
func (a *Application) runWithTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// back to plain output once the view is gone; the channel is left open
	// for senders still holding it
	defer logging.InitForCLI(a.logLevel, a.config.LogOutput)

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(a.config.Out), tea.WithAltScreen()}
	if a.config.TUIInput != nil {
		opts = append(opts, tea.WithInput(a.config.TUIInput))
	}
	program := tui.NewProgram(tui.NewModel(fmt.Sprintf("lifectl %s", a.config.Role), a.tuiMsgs, a.logs), opts...)

	done := make(chan error, 1)
	go func() {
		err := a.runRole(ctx)
		done <- err
		select {
		case a.tuiMsgs <- tui.RunFinishedMsg{Err: err}:
		default:
			program.Quit()
		}
	}()

	_, tuiErr := program.Run()
	cancel()
	runErr := <-done

	if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		logging.Error("Bootstrap", tuiErr, "Status view failed")
		return errors.Join(runErr, fmt.Errorf("status view failed: %w", tuiErr))
	}
	return runErr
}
