package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	"lifectl/pkg/logging"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleReporter prints module updates as styled lines and mirrors them to
// the logging package. It also keeps the latest stage per module.
type ConsoleReporter struct {
	out   io.Writer
	store *StateStore

	mu     sync.Mutex
	styles consoleStyles
}

type consoleStyles struct {
	side    lipgloss.Style
	module  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		side:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Width(10),
		module:  r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// NewConsoleReporter creates a reporter writing to out. Colors are only
// emitted when out is a terminal.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		store:  NewStateStore(),
		styles: newConsoleStyles(lipgloss.NewRenderer(out)),
	}
}

// Report processes an update by updating the state store, logging it and
// printing it.
func (c *ConsoleReporter) Report(update ModuleUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	// repeated stages are not printed again unless they carry an error
	if !c.store.Apply(update) && update.Err == nil {
		return
	}

	subsystem := update.Side
	if update.Module != "" {
		subsystem = update.Side + "-" + update.Module
	}
	switch {
	case update.Err != nil:
		logging.Error(subsystem, update.Err, "Stage: %s", update.Stage)
	case update.Stage == StageInitializing:
		logging.Debug(subsystem, "Stage: %s", update.Stage)
	default:
		logging.Info(subsystem, "Stage: %s", update.Stage)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.render(update))
}

func (c *ConsoleReporter) render(update ModuleUpdate) string {
	s := c.styles
	line := s.side.Render(update.Side) + " "

	if update.Module == "" {
		line += s.success.Render(fmt.Sprintf("%s after %s", update.Stage, update.Elapsed.Round(time.Millisecond)))
		if update.Err != nil {
			line += " " + s.failure.Render(update.Err.Error())
		}
		return line
	}

	line += s.module.Render(update.Module) + " "
	switch update.Stage {
	case StageInitializing:
		line += s.muted.Render(update.Stage.String())
	case StageInitialized:
		line += s.success.Render(update.Stage.String())
	case StageFailed:
		line += s.failure.Render(update.Stage.String())
	default:
		line += s.warning.Render(update.Stage.String())
	}
	if update.Err != nil {
		line += " " + s.failure.Render(update.Err.Error())
	}
	return line
}

// StateStore returns the underlying state store.
func (c *ConsoleReporter) StateStore() *StateStore {
	return c.store
}
