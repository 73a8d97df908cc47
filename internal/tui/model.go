// Package tui renders the live bring-up of both sides as a bubbletea
// status view.
package tui

import (
	"fmt"
	"strings"
	"time"

	"lifectl/internal/reporting"
	"lifectl/pkg/logging"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunFinishedMsg is sent once the sides behind the view have stopped. The
// view quits on it.
type RunFinishedMsg struct {
	Err error
}

type logEntryMsg struct {
	entry logging.LogEntry
}

type clearStatusMsg struct{}

// statusMessageDuration is how long a status message stays visible.
const statusMessageDuration = 3 * time.Second

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// moduleRow is the latest update of one module, or of a side when the
// module name is empty.
type moduleRow struct {
	update reporting.ModuleUpdate
}

// Model is the status view. It reads module updates and log entries from
// channels until the run finishes or the user quits.
type Model struct {
	title   string
	updates <-chan tea.Msg
	logs    <-chan logging.LogEntry

	sides   []string
	modules map[string][]string
	rows    map[string]moduleRow

	logLines []string
	showLog  bool
	finished bool
	err      error

	status      string
	statusIsErr bool

	width  int
	height int

	Keys    KeyMap
	spinner spinner.Model
	help    help.Model
	logView viewport.Model
}

// NewModel creates a status view reading from updates and logs. Either
// channel may be nil.
func NewModel(title string, updates <-chan tea.Msg, logs <-chan logging.LogEntry) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		title:   title,
		updates: updates,
		logs:    logs,
		modules: make(map[string][]string),
		rows:    make(map[string]moduleRow),
		showLog: true,
		Keys:    DefaultKeyMap(),
		spinner: s,
		help:    help.New(),
		logView: viewport.New(80, 8),
	}
}

// NewProgram wraps m in a bubbletea program.
func NewProgram(m *Model, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(m, opts...)
}

func waitForUpdate(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func waitForLog(ch <-chan logging.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return logEntryMsg{entry: entry}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates), waitForLog(m.logs))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.logView.Width = max(msg.Width-2, 20)
		m.logView.Height = max(msg.Height/3, 3)
		return m, nil

	case reporting.ModuleUpdateMsg:
		m.apply(msg.Update)
		return m, waitForUpdate(m.updates)

	case logEntryMsg:
		m.appendLog(msg.entry)
		return m, waitForLog(m.logs)

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case RunFinishedMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.Keys.ToggleLog):
		m.showLog = !m.showLog
	case key.Matches(msg, m.Keys.CopyLogs):
		if err := writeClipboard(strings.Join(m.logLines, "\n")); err != nil {
			logging.Error("TUI", err, "Failed to copy logs")
			return m.setStatus("Copy logs failed", true)
		}
		return m.setStatus(fmt.Sprintf("Copied %d log lines", len(m.logLines)), false)
	case key.Matches(msg, m.Keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

func (m *Model) setStatus(status string, isErr bool) tea.Cmd {
	m.status = status
	m.statusIsErr = isErr
	return tea.Tick(statusMessageDuration, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m *Model) apply(update reporting.ModuleUpdate) {
	if _, seen := m.modules[update.Side]; !seen {
		m.sides = append(m.sides, update.Side)
		m.modules[update.Side] = nil
	}

	rowKey := update.Side + "/" + update.Module
	if _, seen := m.rows[rowKey]; !seen && update.Module != "" {
		m.modules[update.Side] = append(m.modules[update.Side], update.Module)
	}
	m.rows[rowKey] = moduleRow{update: update}
}

func (m *Model) appendLog(entry logging.LogEntry) {
	line := fmt.Sprintf("%s %-5s [%s] %s", entry.Timestamp.Format("15:04:05"), entry.Level, entry.Subsystem, entry.Message)
	if entry.Err != nil {
		line += ": " + entry.Err.Error()
	}

	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.logView.SetContent(strings.Join(m.logLines, "\n"))
	m.logView.GotoBottom()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	for _, side := range m.sides {
		b.WriteString(sideStyle.Render(m.renderSide(side)))
		b.WriteString("\n")
		for _, name := range m.modules[side] {
			b.WriteString(moduleStyle.Render(m.renderModule(m.rows[side+"/"+name].update)))
			b.WriteString("\n")
		}
	}

	if m.finished && m.err != nil {
		b.WriteString("\n")
		b.WriteString(failureStyle.Render(fmt.Sprintf("%s %v", IconCross, m.err)))
		b.WriteString("\n")
	}

	if m.showLog && len(m.logLines) > 0 {
		b.WriteString(logPanelStyle.Render(m.logView.View()))
		b.WriteString("\n")
	}

	if m.status != "" {
		style := successStyle
		if m.statusIsErr {
			style = failureStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.Keys))
	return b.String()
}

func (m *Model) renderSide(side string) string {
	row, ok := m.rows[side+"/"]
	if !ok {
		return fmt.Sprintf("%s %s", side, m.spinner.View())
	}

	u := row.update
	status := fmt.Sprintf("%s after %s", u.Stage, u.Elapsed.Round(time.Millisecond))
	if u.Err != nil {
		return fmt.Sprintf("%s %s", side, failureStyle.Render(status+": "+u.Err.Error()))
	}
	return fmt.Sprintf("%s %s", side, successStyle.Render(status))
}

func (m *Model) renderModule(u reporting.ModuleUpdate) string {
	switch u.Stage {
	case reporting.StageInitializing:
		return fmt.Sprintf("%s %s %s", m.spinner.View(), u.Module, mutedStyle.Render(u.Stage.String()))
	case reporting.StageInitialized:
		return fmt.Sprintf("%s %s %s", successStyle.Render(IconCheck), u.Module, successStyle.Render(u.Stage.String()))
	case reporting.StageFailed:
		line := fmt.Sprintf("%s %s %s", failureStyle.Render(IconCross), u.Module, failureStyle.Render(u.Stage.String()))
		if u.Err != nil {
			line += " " + failureStyle.Render(u.Err.Error())
		}
		return line
	}
	return fmt.Sprintf("%s %s %s", IconDot, u.Module, u.Stage)
}
