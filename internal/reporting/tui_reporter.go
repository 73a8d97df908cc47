package reporting

import (
	"time"

	"lifectl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// ModuleUpdateMsg carries a ModuleUpdate into the status view.
type ModuleUpdateMsg struct {
	Update ModuleUpdate
}

// TUIReporter sends updates to a channel for the status view to process.
type TUIReporter struct {
	updateChan chan<- tea.Msg
	store      *StateStore
}

// NewTUIReporter creates a TUIReporter that sends updates on updateChan.
func NewTUIReporter(updateChan chan<- tea.Msg) *TUIReporter {
	if updateChan == nil {
		logging.Error("TUIReporter", nil, "NewTUIReporter called with nil updateChan. Using a dummy channel.")
		dummyChan := make(chan tea.Msg)
		go func() {
			for range dummyChan {
			}
		}()
		updateChan = dummyChan
	}
	return &TUIReporter{updateChan: updateChan, store: NewStateStore()}
}

// Report records update and hands it to the status view. It never blocks:
// when the channel is full the update is dropped.
func (t *TUIReporter) Report(update ModuleUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	t.store.Apply(update)

	select {
	case t.updateChan <- ModuleUpdateMsg{Update: update}:
	default:
		if update.Stage == StageFailed || update.Stage == StageReady {
			logging.Warn("TUIReporter", "TUI channel full, dropping update for %s %s (stage=%s)",
				update.Side, update.Module, update.Stage)
		}
	}
}

// StateStore returns the underlying state store.
func (t *TUIReporter) StateStore() *StateStore {
	return t.store
}
