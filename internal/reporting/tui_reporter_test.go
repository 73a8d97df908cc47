package reporting

import (
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUIReporter_SendsUpdates(t *testing.T) {
	ch := make(chan tea.Msg, 4)
	r := NewTUIReporter(ch)

	r.Report(ModuleUpdate{Side: SideAuthority, Module: "Clock", Stage: StageInitialized})

	require.Len(t, ch, 1)
	msg, ok := (<-ch).(ModuleUpdateMsg)
	require.True(t, ok)
	assert.Equal(t, "Clock", msg.Update.Module)
	assert.False(t, msg.Update.Timestamp.IsZero(), "timestamp is filled in")

	snap, ok := r.StateStore().Get(SideAuthority, "Clock")
	require.True(t, ok)
	assert.Equal(t, StageInitialized, snap.Stage)
}

func TestTUIReporter_FullChannelDoesNotBlock(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	r := NewTUIReporter(ch)

	r.Report(ModuleUpdate{Side: SideAuthority, Module: "A", Stage: StageInitializing})
	r.Report(ModuleUpdate{Side: SideAuthority, Module: "B", Stage: StageFailed, Err: errors.New("boom")})

	assert.Len(t, ch, 1)
	// the dropped update is still recorded
	assert.Equal(t, []string{"B"}, r.StateStore().ByStage(SideAuthority, StageFailed))
}

func TestTUIReporter_NilChannel(t *testing.T) {
	r := NewTUIReporter(nil)
	assert.NotPanics(t, func() {
		r.Report(ModuleUpdate{Side: SideDependent, Stage: StageReady})
	})
}

func TestReportersKeepState(t *testing.T) {
	var _ StatefulReporter = NewConsoleReporter(io.Discard)
	var _ StatefulReporter = NewTUIReporter(nil)
}
