package reporting

import (
	"sort"
	"sync"
	"time"
)

// ModuleSnapshot is the last known stage of one module.
type ModuleSnapshot struct {
	Side        string
	Module      string
	Stage       Stage
	Err         error
	LastUpdated time.Time
}

// StateStore keeps the latest stage of every module it has seen.
type StateStore struct {
	mu      sync.RWMutex
	modules map[string]ModuleSnapshot
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{modules: make(map[string]ModuleSnapshot)}
}

func storeKey(side, module string) string {
	return side + "/" + module
}

// Apply records update and reports whether the module's stage changed.
func (s *StateStore) Apply(update ModuleUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(update.Side, update.Module)
	old, exists := s.modules[key]
	s.modules[key] = ModuleSnapshot{
		Side:        update.Side,
		Module:      update.Module,
		Stage:       update.Stage,
		Err:         update.Err,
		LastUpdated: update.Timestamp,
	}
	return !exists || old.Stage != update.Stage
}

// Get returns the snapshot of one module.
func (s *StateStore) Get(side, module string) (ModuleSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.modules[storeKey(side, module)]
	return snap, ok
}

// ByStage returns the modules of side currently in stage, sorted by name.
func (s *StateStore) ByStage(side string, stage Stage) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, snap := range s.modules {
		if snap.Side == side && snap.Module != "" && snap.Stage == stage {
			names = append(names, snap.Module)
		}
	}
	sort.Strings(names)
	return names
}
