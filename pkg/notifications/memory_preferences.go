package notifications

import (
	"context"
	"sync"
)

// MemoryPreferences is an in-process PreferenceStorage.
type MemoryPreferences struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryPreferences returns an empty in-process preference store.
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{prefs: make(map[string]Preferences)}
}

func (m *MemoryPreferences) Load(_ context.Context, userID string) (Preferences, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prefs[userID]
	if !ok {
		return Preferences{}, false, nil
	}
	return p.Clone(), true, nil
}

func (m *MemoryPreferences) Save(_ context.Context, prefs Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs[prefs.UserID] = prefs.Clone()
	return nil
}
