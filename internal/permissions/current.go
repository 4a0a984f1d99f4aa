package permissions

import "sync"

// The current-session memo holds the CapabilitySet of the session this
// process serves. It lives for the process; ClearCurrent resets it.
var (
	currentMu  sync.RWMutex
	currentSet *CapabilitySet
)

// SetCurrent records cs as the current session's capabilities.
func SetCurrent(cs *CapabilitySet) {
	currentMu.Lock()
	defer currentMu.Unlock()
	currentSet = cs
}

// Current returns the memoized CapabilitySet, if one was set.
func Current() (*CapabilitySet, bool) {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return currentSet, currentSet != nil
}

// ClearCurrent forgets the memoized CapabilitySet.
func ClearCurrent() {
	currentMu.Lock()
	defer currentMu.Unlock()
	currentSet = nil
}
