package utils

import (
	"sync"
)

// OptionalMutex locks only when UseMutex is set. Managers created as externally
// synchronized leave it unset and pay nothing for locking.
type OptionalMutex struct {
	UseMutex bool
	mutex    sync.Mutex
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.mutex.Unlock()
	}
}

// OptionalRWMutex is the reader/writer form of OptionalMutex
type OptionalRWMutex struct {
	UseMutex bool
	mutex    sync.RWMutex
}

func (m *OptionalRWMutex) Lock() {
	if m.UseMutex {
		m.mutex.Lock()
	}
}

func (m *OptionalRWMutex) Unlock() {
	if m.UseMutex {
		m.mutex.Unlock()
	}
}

func (m *OptionalRWMutex) RLock() {
	if m.UseMutex {
		m.mutex.RLock()
	}
}

func (m *OptionalRWMutex) RUnlock() {
	if m.UseMutex {
		m.mutex.RUnlock()
	}
}
