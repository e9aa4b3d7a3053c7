package services

import "sync"

// projectLocks hands out one RWMutex per project. Publish and delete take
// the exclusive side, pending writes the shared side.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*sync.RWMutex)}
}

func (l *projectLocks) get(projectID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[projectID]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[projectID] = lock
	}
	return lock
}
