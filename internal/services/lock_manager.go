// internal/services/lock_manager.go
package services

import "sync"

// LockManager 按资源ID分配读写锁，无人持有时自动回收
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	rw   sync.RWMutex
	refs int
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*lockEntry)}
}

func (lm *LockManager) acquire(id string) *lockEntry {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	e, ok := lm.locks[id]
	if !ok {
		e = &lockEntry{}
		lm.locks[id] = e
	}
	e.refs++
	return e
}

func (lm *LockManager) release(id string, e *lockEntry) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(lm.locks, id)
	}
}

// WithLock 在写锁保护下执行 fn
func (lm *LockManager) WithLock(id string, fn func() error) error {
	e := lm.acquire(id)
	defer lm.release(id, e)
	e.rw.Lock()
	defer e.rw.Unlock()
	return fn()
}

// WithReadLock 在读锁保护下执行 fn
func (lm *LockManager) WithReadLock(id string, fn func() error) error {
	e := lm.acquire(id)
	defer lm.release(id, e)
	e.rw.RLock()
	defer e.rw.RUnlock()
	return fn()
}

// Len 当前持有中的锁数量
func (lm *LockManager) Len() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.locks)
}
