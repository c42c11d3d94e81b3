package vfs

import (
	"fmt"
	"sync"
)

// LockLevel mirrors the SQLite file-locking state machine that a
// sqlite3.SQLiteVFS-shaped xLock/xUnlock hook must honor: NONE < SHARED <
// RESERVED < PENDING < EXCLUSIVE, with multiple readers allowed at SHARED
// and only a single writer ever reaching RESERVED/EXCLUSIVE.
type LockLevel int

const (
	LockNone LockLevel = iota
	LockShared
	LockReserved
	LockPending
	LockExclusive
)

func (l LockLevel) String() string {
	switch l {
	case LockNone:
		return "none"
	case LockShared:
		return "shared"
	case LockReserved:
		return "reserved"
	case LockPending:
		return "pending"
	case LockExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// lockState is the in-memory, single-process lock table for one VFS
// path. The level a reader observes is derived from which of these
// flags is set, highest first, rather than tracked as a separate field
// that could drift out of sync with them.
//
// Grounded on the teacher's virtualizer idiom (e.g.
// pkg/virtualizers/hyperv.Virtualizer's "finishedLock sync.Mutex" plus
// plain state fields) rather than any third-party state-machine
// library, since go-sqlite3 itself implements this exact table in C and
// exposes no reusable Go type for it.
type lockState struct {
	mu        sync.Mutex
	sharers   int
	reserved  bool
	pending   bool
	exclusive bool
}

func (s *lockState) level() LockLevel {
	switch {
	case s.exclusive:
		return LockExclusive
	case s.pending:
		return LockPending
	case s.reserved:
		return LockReserved
	case s.sharers > 0:
		return LockShared
	default:
		return LockNone
	}
}

// acquire attempts to move this handle's lock from current to to.
func (s *lockState) acquire(current, to LockLevel) (LockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if to <= current {
		return current, nil
	}

	switch to {
	case LockShared:
		if s.pending || s.exclusive {
			return current, fmt.Errorf("vfs: cannot acquire SHARED while PENDING/EXCLUSIVE is held")
		}
		s.sharers++
		return LockShared, nil

	case LockReserved:
		if current < LockShared {
			return current, fmt.Errorf("vfs: RESERVED requires SHARED first")
		}
		if s.reserved || s.pending || s.exclusive {
			return current, fmt.Errorf("vfs: RESERVED/PENDING/EXCLUSIVE already held by another handle")
		}
		s.reserved = true
		return LockReserved, nil

	case LockPending:
		if current < LockReserved {
			return current, fmt.Errorf("vfs: PENDING requires RESERVED first")
		}
		if s.pending || s.exclusive {
			return current, fmt.Errorf("vfs: PENDING/EXCLUSIVE already held by another handle")
		}
		s.pending = true
		return LockPending, nil

	case LockExclusive:
		if current < LockReserved {
			return current, fmt.Errorf("vfs: EXCLUSIVE requires RESERVED first")
		}
		if s.exclusive {
			return current, fmt.Errorf("vfs: EXCLUSIVE already held by another handle")
		}
		if s.sharers > 1 {
			return current, fmt.Errorf("vfs: other readers still hold SHARED")
		}
		s.pending = false
		s.exclusive = true
		return LockExclusive, nil

	default:
		return current, fmt.Errorf("vfs: invalid lock level %v", to)
	}
}

// release drops this handle's lock from current down to to.
func (s *lockState) release(current, to LockLevel) LockLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if to >= current {
		return current
	}

	if current >= LockExclusive && to < LockExclusive {
		s.exclusive = false
	}
	if current >= LockPending && to < LockPending {
		s.pending = false
	}
	if current >= LockReserved && to < LockReserved {
		s.reserved = false
	}
	if current >= LockShared && to < LockShared && s.sharers > 0 {
		s.sharers--
	}
	return to
}

// checkReserved reports whether some handle (not necessarily this one)
// holds RESERVED or above.
func (s *lockState) checkReserved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level() >= LockReserved
}
