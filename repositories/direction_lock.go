package repositories

import (
	"dm-lab/domain"
	"sync"
)

// directionLocks serializes the claims of one (sender, receiver) direction inside the process.
// Entries are dropped once nobody holds or waits for them.
type directionLocks struct {
	mu    sync.Mutex
	locks map[direction]*directionLock
}

type direction struct {
	sender, receiver domain.UserID
}

type directionLock struct {
	sync.Mutex
	refs int
}

func newDirectionLocks() *directionLocks {
	return &directionLocks{locks: make(map[direction]*directionLock)}
}

// lock blocks until the direction is free and returns its unlock function.
func (d *directionLocks) lock(senderID, receiverID domain.UserID) func() {
	key := direction{sender: senderID, receiver: receiverID}

	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &directionLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}
