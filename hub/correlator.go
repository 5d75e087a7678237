package hub

import (
	"sync"
	"time"
)

// Dispatch paths. Recorded on every pending call for metrics and logs.
const (
	sourcePull = "pull"
	sourcePush = "push"
)

// pendingCall is the continuation registered when a work order is
// dispatched: everything needed to commit the matching result when (and if)
// it arrives. It is a plain record rather than a closure so that entries
// can be inspected and expired.
type pendingCall struct {
	ID       string
	PlaceID  string
	Source   string
	Session  *Session
	Deadline time.Time
}

// correlator maps correlation IDs to pending calls. A call is consumed at
// most once: by the first matching result (take) or by the expiry sweep,
// whichever comes first.
type correlator struct {
	mtx   sync.Mutex
	calls map[string]*pendingCall
}

func newCorrelator() *correlator {
	return &correlator{calls: make(map[string]*pendingCall)}
}

func (c *correlator) register(call *pendingCall) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.calls[call.ID] = call
}

// take removes and returns the pending call for id. The second return is
// false if the id is unknown or the call was already consumed; concurrent
// takes of the same id succeed for exactly one caller.
func (c *correlator) take(id string) (*pendingCall, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	call, ok := c.calls[id]
	delete(c.calls, id)
	return call, ok
}

// expire removes and returns every call whose deadline passed.
func (c *correlator) expire(now time.Time) []*pendingCall {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	var expired []*pendingCall
	for id, call := range c.calls {
		if now.After(call.Deadline) {
			expired = append(expired, call)
			delete(c.calls, id)
		}
	}
	return expired
}

// holdsPlace reports whether any pending call still references the place.
func (c *correlator) holdsPlace(placeID string) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, call := range c.calls {
		if call.PlaceID == placeID {
			return true
		}
	}
	return false
}

func (c *correlator) size() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.calls)
}
