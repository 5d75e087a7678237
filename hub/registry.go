package hub

import (
	"crypto/ed25519"
	"sync"

	"github.com/airmesh/hub/transport"
)

// Session is one authenticated worker connection. A worker reconnecting
// under the same identity creates a second, independent session; the
// registry does not deduplicate by identity.
type Session struct {
	WorkerID  string
	PublicKey string // canonical wire encoding, as signed up with
	Key       ed25519.PublicKey
	Conn      transport.Conn
}

// registry tracks authenticated sessions, keyed by connection handle.
// Safe for concurrent use by in-flight message handlers.
type registry struct {
	mtx      sync.RWMutex
	sessions map[transport.Conn]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[transport.Conn]*Session)}
}

func (r *registry) add(session *Session) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.sessions[session.Conn] = session
}

func (r *registry) byConn(conn transport.Conn) *Session {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.sessions[conn]
}

func (r *registry) removeByConn(conn transport.Conn) (*Session, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	session, ok := r.sessions[conn]
	delete(r.sessions, conn)
	return session, ok
}

// snapshot returns the current sessions in unspecified order.
func (r *registry) snapshot() []*Session {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

func (r *registry) size() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.sessions)
}
