package exchange

import (
	"sync"
	"time"

	"gridmm/internal/signer"
)

// sessionState is the session lifecycle: None -> Creating -> Live ->
// Expiring -> None.
type sessionState int

const (
	sessionNone sessionState = iota
	sessionCreating
	sessionLive
	sessionExpiring
)

// session holds the live session record: the server-issued id, the
// ephemeral key pair used for session-sign, and the expiry instant. Owned
// exclusively by the adapter; no other component mutates it.
type session struct {
	mu sync.Mutex

	state       sessionState
	id          string
	ephemeral   *signer.Signer
	expiresAt   time.Time
	renewBefore time.Duration
}

func newSessionHolder(renewBefore time.Duration) *session {
	return &session{state: sessionNone, renewBefore: renewBefore}
}

// needsRenewal reports whether the current session is absent, or live but
// within renewBefore of expiry, per the Live -> Expiring transition rule.
func (s *session) needsRenewal(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == sessionNone {
		return true
	}
	if s.state == sessionLive && now.Add(s.renewBefore).After(s.expiresAt) {
		s.state = sessionExpiring
		return true
	}
	return false
}

// beginCreating marks the session as being (re)created, so a concurrent
// caller observing the same holder does not also issue create_session.
func (s *session) beginCreating() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sessionCreating
}

// commit installs a newly created session, replacing the old one
// atomically on success.
func (s *session) commit(id string, eph *signer.Signer, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.ephemeral = eph
	s.expiresAt = expiresAt
	s.state = sessionLive
}

// invalidate transitions to None on an observed SessionExpired.
func (s *session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sessionNone
	s.id = ""
	s.ephemeral = nil
}

// current returns the live session id and signer, or ok=false if there is
// no live session.
func (s *session) current() (id string, eph *signer.Signer, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != sessionLive && s.state != sessionExpiring {
		return "", nil, false
	}
	return s.id, s.ephemeral, true
}
