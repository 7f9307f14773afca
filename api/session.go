package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"propsignal/services"
	"propsignal/session"
	"propsignal/wizard"
)

type ctxKey int

const sessionKey ctxKey = iota

// withSession resolves the visitor's session from its cookie, issuing one on
// first contact
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolver := session.NewResolver(session.NewCookieStorage(w, r, s.deps.SecureCookies))
		sc := resolver.Context(r.Context())
		ctx := context.WithValue(r.Context(), sessionKey, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) session.SessionContext {
	sc, _ := ctx.Value(sessionKey).(session.SessionContext)
	return sc
}

// sessionStates holds the per-session interest flows and wizard states.
// Each entry carries its own lock so one session's requests run one at a time.
// Entries idle for longer than the cleanup window are dropped.
type sessionStates struct {
	mu       sync.Mutex
	interest map[string]*interestEntry
	wizards  map[string]*wizardEntry
	now      func() time.Time
}

type interestEntry struct {
	mu       sync.Mutex
	flow     *services.InterestFlow
	lastSeen time.Time
}

type wizardEntry struct {
	mu       sync.Mutex
	state    *wizard.State
	lastSeen time.Time
}

func newSessionStates() *sessionStates {
	return &sessionStates{
		interest: make(map[string]*interestEntry),
		wizards:  make(map[string]*wizardEntry),
		now:      time.Now,
	}
}

func interestKey(sessionID, listingID string) string {
	return sessionID + "|" + listingID
}

// interestFlow returns the flow for this session and listing, or nil when the
// session has not started one
func (s *sessionStates) interestFlow(sessionID, listingID string) *interestEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.interest[interestKey(sessionID, listingID)]
	if !ok {
		return nil
	}
	entry.lastSeen = s.now()
	return entry
}

// storeInterest keeps a started flow. An existing entry wins.
func (s *sessionStates) storeInterest(sessionID, listingID string, flow *services.InterestFlow) *interestEntry {
	key := interestKey(sessionID, listingID)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.interest[key]
	if !ok {
		entry = &interestEntry{flow: flow}
		s.interest[key] = entry
	}
	entry.lastSeen = s.now()
	return entry
}

// wizard returns the session's wizard, creating one only when create is set.
// It returns nil when there is none and create is false.
func (s *sessionStates) wizard(sessionID string, create bool) *wizardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.wizards[sessionID]
	if !ok {
		if !create {
			return nil
		}
		entry = &wizardEntry{state: wizard.NewState("")}
		s.wizards[sessionID] = entry
	}
	entry.lastSeen = s.now()
	return entry
}

// forgetWizard drops a finished wizard so the session can start another
func (s *sessionStates) forgetWizard(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wizards, sessionID)
}

// Cleanup drops entries idle for longer than maxIdle
func (s *sessionStates) Cleanup(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for key, entry := range s.interest {
		if entry.lastSeen.Before(cutoff) {
			delete(s.interest, key)
			removed++
		}
	}
	for key, entry := range s.wizards {
		if entry.lastSeen.Before(cutoff) {
			delete(s.wizards, key)
			removed++
		}
	}
	return removed
}

// Run drops idle entries every interval until ctx is done
func (s *sessionStates) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(maxIdle); n > 0 {
				log.Printf("API: dropped %d idle session states", n)
			}
		}
	}
}
