package farmapi

import "sync"

// Tokens is an access/refresh token pair issued by the Authentication API.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Session carries one user's tokens into the client. It is created per caller and
// passed explicitly; the client keeps no token state of its own.
// A Session is safe for concurrent use.
type Session struct {
	onRefresh func(Tokens)
	tokens    Tokens
	mu        sync.RWMutex
}

// NewSession creates a session from an existing token pair.
func NewSession(access, refresh string) *Session {
	return &Session{tokens: Tokens{Access: access, Refresh: refresh}}
}

// Tokens returns the current pair.
func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// OnRefresh registers fn to be called after every token rotation.
func (s *Session) OnRefresh(fn func(Tokens)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

// rotate stores a refreshed pair. An empty refresh token keeps the previous one,
// since not every Authentication API rotates refresh tokens.
func (s *Session) rotate(t Tokens) {
	s.mu.Lock()
	if t.Refresh == "" {
		t.Refresh = s.tokens.Refresh
	}
	s.tokens = t
	hook := s.onRefresh
	s.mu.Unlock()

	if hook != nil {
		hook(t)
	}
}
