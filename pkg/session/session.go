// Package session holds the cookie and user agent state shared by every
// request of a crawl.
//
// A State is created once from the configured Cookie header and then updated
// from the Set-Cookie headers of each successful response. The cookie named
// _xsrf is the session token: a response that omits it, or sends it empty,
// never clears the token already held.
package session

import (
	"strings"
	"sync"
)

// TokenCookie is the cookie carrying the anti-forgery session token
const TokenCookie = "_xsrf"

// State is the mutable cookie/user-agent pair attached to outgoing requests.
// It is safe for concurrent use; concurrent merges are applied one at a time
// and the last one wins.
type State struct {
	mu        sync.RWMutex
	names     []string // first-seen order
	values    map[string]string
	userAgent string
}

// New parses a Cookie request header. Parts without '=' or with an empty
// name are skipped, and the first occurrence of a name wins.
func New(cookieHeader, userAgent string) *State {
	s := &State{
		values:    make(map[string]string),
		userAgent: userAgent,
	}

	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := splitPair(part)
		if !ok {
			continue
		}
		if _, seen := s.values[name]; seen {
			continue
		}
		s.names = append(s.names, name)
		s.values[name] = value
	}

	return s
}

// CurrentCookie renders the Cookie request header
func (s *State) CurrentCookie() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]string, 0, len(s.names))
	for _, name := range s.names {
		pairs = append(pairs, name+"="+s.values[name])
	}
	return strings.Join(pairs, "; ")
}

// UserAgent returns the configured user agent
func (s *State) UserAgent() string {
	return s.userAgent
}

// Token returns the current _xsrf value, or "" when none is held
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[TokenCookie]
}

// Len returns the number of cookies held
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// MergeResponseCookies overlays the name=value pairs of Set-Cookie header
// values onto the state. Attributes such as Path or Expires are ignored.
// New values replace old ones, except that a missing or empty _xsrf keeps
// the previous token.
func (s *State) MergeResponseCookies(setCookie []string) {
	if len(setCookie) == 0 {
		return
	}

	incoming := make(map[string]string, len(setCookie))
	order := make([]string, 0, len(setCookie))
	for _, header := range setCookie {
		first, _, _ := strings.Cut(header, ";")
		name, value, ok := splitPair(first)
		if !ok {
			continue
		}
		if _, seen := incoming[name]; !seen {
			order = append(order, name)
		}
		incoming[name] = value
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previousToken, hadToken := s.values[TokenCookie]
	for _, name := range order {
		if _, exists := s.values[name]; !exists {
			s.names = append(s.names, name)
		}
		s.values[name] = incoming[name]
	}

	if token := incoming[TokenCookie]; token == "" && hadToken {
		s.values[TokenCookie] = previousToken
	}
}

// splitPair splits "name=value", trimming surrounding whitespace
func splitPair(raw string) (string, string, bool) {
	name, value, found := strings.Cut(raw, "=")
	if !found {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}
