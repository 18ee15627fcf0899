package auth

import "sync"

// Provider holds the current session and notifies subscribers when it
// changes. Callers read state with Current and register interest with
// Subscribe; there is no ambient global — whoever needs the scope holds a
// *Provider.
type Provider struct {
	mu      sync.RWMutex
	current *Session
	subs    map[int]func(*Session)
	nextID  int
}

func NewProvider() *Provider {
	return &Provider{subs: make(map[int]func(*Session))}
}

// Current returns the active session, or nil when signed out.
func (p *Provider) Current() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Scope returns the owner scope of the active session, or "" when signed
// out.
func (p *Provider) Scope() string {
	if s := p.Current(); s != nil {
		return s.UserID
	}
	return ""
}

// Set replaces the current session and notifies subscribers.
func (p *Provider) Set(s *Session) {
	p.mu.Lock()
	p.current = s
	subs := make([]func(*Session), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Clear signs out.
func (p *Provider) Clear() { p.Set(nil) }

// Subscribe registers a change callback and returns its cancel function.
func (p *Provider) Subscribe(fn func(*Session)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}
