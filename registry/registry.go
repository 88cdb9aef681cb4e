package registry

import (
	"sync"
)

// Token is an opaque handle correlating engine callbacks with a registered
// handler. The high 32 bits carry a slot generation, the low 32 bits a slot
// index; a deregistered token can therefore never resolve again, even after
// its slot is reused. Token 0 is reserved and always invalid.
type Token uint64

func makeToken(index, gen uint32) Token {
	return Token(uint64(gen)<<32 | uint64(index+1))
}

func splitToken(t Token) (index, gen uint32, ok bool) {
	low := uint32(t)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(t >> 32), true
}

// EventType enumerates registration lifecycle notifications.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventDeregistered
)

// Event describes a registration lifecycle change.
type Event struct {
	Value any
	Token Token
	Type  EventType
}

// Observer receives registration lifecycle events.
type Observer interface {
	OnRegistryEvent(Event)
}

type slot struct {
	value    any
	inflight sync.WaitGroup
	gen      uint32
	live     bool
}

// Registry owns the token to handler mapping. Register, Resolve and
// Deregister are safe for concurrent use from any goroutine; Resolve for
// one token never contends with Deregister for another beyond the shared
// map lock.
type Registry struct {
	slots     []*slot
	freeList  []uint32
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		slots:    make([]*slot, 0, 16),
		freeList: make([]uint32, 0, 8),
	}
}

// Register stores value under a fresh token, distinct from every token that
// has ever been issued. Returns 0 if the registry is closed.
func (r *Registry) Register(value any) Token {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}

	var index uint32
	var s *slot
	if n := len(r.freeList); n > 0 {
		index = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		s = r.slots[index]
		s.gen++
	} else {
		s = &slot{gen: 1}
		r.slots = append(r.slots, s)
		index = uint32(len(r.slots) - 1)
	}
	s.value = value
	s.live = true
	token := makeToken(index, s.gen)
	r.mu.Unlock()

	r.notify(Event{Type: EventRegistered, Token: token, Value: value})
	return token
}

// Resolve looks up the handler for token and pins its slot until the
// returned lease is released. It returns false for unknown, stale, or
// deregistered tokens.
//
// The pin is what lets Deregister block until every in-flight callback
// referencing the token has finished with the handler.
func (r *Registry) Resolve(token Token) (*Lease, bool) {
	index, gen, ok := splitToken(token)
	if !ok {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(index) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[index]
	if !s.live || s.gen != gen {
		return nil, false
	}

	// Add while holding the read lock: Deregister flips live under the
	// write lock before waiting, so no pin can start after it begins.
	s.inflight.Add(1)
	return &Lease{value: s.value, slot: s}, true
}

// Deregister removes the mapping for token and blocks until every
// outstanding lease for it has been released. After it returns the caller
// may safely destroy the handler. Returns false for unknown or already
// deregistered tokens.
func (r *Registry) Deregister(token Token) bool {
	index, gen, ok := splitToken(token)
	if !ok {
		return false
	}

	r.mu.Lock()
	if int(index) >= len(r.slots) {
		r.mu.Unlock()
		return false
	}
	s := r.slots[index]
	if !s.live || s.gen != gen {
		r.mu.Unlock()
		return false
	}
	s.live = false
	value := s.value
	s.value = nil
	r.mu.Unlock()

	// Drain in-flight resolves before recycling the slot.
	s.inflight.Wait()

	r.mu.Lock()
	r.freeList = append(r.freeList, index)
	r.mu.Unlock()

	r.notify(Event{Type: EventDeregistered, Token: token, Value: value})
	return true
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.slots {
		if s.live {
			count++
		}
	}
	return count
}

// Tokens returns the currently live tokens.
func (r *Registry) Tokens() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Token
	for i, s := range r.slots {
		if s.live {
			out = append(out, makeToken(uint32(i), s.gen))
		}
	}
	return out
}

// Close deregisters every live token and rejects further registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	for _, token := range r.Tokens() {
		r.Deregister(token)
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnRegistryEvent(e)
	}
}

// Lease pins a resolved handler. Release must be called exactly once; a
// released lease must not be used again.
type Lease struct {
	value any
	slot  *slot
	once  sync.Once
}

// Value returns the handler stored at registration.
func (l *Lease) Value() any {
	return l.value
}

// Release unpins the slot, unblocking a concurrent Deregister.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.slot.inflight.Done()
	})
}
