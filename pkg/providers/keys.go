package providers

import (
	"sync"
	"time"
)

// KeyErrorKind records why a key was last benched.
type KeyErrorKind string

// Key error kinds.
const (
	KeyErrorNone      KeyErrorKind = "none"
	KeyErrorAuth      KeyErrorKind = "auth"
	KeyErrorRateLimit KeyErrorKind = "rate_limit"
)

// KeyState is the runtime state of one API key.
type KeyState struct {
	// Secret is the API key
	Secret string `json:"-"`

	// LastErrorAt is when the key last failed (zero if never)
	LastErrorAt time.Time `json:"last_error_at,omitzero"`

	// ErrorKind is the kind of the last failure
	ErrorKind KeyErrorKind `json:"error_kind"`
}

// Masked returns the secret with all but its last four characters hidden.
func (s KeyState) Masked() string {
	if len(s.Secret) <= 4 {
		return "****"
	}
	return "****" + s.Secret[len(s.Secret)-4:]
}

// KeyRotator selects API keys from an ordered pool.
//
// Rate-limited keys are benched for a fixed cooldown; keys that failed
// authentication are benched until Reset is called. Selection starts at the
// rotation pointer, so a healthy key stays in use until it fails and the
// pool is walked round-robin from there.
//
// KeyRotator is safe for concurrent use; a failure observed by one call is
// visible to every other in-flight call immediately.
type KeyRotator struct {
	mu       sync.Mutex
	keys     []KeyState
	next     int
	cooldown time.Duration
	clock    Clock
}

// NewKeyRotator creates a rotator over secrets. Empty secrets are ignored.
// A zero cooldown uses DefaultKeyCooldown and a nil clock uses the wall clock.
func NewKeyRotator(secrets []string, cooldown time.Duration, clock Clock) *KeyRotator {
	if cooldown <= 0 {
		cooldown = DefaultKeyCooldown
	}
	if clock == nil {
		clock = SystemClock()
	}

	keys := make([]KeyState, 0, len(secrets))
	for _, s := range secrets {
		if s == "" {
			continue
		}
		keys = append(keys, KeyState{Secret: s, ErrorKind: KeyErrorNone})
	}

	return &KeyRotator{
		keys:     keys,
		cooldown: cooldown,
		clock:    clock,
	}
}

// Len returns the number of keys in the pool.
func (r *KeyRotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// ActiveKey returns the first eligible key at or after the rotation pointer
// and moves the pointer to it. ok is false when every key is benched.
func (r *KeyRotator) ActiveKey() (index int, secret string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for n := 0; n < len(r.keys); n++ {
		i := (r.next + n) % len(r.keys)
		if r.eligible(i, now) {
			r.next = i
			return i, r.keys[i].Secret, true
		}
	}
	return -1, "", false
}

// eligible must be called with mu held.
func (r *KeyRotator) eligible(i int, now time.Time) bool {
	k := r.keys[i]
	switch k.ErrorKind {
	case KeyErrorAuth:
		return false
	case KeyErrorRateLimit:
		return now.Sub(k.LastErrorAt) >= r.cooldown
	default:
		return true
	}
}

// MarkRateLimited benches key i for the cooldown window, starting now.
func (r *KeyRotator) MarkRateLimited(i int) {
	r.mark(i, KeyErrorRateLimit)
}

// MarkAuthFailed benches key i until Reset.
func (r *KeyRotator) MarkAuthFailed(i int) {
	r.mark(i, KeyErrorAuth)
}

func (r *KeyRotator) mark(i int, kind KeyErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.keys) {
		return
	}
	r.keys[i].ErrorKind = kind
	r.keys[i].LastErrorAt = r.clock.Now()
	if r.next == i {
		r.next = (i + 1) % len(r.keys)
	}
}

// MarkSuccess clears an elapsed rate-limit mark on key i.
// Auth failures are only cleared by Reset.
func (r *KeyRotator) MarkSuccess(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.keys) {
		return
	}
	if r.keys[i].ErrorKind == KeyErrorRateLimit {
		r.keys[i].ErrorKind = KeyErrorNone
	}
}

// Reset makes key i eligible again regardless of its error kind.
func (r *KeyRotator) Reset(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.keys) {
		return
	}
	r.keys[i].ErrorKind = KeyErrorNone
	r.keys[i].LastErrorAt = time.Time{}
}

// ResetAll makes every key eligible again.
func (r *KeyRotator) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.keys {
		r.keys[i].ErrorKind = KeyErrorNone
		r.keys[i].LastErrorAt = time.Time{}
	}
}

// Available returns the number of keys eligible right now.
func (r *KeyRotator) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	count := 0
	for i := range r.keys {
		if r.eligible(i, now) {
			count++
		}
	}
	return count
}

// States returns a snapshot of every key's state.
func (r *KeyRotator) States() []KeyState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]KeyState, len(r.keys))
	copy(out, r.keys)
	return out
}
