package providers

import (
	"sync"
	"testing"
	"time"

	"github.com/Kone-AI/Kone-sub000/internal/fakeclock"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestKeyRotator_Sticky(t *testing.T) {
	r := NewKeyRotator([]string{"k1", "k2", "k3"}, time.Minute, fakeclock.New(epoch))

	for i := 0; i < 5; i++ {
		idx, secret, ok := r.ActiveKey()
		if !ok || idx != 0 || secret != "k1" {
			t.Fatalf("call %d: expected key 0 (k1), got %d (%s) ok=%v", i, idx, secret, ok)
		}
	}
}

func TestKeyRotator_SkipsEmptySecrets(t *testing.T) {
	r := NewKeyRotator([]string{"", "k1", ""}, 0, nil)
	if r.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", r.Len())
	}
	if _, secret, _ := r.ActiveKey(); secret != "k1" {
		t.Errorf("expected k1, got %q", secret)
	}
}

func TestKeyRotator_RateLimitCooldown(t *testing.T) {
	clock := fakeclock.New(epoch)
	r := NewKeyRotator([]string{"k1", "k2"}, 60*time.Second, clock)

	r.MarkRateLimited(0)

	idx, _, ok := r.ActiveKey()
	if !ok || idx != 1 {
		t.Fatalf("expected rotation to key 1, got %d ok=%v", idx, ok)
	}

	r.MarkRateLimited(1)
	if _, _, ok := r.ActiveKey(); ok {
		t.Fatal("expected no key while both are cooling down")
	}
	if r.Available() != 0 {
		t.Errorf("expected 0 available keys, got %d", r.Available())
	}

	clock.Advance(59 * time.Second)
	if _, _, ok := r.ActiveKey(); ok {
		t.Fatal("expected no key before the cooldown elapses")
	}

	clock.Advance(time.Second)
	idx, _, ok = r.ActiveKey()
	if !ok {
		t.Fatal("expected a key once the cooldown elapsed")
	}
	if idx != 0 {
		t.Errorf("expected pointer to wrap to key 0, got %d", idx)
	}
}

func TestKeyRotator_AuthFailureIsPermanent(t *testing.T) {
	clock := fakeclock.New(epoch)
	r := NewKeyRotator([]string{"k1", "k2"}, time.Second, clock)

	r.MarkAuthFailed(0)
	clock.Advance(24 * time.Hour)

	for i := 0; i < 3; i++ {
		idx, _, ok := r.ActiveKey()
		if !ok || idx != 1 {
			t.Fatalf("expected key 1, got %d ok=%v", idx, ok)
		}
	}

	states := r.States()
	if states[0].ErrorKind != KeyErrorAuth {
		t.Errorf("expected auth error kind, got %s", states[0].ErrorKind)
	}

	r.Reset(0)
	if r.Available() != 2 {
		t.Errorf("expected 2 available keys after reset, got %d", r.Available())
	}
}

func TestKeyRotator_MarkSuccessKeepsAuthMark(t *testing.T) {
	r := NewKeyRotator([]string{"k1"}, time.Second, fakeclock.New(epoch))

	r.MarkAuthFailed(0)
	r.MarkSuccess(0)
	if _, _, ok := r.ActiveKey(); ok {
		t.Error("MarkSuccess must not clear an auth failure")
	}

	r.ResetAll()
	if _, _, ok := r.ActiveKey(); !ok {
		t.Error("expected key after ResetAll")
	}
}

func TestKeyRotator_OutOfRangeIgnored(t *testing.T) {
	r := NewKeyRotator([]string{"k1"}, time.Second, fakeclock.New(epoch))
	r.MarkRateLimited(5)
	r.MarkAuthFailed(-1)
	r.Reset(3)
	if r.Available() != 1 {
		t.Errorf("expected 1 available key, got %d", r.Available())
	}
}

func TestKeyRotator_Empty(t *testing.T) {
	r := NewKeyRotator(nil, 0, nil)
	if _, _, ok := r.ActiveKey(); ok {
		t.Error("expected no key from an empty pool")
	}
}

func TestKeyRotator_ConcurrentMarksVisible(t *testing.T) {
	clock := fakeclock.New(epoch)
	r := NewKeyRotator([]string{"k1", "k2", "k3", "k4"}, time.Minute, clock)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.MarkRateLimited(i)
			_, _, _ = r.ActiveKey()
		}(i)
	}
	wg.Wait()

	if r.Available() != 0 {
		t.Errorf("expected every key benched, got %d available", r.Available())
	}
}

func TestKeyState_Masked(t *testing.T) {
	tests := []struct {
		secret string
		want   string
	}{
		{"sk-1234567890", "****7890"},
		{"abc", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		if got := (KeyState{Secret: tt.secret}).Masked(); got != tt.want {
			t.Errorf("Masked(%q) = %q, want %q", tt.secret, got, tt.want)
		}
	}
}
