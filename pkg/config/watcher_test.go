package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool { return calls.Load() == 1 }, "debounced callback did not run")
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one callback, got %d", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("expected no callbacks after stop, got %d", n)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	resetSingleton()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(singletonConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var mu sync.Mutex
	var reloaded *Config
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Watch(ctx, func(cfg *Config) {
			mu.Lock()
			reloaded = cfg
			mu.Unlock()
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0644); err != nil {
		t.Fatalf("failed to write other file: %v", err)
	}

	updated := `
gateway:
  listen_address: "127.0.0.1:8282"
providers:
  - name: groq
    api_keys: ["gsk_test"]
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloaded != nil
	}, "config was not reloaded")

	mu.Lock()
	got := reloaded.Gateway.ListenAddress
	mu.Unlock()
	if got != "127.0.0.1:8282" {
		t.Errorf("expected reloaded listen address, got %q", got)
	}
	if GetConfig() == nil || GetConfig().Gateway.ListenAddress != "127.0.0.1:8282" {
		t.Error("expected global config to be replaced")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

func TestWatcher_FailedReloadKeepsConfig(t *testing.T) {
	resetSingleton()
	original := NewTestConfig().Build()
	SetConfig(original)

	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"), 0, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	w.load = func(string) (*Config, error) {
		return nil, errors.New("broken yaml")
	}

	called := false
	w.reload(func(*Config) { called = true })

	if called {
		t.Error("expected onChange not to run on a failed reload")
	}
	if GetConfig() != original {
		t.Error("expected previous config to stay in effect")
	}
}

func TestWatcher_AlreadyRunning(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"), 0, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Watch(ctx, nil)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.running
	}, "watcher did not start")

	if err := w.Watch(context.Background(), nil); err == nil {
		t.Error("expected second Watch to fail")
	}

	cancel()
	<-done
	_ = w.Stop()
}
