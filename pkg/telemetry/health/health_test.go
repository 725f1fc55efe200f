package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
)

// TestNew tests the creation of a new health checker.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)

			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if checker.CheckCount() != 0 {
				t.Errorf("expected 0 checks, got %d", checker.CheckCount())
			}
		})
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCriticalCheck("providers", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("healthstore", func(ctx context.Context) error { return nil })

	names := checker.ListChecks()
	if len(names) != 2 || names[0] != "healthstore" || names[1] != "providers" {
		t.Fatalf("expected sorted check names, got %v", names)
	}

	checker.UnregisterCheck("healthstore")
	if checker.CheckCount() != 1 {
		t.Errorf("expected 1 check after unregister, got %d", checker.CheckCount())
	}
}

func TestCheckReadiness(t *testing.T) {
	failing := func(ctx context.Context) error { return errors.New("component unhealthy") }
	passing := func(ctx context.Context) error { return nil }

	tests := []struct {
		name     string
		setup    func(*Checker)
		expected string
	}{
		{"no checks", func(c *Checker) {}, StatusReady},
		{
			name: "all healthy",
			setup: func(c *Checker) {
				c.RegisterCriticalCheck("providers", passing)
				c.RegisterCheck("healthstore", passing)
			},
			expected: StatusReady,
		},
		{
			name: "non-critical failure degrades",
			setup: func(c *Checker) {
				c.RegisterCriticalCheck("providers", passing)
				c.RegisterCheck("healthstore", failing)
			},
			expected: StatusDegraded,
		},
		{
			name: "critical failure is unhealthy",
			setup: func(c *Checker) {
				c.RegisterCriticalCheck("providers", failing)
				c.RegisterCheck("healthstore", failing)
			},
			expected: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			tt.setup(checker)

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.expected {
				t.Errorf("expected status %q, got %q", tt.expected, status.Status)
			}
			if len(status.Checks) != checker.CheckCount() {
				t.Errorf("expected %d results, got %d", checker.CheckCount(), len(status.Checks))
			}
		})
	}
}

func TestCheckReadiness_ResultDetails(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCriticalCheck("providers", func(ctx context.Context) error { return errors.New("all providers on cooldown") })

	result := checker.CheckReadiness(context.Background()).Checks["providers"]
	if result.Status != StatusUnhealthy || !result.Critical {
		t.Errorf("expected critical unhealthy result, got %+v", result)
	}
	if result.Message != "all providers on cooldown" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(50 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-release
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != StatusDegraded {
		t.Errorf("expected status %q, got %q", StatusDegraded, status.Status)
	}
	if msg := status.Checks["slow"].Message; msg != ErrCheckTimeout.Error() {
		t.Errorf("expected timeout message, got %q", msg)
	}
}

func TestCheckReadiness_ContextCancellation(t *testing.T) {
	checker := New(5 * time.Second)
	checker.RegisterCheck("test", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := checker.CheckReadiness(ctx).Checks["test"].Status; got != StatusUnhealthy {
		t.Errorf("expected cancelled check to be unhealthy, got %q", got)
	}
}

func TestLivenessHandler(t *testing.T) {
	handler := New(time.Second).LivenessHandler()

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		checkBody      bool
	}{
		{"GET request", http.MethodGet, http.StatusOK, true},
		{"HEAD request", http.MethodHead, http.StatusOK, false},
		{"POST request", http.MethodPost, http.StatusMethodNotAllowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Error("expected empty body for HEAD")
			}
			if tt.checkBody {
				var status HealthStatus
				if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if status.Status != StatusOK {
					t.Errorf("expected status 'ok', got %q", status.Status)
				}
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name           string
		setupChecks    func(*Checker)
		expectedStatus int
		expectedHealth string
	}{
		{
			name: "all healthy",
			setupChecks: func(c *Checker) {
				c.RegisterCriticalCheck("providers", func(ctx context.Context) error { return nil })
			},
			expectedStatus: http.StatusOK,
			expectedHealth: StatusReady,
		},
		{
			name: "degraded still serves",
			setupChecks: func(c *Checker) {
				c.RegisterCheck("healthstore", func(ctx context.Context) error { return errors.New("locked") })
			},
			expectedStatus: http.StatusOK,
			expectedHealth: StatusDegraded,
		},
		{
			name: "critical failure",
			setupChecks: func(c *Checker) {
				c.RegisterCriticalCheck("providers", func(ctx context.Context) error { return errors.New("none") })
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			tt.setupChecks(checker)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if status.Status != tt.expectedHealth {
				t.Errorf("expected status %q, got %q", tt.expectedHealth, status.Status)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("1.0.0", "abc123", "2026-10-16T00:00:00Z")

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if info.Version != "1.0.0" || info.Commit != "abc123" {
		t.Errorf("unexpected version info %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("expected go version to be set")
	}
}

type fakeStatuser []providerfactory.ProviderStatus

func (f fakeStatuser) Status(ctx context.Context) []providerfactory.ProviderStatus { return f }

func TestProvidersCheck(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name    string
		status  fakeStatuser
		wantErr bool
	}{
		{"none configured", nil, true},
		{"one available", fakeStatuser{{Name: "a", DisabledUntil: now.Add(time.Minute)}, {Name: "b"}}, false},
		{"cooldown expired", fakeStatuser{{Name: "a", DisabledUntil: now}}, false},
		{"all on cooldown", fakeStatuser{{Name: "a", DisabledUntil: now.Add(time.Minute)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProvidersCheck(tt.status, clock)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ProvidersCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeSchedule time.Time

func (f fakeSchedule) NextRun() time.Time { return time.Time(f) }

func TestComponentChecks(t *testing.T) {
	ctx := context.Background()

	if err := StoreCheck(fakePinger{})(ctx); err != nil {
		t.Errorf("expected healthy store, got %v", err)
	}
	down := errors.New("database is locked")
	if err := StoreCheck(fakePinger{err: down})(ctx); !errors.Is(err, down) {
		t.Errorf("expected wrapped ping error, got %v", err)
	}

	if err := ScheduleCheck(fakeSchedule{})(ctx); err == nil {
		t.Error("expected error when checks are not scheduled")
	}
	if err := ScheduleCheck(fakeSchedule(time.Now().Add(time.Hour)))(ctx); err != nil {
		t.Errorf("expected scheduled checks to pass, got %v", err)
	}
}
