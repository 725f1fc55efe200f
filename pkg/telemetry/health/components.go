package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
)

// ProviderStatuser is satisfied by *providerfactory.Manager.
type ProviderStatuser interface {
	Status(ctx context.Context) []providerfactory.ProviderStatus
}

// ProvidersCheck fails when no provider is configured or every provider is
// on cooldown.
func ProvidersCheck(m ProviderStatuser, now func() time.Time) CheckFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		statuses := m.Status(ctx)
		if len(statuses) == 0 {
			return errors.New("no providers configured")
		}
		t := now()
		for _, st := range statuses {
			if !t.Before(st.DisabledUntil) {
				return nil
			}
		}
		return fmt.Errorf("all %d providers on cooldown", len(statuses))
	}
}

// Pinger is satisfied by stores backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreCheck verifies the health store connection.
func StoreCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("health store unreachable: %w", err)
		}
		return nil
	}
}

// ScheduleChecker is satisfied by *modelhealth.Checker.
type ScheduleChecker interface {
	NextRun() time.Time
}

// ScheduleCheck fails when periodic model checks are not scheduled.
func ScheduleCheck(s ScheduleChecker) CheckFunc {
	return func(ctx context.Context) error {
		if s.NextRun().IsZero() {
			return errors.New("model health checks not scheduled")
		}
		return nil
	}
}
