// Package health provides liveness, readiness and version endpoints for the
// gateway ops server.
//
// # Endpoints
//
//   - /health: Liveness probe, always 200 while the process runs
//   - /ready: Readiness probe, runs every registered component check
//   - /version: Build information
//
// # Critical and Non-critical Checks
//
// Checks registered with RegisterCriticalCheck gate readiness: when one
// fails the probe reports "unhealthy" with 503. Checks registered with
// RegisterCheck only degrade the status and the probe still answers 200.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCriticalCheck("providers", health.ProvidersCheck(manager, nil))
//	checker.RegisterCheck("healthstore", health.StoreCheck(store))
//	checker.RegisterCheck("model_checks", health.ScheduleCheck(modelChecker))
//
// Checks run concurrently, each bounded by the checker timeout.
package health
