// Package modelhealth probes every known model with a synthetic prompt and
// keeps a live status map of which models are actually serviceable.
//
// A Checker runs one cycle at a time. A cycle lists the merged catalog
// through the Router, then tests each model in sequence with a pause in
// between so upstream rate limits are respected. A test sends a short prompt
// from a fixed bank and requires a minimum number of words back; short
// replies and transient errors are retried a fixed number of times.
//
// Final statuses:
//
//   - operational: a valid reply was received
//   - limited: the last failure was a rate limit
//   - unknown: the last failure was a timeout
//   - error: anything else, including replies that were too short
//
// Basic usage:
//
//	checker := modelhealth.NewChecker(manager, modelhealth.Config{})
//	checker.StartHealthChecks(ctx, func(modelID string, rec modelhealth.Record) {
//	    log.Printf("%s: %s", modelID, rec.Status)
//	})
//	defer checker.StopHealthChecks()
//
//	for _, rec := range checker.GetStatus() {
//	    fmt.Println(rec.ModelID, rec.Status)
//	}
package modelhealth
