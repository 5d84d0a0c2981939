// Package schedule runs plugins on recurring cron schedules, for standing
// recon against long-lived targets.
//
// Each entry pairs a five-field cron expression with an orchestrated plugin
// run; overlap between firings is left to the orchestrator's admission check.
package schedule
