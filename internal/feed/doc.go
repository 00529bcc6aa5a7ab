// Package feed owns a publish run: the once-per-day gate, report formatting,
// and the orchestration that collects per-player data and hands batches to
// the delivery channels.
//
// A run is synchronous and sequential. Failures local to one player or one
// channel are logged and the run continues; only orchestration-level errors
// (for example an unreadable players file) fail the run and leave the gate
// unset so a retrigger can publish.
package feed
