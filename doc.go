// Package announce provides the shared vocabulary of the announcement queue:
// the Utterance alert carrier, the Alertable union and its resolver, the
// observable Property cells used for priorities and gates, the Announcer
// output-adapter interface, and the response collector.
//
// All types in this package follow a single-goroutine, run-to-completion
// discipline. Listener callbacks are dispatched synchronously on the caller's
// goroutine and are allowed to re-enter the APIs that triggered them; nothing
// here is safe for concurrent use from multiple goroutines.
package announce
