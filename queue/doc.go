// Package queue implements the announcement scheduling core: an ordered,
// priority-reconciled queue of utterances with stability-based debouncing,
// at most one utterance in the announcing state, and cancellation
// coordination with the output announcer.
//
// A Queue and everything it touches run on a single logical goroutine; see
// the announce package documentation. Priority-change listeners fire
// synchronously and are allowed to re-enter every Queue method.
package queue
