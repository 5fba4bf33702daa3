package queue

import (
	"time"

	"github.com/a11ykit/announce"
)

// entry is one occurrence of an utterance in the queue. Re-queueing the same
// utterance produces a new entry that inherits the old entry's accumulated
// queue residence.
type entry struct {
	utterance *announce.Utterance

	// timeInQueue accumulates across re-enqueues of the same utterance.
	timeInQueue time.Duration

	// stableTime resets to zero on every re-enqueue.
	stableTime time.Duration

	// removePriorityListener detaches the in-queue priority subscription.
	// Nil for entries added through the deprecated AddToFront path.
	removePriorityListener func()
}

func (e *entry) detach() {
	if e.removePriorityListener != nil {
		e.removePriorityListener()
		e.removePriorityListener = nil
	}
}

// addTime advances both clocks, saturating instead of overflowing the
// Forever sentinel used by immediate announcements.
func (e *entry) addTime(dt time.Duration) {
	e.timeInQueue = saturatingAdd(e.timeInQueue, dt)
	e.stableTime = saturatingAdd(e.stableTime, dt)
}

// stable reports whether the entry may be announced: it has sat unchanged at
// its slot long enough, or its total queue residence exceeded the hard
// ceiling.
func (e *entry) stable() bool {
	return e.stableTime > e.utterance.AlertStableDelay ||
		e.timeInQueue > e.utterance.AlertMaximumDelay
}

func saturatingAdd(d, dt time.Duration) time.Duration {
	if d > announce.Forever-dt {
		return announce.Forever
	}
	return d + dt
}
