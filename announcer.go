package announce

import "time"

// QueueView is the read-only view of the queue handed to an Announcer's
// per-tick step hook.
type QueueView interface {
	// Length returns the number of queued utterances.
	Length() int
	// FrontUtterance returns the utterance at the front of the queue, or
	// nil when the queue is empty.
	FrontUtterance() *Utterance
}

// Announcer is the abstract output adapter consumed by the queue. One
// announcer may be shared by several queues; completion events carry the
// utterance so each queue reacts only to its own.
type Announcer interface {
	// Announce hands an utterance to the output backend.
	Announce(u *Utterance, options AnnouncerOptions)

	// Cancel cancels whatever the announcer is currently outputting.
	Cancel()

	// CancelUtterance cancels the given utterance if it is the one being
	// output. Announcers that can genuinely cancel must synthesise a
	// completion so queue bookkeeping stays correct.
	CancelUtterance(u *Utterance)

	// ShouldUtteranceCancelOther reports whether the candidate utterance
	// takes precedence over the victim under this announcer's policy.
	ShouldUtteranceCancelOther(candidate, victim *Utterance) bool

	// OnUtterancePriorityChange notifies the announcer that the front of
	// the queue may have changed, so it can interrupt the in-flight
	// utterance if policy demands.
	OnUtterancePriorityChange(front *Utterance)

	// Step runs per-tick maintenance.
	Step(dt time.Duration, queue QueueView)

	// ReadyToAnnounce reports whether Announce may be called now.
	ReadyToAnnounce() bool

	// HasSpoken is latched once output has ever succeeded.
	HasSpoken() bool

	// AnnounceImmediatelyUntilSpeaking declares that the announcer needs
	// synchronous first-gesture output; the queue honors it in AddToBack
	// until HasSpoken flips.
	AnnounceImmediatelyUntilSpeaking() bool

	// RespectResponseCollectorProperties selects whether response packets
	// are gated by the collector's enable properties.
	RespectResponseCollectorProperties() bool

	// Completion is the emitter of (utterance, resolvedText) completion
	// events.
	Completion() *Emitter
}

// DefaultShouldCancel is the default precedence rule: strictly higher
// priority wins.
func DefaultShouldCancel(candidate, victim *Utterance) bool {
	return victim.Priority.Get() < candidate.Priority.Get()
}

// ShouldCancelWithOptions implements the cancel protocol of announcers that
// honor the CancelSelf/CancelOther options: priorities decide when they
// differ, otherwise the candidate's option bag decides the collision.
func ShouldCancelWithOptions(candidate, victim *Utterance) bool {
	if candidate.Priority.Get() != victim.Priority.Get() {
		return victim.Priority.Get() < candidate.Priority.Get()
	}
	if candidate == victim {
		return candidate.AnnouncerOptions.CancelSelf
	}
	return candidate.AnnouncerOptions.CancelOther
}

// CompletionListener receives an utterance and its resolved text once the
// announcer is done with it.
type CompletionListener func(u *Utterance, text string)

// Emitter is a synchronous event emitter for completion-style events.
// Listeners may re-enter the emitter during dispatch.
type Emitter struct {
	listeners []*emitterListener
}

type emitterListener struct {
	fn      CompletionListener
	removed bool
}

// Listen registers a listener and returns an idempotent remove function.
func (e *Emitter) Listen(fn CompletionListener) func() {
	l := &emitterListener{fn: fn}
	e.listeners = append(e.listeners, l)
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		for i, cur := range e.listeners {
			if cur == l {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				break
			}
		}
	}
}

// Emit dispatches the event to all listeners synchronously.
func (e *Emitter) Emit(u *Utterance, text string) {
	snapshot := make([]*emitterListener, len(e.listeners))
	copy(snapshot, e.listeners)
	for _, l := range snapshot {
		if !l.removed {
			l.fn(u, text)
		}
	}
}
