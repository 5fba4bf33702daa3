package queue

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/a11ykit/announce"
)

// Config holds the queue-level tunables.
type Config struct {
	// StableDelay and MaximumDelay are applied to alertables the queue
	// wraps in a fresh Utterance.
	StableDelay  time.Duration
	MaximumDelay time.Duration

	// Enabled and Muted set the initial flag state. A disabled queue
	// ignores additions; a muted queue drops utterances at announce time
	// without speaking them.
	Enabled bool
	Muted   bool
}

// DefaultConfig returns the queue defaults.
func DefaultConfig() Config {
	return Config{
		StableDelay:  announce.DefaultStableDelay,
		MaximumDelay: announce.Forever,
		Enabled:      true,
	}
}

// Queue serialises utterances destined for a single announcer. It keeps the
// queue ordered by priority (invariant: no entry is preceded by one it
// should cancel), debounces announcements on per-utterance stability, and
// tracks the at-most-one utterance currently being announced.
type Queue struct {
	announcer announce.Announcer
	collector *announce.ResponseCollector
	cfg       Config
	logger    *log.Logger

	entries []*entry

	// announcing is the utterance currently held by the announcer on this
	// queue's behalf; removeAnnouncingListener detaches its announcing
	// priority subscription. Both are nil between announcements.
	announcing                *announce.Utterance
	removeAnnouncingListener  func()
	removeCompletionListener  func()

	muted   bool
	enabled bool
}

// QueueOption configures a Queue at construction.
type QueueOption func(*Queue)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) QueueOption {
	return func(q *Queue) { q.cfg = cfg }
}

// WithCollector supplies the response collector used to resolve response
// packets. Nil resolves packets with every field enabled.
func WithCollector(collector *announce.ResponseCollector) QueueOption {
	return func(q *Queue) { q.collector = collector }
}

// WithLogger supplies a structured logger.
func WithLogger(logger *log.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

// New creates a queue on top of the given announcer. The queue subscribes to
// the announcer's completion events; several queues may share one announcer.
func New(a announce.Announcer, opts ...QueueOption) *Queue {
	q := &Queue{
		announcer: a,
		cfg:       DefaultConfig(),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.muted = q.cfg.Muted
	q.enabled = q.cfg.Enabled

	q.removeCompletionListener = a.Completion().Listen(q.onAnnouncerCompletion)
	return q
}

// Announcer returns the output adapter this queue feeds.
func (q *Queue) Announcer() announce.Announcer { return q.announcer }

// Length returns the number of queued utterances. The announcing utterance
// is not counted.
func (q *Queue) Length() int { return len(q.entries) }

// Announcing returns the utterance currently in the announcing slot, or nil.
func (q *Queue) Announcing() *announce.Utterance { return q.announcing }

// Muted reports whether announcements are dropped at announce time.
func (q *Queue) Muted() bool { return q.muted }

// SetMuted sets the mute flag. Muting does not interrupt the utterance
// already being announced.
func (q *Queue) SetMuted(muted bool) { q.muted = muted }

// Enabled reports whether the queue accepts and schedules utterances.
func (q *Queue) Enabled() bool { return q.enabled }

// SetEnabled sets the enabled flag. Disabling makes additions and ticks
// no-ops but leaves queued entries in place.
func (q *Queue) SetEnabled(enabled bool) { q.enabled = enabled }

// HasUtterance reports whether the utterance is currently queued.
func (q *Queue) HasUtterance(u *announce.Utterance) bool {
	return q.indexOf(u) >= 0
}

// AddToBack appends an alertable to the queue. Non-Utterance alertables are
// wrapped in a fresh Utterance with the queue's default delays. Adding an
// already-queued utterance replaces its previous entry, carrying over the
// accumulated time in queue and resetting stability. No-op when disabled.
//
// While the announcer requires synchronous first-gesture output and has not
// yet spoken, additions are routed through AnnounceImmediately.
func (q *Queue) AddToBack(a announce.Alertable) {
	if !q.enabled {
		return
	}
	if q.announcer.AnnounceImmediatelyUntilSpeaking() && !q.announcer.HasSpoken() {
		q.AnnounceImmediately(a)
		return
	}

	u := q.wrap(a)
	e := q.newEntry(u)
	q.entries = append(q.entries, e)
	e.removePriorityListener = q.listenPriority(u)
	q.logger.Debug("queue: added to back", "utterance", u.ID(), "length", len(q.entries))
	q.prioritize(u)
}

// AddToFront prepends an alertable to the queue.
//
// Deprecated: legacy escape hatch. Entries added this way carry no in-queue
// priority subscription, so later priority changes do not re-rank them. Use
// priorities with AddToBack instead.
func (q *Queue) AddToFront(a announce.Alertable) {
	if !q.enabled {
		return
	}
	u := q.wrap(a)
	e := q.newEntry(u)
	q.entries = append([]*entry{e}, q.entries...)
	q.logger.Debug("queue: added to front", "utterance", u.ID(), "length", len(q.entries))
	q.prioritize(u)
}

// AnnounceImmediately puts an alertable at the front of the queue with its
// timing requirements already satisfied and, if it survives prioritisation,
// attempts to announce it within this call. If the announcer is not ready
// the utterance stays at the front and is attempted on the next tick. No-op
// when disabled.
func (q *Queue) AnnounceImmediately(a announce.Alertable) {
	if !q.enabled {
		return
	}
	u := q.wrap(a)
	e := q.newEntry(u)
	e.timeInQueue = announce.Forever
	e.stableTime = announce.Forever
	q.entries = append([]*entry{e}, q.entries...)
	e.removePriorityListener = q.listenPriority(u)
	q.logger.Debug("queue: announce immediately", "utterance", u.ID())
	q.prioritize(u)

	if i := q.indexOf(u); i >= 0 {
		q.attemptToAnnounce(q.entries[i])
	}
}

// RemoveUtterance removes every entry for the utterance and detaches its
// in-queue subscriptions. Removing an utterance that is not queued is a
// no-op.
func (q *Queue) RemoveUtterance(u *announce.Utterance) {
	found := false
	for i := 0; i < len(q.entries); {
		if q.entries[i].utterance == u {
			q.removeEntryAt(i)
			found = true
			continue
		}
		i++
	}
	if !found {
		q.logger.Debug("queue: remove of absent utterance", "utterance", u.ID())
	}
}

// CancelUtterance asks the announcer to cancel the utterance. Queue state is
// untouched.
func (q *Queue) CancelUtterance(u *announce.Utterance) {
	q.announcer.CancelUtterance(u)
}

// Clear empties the queue and detaches all in-queue subscriptions. The
// announcing utterance, if any, is not cancelled.
func (q *Queue) Clear() {
	for _, e := range q.entries {
		e.detach()
	}
	q.entries = nil
}

// Cancel clears the queue and cancels the announcing utterance, if any.
func (q *Queue) Cancel() {
	q.Clear()
	q.announcer.Cancel()
}

// Step advances the queue by dt: entry clocks accumulate, the first stable
// entry is attempted, and the announcer runs its own per-tick maintenance.
// Entries ahead of the first stable one are skipped until they stabilise or
// hit their maximum delay.
func (q *Queue) Step(dt time.Duration) {
	if !q.enabled {
		return
	}
	for _, e := range q.entries {
		e.addTime(dt)
	}
	for _, e := range q.entries {
		if e.stable() {
			q.attemptToAnnounce(e)
			break
		}
	}
	q.announcer.Step(dt, q.view())
}

// wrap returns the alertable as an Utterance, wrapping non-Utterance
// alertables with the queue's default delays. It does not touch the queue;
// newEntry replaces prior entries.
func (q *Queue) wrap(a announce.Alertable) *announce.Utterance {
	u, ok := a.(*announce.Utterance)
	if !ok {
		u = announce.New(a,
			announce.WithStableDelay(q.cfg.StableDelay),
			announce.WithMaximumDelay(q.cfg.MaximumDelay),
		)
	}
	return u
}

// newEntry creates an entry for the utterance, absorbing the time already
// accumulated by entries it replaces.
func (q *Queue) newEntry(u *announce.Utterance) *entry {
	carried := time.Duration(0)
	for i := 0; i < len(q.entries); {
		if q.entries[i].utterance == u {
			if q.entries[i].timeInQueue > carried {
				carried = q.entries[i].timeInQueue
			}
			q.removeEntryAt(i)
			continue
		}
		i++
	}
	return &entry{utterance: u, timeInQueue: carried}
}

func (q *Queue) listenPriority(u *announce.Utterance) func() {
	return u.Priority.Listen(func(_, _ float64) {
		q.prioritize(u)
	})
}

func (q *Queue) indexOf(u *announce.Utterance) int {
	for i, e := range q.entries {
		if e.utterance == u {
			return i
		}
	}
	return -1
}

func (q *Queue) removeEntryAt(i int) {
	e := q.entries[i]
	e.detach()
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
}

// prioritize reconciles queue order around a seed utterance whose priority
// may have changed or which has just been inserted. Older entries the seed
// should cancel are removed; if the single entry behind the seed should
// cancel the seed, the seed is removed (entries further back cannot
// out-rank it, by the ordering invariant). Finally the announcer is told
// the front utterance may have changed so it can interrupt in-flight
// speech. Listener callbacks may re-enter the queue; the sweep skips
// indices past the end of a queue shrunk under it, and the seed's index is
// re-located after the sweep.
func (q *Queue) prioritize(seed *announce.Utterance) {
	if i := q.indexOf(seed); i >= 0 {
		for j := i - 1; j >= 0; j-- {
			if j >= len(q.entries) {
				// A re-entrant callback shrank the queue under us.
				continue
			}
			victim := q.entries[j]
			if victim.utterance == seed {
				continue
			}
			if q.announcer.ShouldUtteranceCancelOther(seed, victim.utterance) {
				q.logger.Debug("queue: priority removed entry",
					"removed", victim.utterance.ID(), "seed", seed.ID())
				q.removeEntryAt(j)
			}
		}

		if i = q.indexOf(seed); i >= 0 && i+1 < len(q.entries) {
			behind := q.entries[i+1]
			if q.announcer.ShouldUtteranceCancelOther(behind.utterance, seed) {
				q.logger.Debug("queue: seed removed by successor",
					"seed", seed.ID(), "behind", behind.utterance.ID())
				q.removeEntryAt(i)
			}
		}
	}

	if len(q.entries) > 0 {
		q.announcer.OnUtterancePriorityChange(q.entries[0].utterance)
	}
}

// attemptToAnnounce hands an entry's utterance to the announcer if it is
// ready. Muted queues, failing predicates, a closed can-announce gate, and
// empty resolved text drop the entry without announcing it.
func (q *Queue) attemptToAnnounce(e *entry) {
	if !q.announcer.ReadyToAnnounce() {
		return
	}
	u := e.utterance

	text := u.AlertText(q.collector, q.announcer.RespectResponseCollectorProperties())
	if q.muted || !u.PredicateOK() || !u.CanAnnounce() || text == "" {
		q.logger.Debug("queue: dropped without announcing",
			"utterance", u.ID(), "muted", q.muted)
		q.removeUtteranceEntry(e)
		return
	}

	q.removeUtteranceEntry(e)
	q.announcing = u
	q.removeAnnouncingListener = u.Priority.Listen(func(_, _ float64) {
		q.prioritize(u)
	})
	q.logger.Debug("queue: announcing", "utterance", u.ID(), "text", text)
	q.announcer.Announce(u, u.AnnouncerOptions)

	// A synchronously-completing announcer may have re-enqueued the
	// utterance from a completion listener during Announce.
	if q.HasUtterance(u) {
		q.RemoveUtterance(u)
	}
}

func (q *Queue) removeUtteranceEntry(e *entry) {
	for i, cur := range q.entries {
		if cur == e {
			q.removeEntryAt(i)
			return
		}
	}
}

// onAnnouncerCompletion reacts to announcer completion events, ignoring
// utterances announced on behalf of other queues sharing this announcer.
func (q *Queue) onAnnouncerCompletion(u *announce.Utterance, _ string) {
	if q.announcing != u {
		return
	}
	if q.removeAnnouncingListener != nil {
		q.removeAnnouncingListener()
		q.removeAnnouncingListener = nil
	}
	q.announcing = nil
	q.logger.Debug("queue: announcement complete", "utterance", u.ID())
}

// Close detaches the queue from its announcer's completion events.
func (q *Queue) Close() {
	if q.removeCompletionListener != nil {
		q.removeCompletionListener()
		q.removeCompletionListener = nil
	}
	q.Clear()
}

// EntryStatus is a read-only snapshot of one queued entry.
type EntryStatus struct {
	Utterance   *announce.Utterance
	TimeInQueue time.Duration
	StableTime  time.Duration
}

// Entries returns a snapshot of the queued entries, front first.
func (q *Queue) Entries() []EntryStatus {
	out := make([]EntryStatus, len(q.entries))
	for i, e := range q.entries {
		out[i] = EntryStatus{
			Utterance:   e.utterance,
			TimeInQueue: e.timeInQueue,
			StableTime:  e.stableTime,
		}
	}
	return out
}

// view adapts the queue to the read-only interface handed to the announcer.
func (q *Queue) view() announce.QueueView { return queueView{q} }

type queueView struct{ q *Queue }

func (v queueView) Length() int { return len(v.q.entries) }

func (v queueView) FrontUtterance() *announce.Utterance {
	if len(v.q.entries) == 0 {
		return nil
	}
	return v.q.entries[0].utterance
}
