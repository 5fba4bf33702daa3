package announce

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultStableDelay is the minimum time an utterance must sit unchanged at
// its queue slot before it may be announced.
const DefaultStableDelay = 200 * time.Millisecond

// Forever is the effectively-unbounded duration sentinel used for the
// default maximum delay and for immediate announcements.
const Forever time.Duration = math.MaxInt64

// Liveness selects the live-region politeness level for aria-live output.
type Liveness string

const (
	// Polite waits for the screen reader to finish its current speech.
	Polite Liveness = "polite"
	// Assertive interrupts the screen reader's current speech.
	Assertive Liveness = "assertive"
)

// AnnouncerOptions is the option bag passed through to the Announcer with
// each announcement. CancelSelf and CancelOther govern same-priority
// collisions for announcers that can interrupt speech; AriaLivePriority is
// consumed by the live-region announcer.
type AnnouncerOptions struct {
	CancelSelf       bool
	CancelOther      bool
	AriaLivePriority Liveness
}

// DefaultAnnouncerOptions returns the option bag defaults.
func DefaultAnnouncerOptions() AnnouncerOptions {
	return AnnouncerOptions{
		CancelSelf:       true,
		CancelOther:      true,
		AriaLivePriority: Polite,
	}
}

// Utterance carries one alert through the queue: its payload, timing knobs,
// observable priority, gating predicate, can-announce gate, and announcer
// options. Identity is by instance; re-queueing the same Utterance replaces
// its previous queue entry.
type Utterance struct {
	id string

	alert     Alertable
	predicate func() bool

	// AlertStableDelay is the minimum time this utterance must sit in the
	// queue unchanged at its slot before it may be announced.
	AlertStableDelay time.Duration

	// AlertMaximumDelay is the hard ceiling on queue residence after which
	// the stability requirement is waived.
	AlertMaximumDelay time.Duration

	// Priority orders utterances in the queue and drives the cancel
	// protocol. Mutable while queued or announcing.
	Priority *Property[float64]

	canAnnounce []*Property[bool]

	// AnnouncerOptions is passed through to the Announcer.
	AnnouncerOptions AnnouncerOptions
}

// Option configures an Utterance at construction.
type Option func(*Utterance)

// WithPredicate sets the gating predicate, re-evaluated at announce time.
// A false result silently discards the utterance.
func WithPredicate(fn func() bool) Option {
	return func(u *Utterance) { u.predicate = fn }
}

// WithStableDelay sets the stability debounce. Zero makes the utterance
// eligible on the next tick.
func WithStableDelay(d time.Duration) Option {
	return func(u *Utterance) { u.AlertStableDelay = d }
}

// WithMaximumDelay caps total queue residence, waiving the stability
// requirement once exceeded.
func WithMaximumDelay(d time.Duration) Option {
	return func(u *Utterance) { u.AlertMaximumDelay = d }
}

// WithPriority sets the initial priority.
func WithPriority(priority float64) Option {
	return func(u *Utterance) { u.Priority = NewProperty(priority) }
}

// WithCanAnnounce registers gate properties. When any are registered, the
// conjunction of their values is a second announce-time gate independent of
// the predicate; a transition to false mid-announcement interrupts it.
func WithCanAnnounce(props ...*Property[bool]) Option {
	return func(u *Utterance) { u.canAnnounce = append(u.canAnnounce, props...) }
}

// WithAnnouncerOptions replaces the announcer option bag.
func WithAnnouncerOptions(opts AnnouncerOptions) Option {
	return func(u *Utterance) { u.AnnouncerOptions = opts }
}

// WithCancelSelf sets the same-instance collision policy.
func WithCancelSelf(cancel bool) Option {
	return func(u *Utterance) { u.AnnouncerOptions.CancelSelf = cancel }
}

// WithCancelOther sets the equal-priority collision policy.
func WithCancelOther(cancel bool) Option {
	return func(u *Utterance) { u.AnnouncerOptions.CancelOther = cancel }
}

// New creates an Utterance for the given alert.
func New(alert Alertable, opts ...Option) *Utterance {
	u := &Utterance{
		id:                uuid.NewString()[:8],
		alert:             alert,
		AlertStableDelay:  DefaultStableDelay,
		AlertMaximumDelay: Forever,
		Priority:          NewProperty(1.0),
		AnnouncerOptions:  DefaultAnnouncerOptions(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Utterance) alertable() {}

// ID returns the short id used for log correlation.
func (u *Utterance) ID() string { return u.id }

// Alert returns the alert payload.
func (u *Utterance) Alert() Alertable { return u.alert }

// SetAlert replaces the alert payload. The new payload is resolved the next
// time the utterance is announced.
func (u *Utterance) SetAlert(alert Alertable) { u.alert = alert }

// PredicateOK re-evaluates the gating predicate. An unset predicate passes.
func (u *Utterance) PredicateOK() bool {
	return u.predicate == nil || u.predicate()
}

// CanAnnounce returns the conjunction of the registered gate properties,
// true when none are registered.
func (u *Utterance) CanAnnounce() bool {
	for _, p := range u.canAnnounce {
		if !p.Get() {
			return false
		}
	}
	return true
}

// OnCanAnnounceChange listens on every gate property and invokes fn with the
// recomputed conjunction whenever any of them changes. Returns a function
// removing all listeners. With no gate properties registered this is a no-op
// and the returned function does nothing.
func (u *Utterance) OnCanAnnounceChange(fn func(canAnnounce bool)) func() {
	removers := make([]func(), 0, len(u.canAnnounce))
	for _, p := range u.canAnnounce {
		removers = append(removers, p.Listen(func(_, _ bool) {
			fn(u.CanAnnounce())
		}))
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// AlertText resolves the alert payload to its announced text.
func (u *Utterance) AlertText(collector *ResponseCollector, respectProperties bool) string {
	return ResolveText(u.alert, collector, respectProperties)
}
