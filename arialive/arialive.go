// Package arialive implements the live-region output announcer: alert text
// is written into rotating polite/assertive live-region elements and
// re-cleared shortly after, which is all most screen readers need to speak
// it. The adapter cannot observe real speech, so every announcement
// completes synchronously within the Announce call.
package arialive

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/a11ykit/announce"
)

// Element is one live-region node the adapter writes into.
type Element interface {
	SetTextContent(text string)
	SetHidden(hidden bool)
}

// Document creates live-region elements inside a visually-hidden container.
type Document interface {
	CreateLiveRegion(liveness announce.Liveness, id string) Element
}

// Config holds the adapter tunables.
type Config struct {
	// RegionCount is the number of elements cycled per liveness level.
	// Rotation gives the screen reader a fresh node for every alert so
	// repeated text is still spoken.
	RegionCount int

	// WriteDelay is how long after the clearing write the alert text is
	// written into the node.
	WriteDelay time.Duration

	// ClearDelay is how long after the text write the node is reset.
	ClearDelay time.Duration

	// HideOnClear resets nodes by hiding them rather than clearing their
	// text, for the browser family that re-announces cleared nodes.
	HideOnClear bool
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{
		RegionCount: 4,
		WriteDelay:  10 * time.Millisecond,
		ClearDelay:  200 * time.Millisecond,
	}
}

// timedOp is a deferred element mutation executed from the step hook.
type timedOp struct {
	remaining time.Duration
	run       func()
}

// Adapter is the live-region Announcer implementation.
type Adapter struct {
	cfg       Config
	logger    *log.Logger
	collector *announce.ResponseCollector

	polite    []Element
	assertive []Element
	politeIdx int
	assertIdx int

	ops []timedOp

	hasSpoken  bool
	completion announce.Emitter
}

// AdapterOption configures an Adapter at construction.
type AdapterOption func(*Adapter)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) AdapterOption {
	return func(a *Adapter) { a.cfg = cfg }
}

// WithLogger supplies a structured logger.
func WithLogger(logger *log.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// WithCollector supplies the response collector used to resolve response
// packets.
func WithCollector(collector *announce.ResponseCollector) AdapterOption {
	return func(a *Adapter) { a.collector = collector }
}

// New creates an adapter, building its live-region elements in doc.
func New(doc Document, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		cfg:    DefaultConfig(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	for i := 0; i < a.cfg.RegionCount; i++ {
		a.polite = append(a.polite,
			doc.CreateLiveRegion(announce.Polite, fmt.Sprintf("polite-%d", i)))
		a.assertive = append(a.assertive,
			doc.CreateLiveRegion(announce.Assertive, fmt.Sprintf("assertive-%d", i)))
	}
	return a
}

// Announce implements announce.Announcer. The text write and the re-clear
// happen on later steps; the completion is emitted before returning because
// the adapter has no way to observe the screen reader finishing.
func (a *Adapter) Announce(u *announce.Utterance, options announce.AnnouncerOptions) {
	text := u.AlertText(a.collector, a.RespectResponseCollectorProperties())

	el := a.nextElement(options.AriaLivePriority)
	el.SetTextContent("")
	el.SetHidden(false)

	a.schedule(a.cfg.WriteDelay, func() { el.SetTextContent(text) })
	a.schedule(a.cfg.WriteDelay+a.cfg.ClearDelay, func() {
		if a.cfg.HideOnClear {
			el.SetHidden(true)
		} else {
			el.SetTextContent("")
		}
	})

	a.hasSpoken = true
	a.logger.Debug("arialive: announced",
		"utterance", u.ID(), "liveness", options.AriaLivePriority, "text", text)
	a.completion.Emit(u, text)
}

func (a *Adapter) nextElement(liveness announce.Liveness) Element {
	if liveness == announce.Assertive {
		el := a.assertive[a.assertIdx]
		a.assertIdx = (a.assertIdx + 1) % len(a.assertive)
		return el
	}
	el := a.polite[a.politeIdx]
	a.politeIdx = (a.politeIdx + 1) % len(a.polite)
	return el
}

func (a *Adapter) schedule(after time.Duration, run func()) {
	a.ops = append(a.ops, timedOp{remaining: after, run: run})
}

// Cancel implements announce.Announcer. Live regions offer no cancellation
// channel, so this is a documented no-op.
func (a *Adapter) Cancel() {}

// CancelUtterance implements announce.Announcer; a no-op, as Cancel.
func (a *Adapter) CancelUtterance(*announce.Utterance) {}

// ShouldUtteranceCancelOther implements announce.Announcer with the default
// strictly-higher-priority rule.
func (a *Adapter) ShouldUtteranceCancelOther(candidate, victim *announce.Utterance) bool {
	return announce.DefaultShouldCancel(candidate, victim)
}

// OnUtterancePriorityChange implements announce.Announcer; nothing to
// interrupt here.
func (a *Adapter) OnUtterancePriorityChange(*announce.Utterance) {}

// Step implements announce.Announcer, running the deferred element writes.
func (a *Adapter) Step(dt time.Duration, _ announce.QueueView) {
	remaining := a.ops[:0]
	for _, op := range a.ops {
		op.remaining -= dt
		if op.remaining <= 0 {
			op.run()
			continue
		}
		remaining = append(remaining, op)
	}
	a.ops = remaining
}

// ReadyToAnnounce implements announce.Announcer; live regions are always
// writable.
func (a *Adapter) ReadyToAnnounce() bool { return true }

// HasSpoken implements announce.Announcer; it latches on every announce.
func (a *Adapter) HasSpoken() bool { return a.hasSpoken }

// AnnounceImmediatelyUntilSpeaking implements announce.Announcer; live
// regions need no user gesture.
func (a *Adapter) AnnounceImmediatelyUntilSpeaking() bool { return false }

// RespectResponseCollectorProperties implements announce.Announcer; live
// regions combine response packets with every field enabled.
func (a *Adapter) RespectResponseCollectorProperties() bool { return false }

// Completion implements announce.Announcer.
func (a *Adapter) Completion() *announce.Emitter { return &a.completion }
