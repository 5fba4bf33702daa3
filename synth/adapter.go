// Package synth implements the speech-synthesis output announcer: an
// explicit state machine over a speech Platform, with the engine-health
// workarounds (keep-alive pings, pause/resume cycling, pending-speech
// timeouts, inter-utterance gap) needed to get reliable speech out of
// best-effort backends.
//
// The adapter follows the single-goroutine discipline of the announce
// package; platform callbacks must be dispatched onto that goroutine.
package synth

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/a11ykit/announce"
)

// speechState is the adapter's position in an utterance's lifecycle.
type speechState int

const (
	// stateIdle indicates no utterance is in flight.
	stateIdle speechState = iota
	// statePending indicates speech was requested but the platform has
	// not fired the start event yet.
	statePending
	// stateSpeaking indicates the platform is producing audio.
	stateSpeaking
	// stateCancelling indicates a cancel was requested and the platform
	// end event has not been observed yet.
	stateCancelling
)

func (s speechState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePending:
		return "pending"
	case stateSpeaking:
		return "speaking"
	case stateCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// Config holds the adapter tunables, most of which exist to work around
// known platform bugs.
type Config struct {
	// InterUtteranceGap withholds readiness after an utterance ends,
	// long enough to absorb flaky start/end event ordering. Must be at
	// least 125ms to be effective.
	InterUtteranceGap time.Duration

	// PendingTimeout bounds how long a speak request may sit without a
	// start event before it is declared failed.
	PendingTimeout time.Duration

	// EngineWakeInterval paces the empty keep-alive utterances that stop
	// the engine from idling out.
	EngineWakeInterval time.Duration

	// PauseResumeInterval paces the pause/resume cycling that avoids the
	// mid-utterance cutoff some engines exhibit with remote voices.
	PauseResumeInterval time.Duration

	// PauseResumeWorkaround enables the cycling. It only applies while a
	// non-local voice is speaking.
	PauseResumeWorkaround bool

	Pitch  float64
	Rate   float64
	Volume float64
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{
		InterUtteranceGap:   250 * time.Millisecond,
		PendingTimeout:      5 * time.Second,
		EngineWakeInterval:  10 * time.Second,
		PauseResumeInterval: 10 * time.Second,
		Pitch:               1.0,
		Rate:                1.0,
		Volume:              1.0,
	}
}

// wrapper pairs an utterance with the platform speech object submitted for
// it. Late platform events are matched against the live wrappers and
// dropped when stale.
type wrapper struct {
	utterance *announce.Utterance
	speech    *SpeechUtterance
	text      string
	ended     bool
}

// Adapter is the speech-synthesis Announcer implementation.
type Adapter struct {
	platform  Platform
	cfg       Config
	logger    *log.Logger
	collector *announce.ResponseCollector

	state   speechState
	pending *wrapper
	current *wrapper

	ready       bool
	hasSpoken   bool
	initialized bool

	voice  *Voice
	voices []Voice

	timeInPending        time.Duration
	timeSinceEnd         time.Duration
	timeSinceWake        time.Duration
	timeSincePauseResume time.Duration

	// speechAllowed is externally supplied; Enabled and MainWindowEnabled
	// are locally owned. Speech happens only while all three hold.
	speechAllowed     *announce.Property[bool]
	Enabled           *announce.Property[bool]
	MainWindowEnabled *announce.Property[bool]

	completion    announce.Emitter
	startSpeaking announce.Emitter

	removeGateListener func()
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

// WithSpeechAllowed supplies the externally-owned permission property.
func WithSpeechAllowed(p *announce.Property[bool]) AdapterOption {
	return func(a *Adapter) { a.speechAllowed = p }
}

// New creates an adapter over the given platform. A nil platform produces an
// inert but safe adapter: every announce completes immediately so queues
// keep making progress.
func New(platform Platform, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		platform: platform,
		cfg:      DefaultConfig(),
		logger:   log.Default(),
		state:    stateIdle,
		ready:    true,

		Enabled:           announce.NewProperty(true),
		MainWindowEnabled: announce.NewProperty(true),
	}
	for _, opt := range opts {
		opt(a)
	}

	onEnabledChange := func(_, _ bool) {
		if !a.SpeechEnabled() {
			a.Cancel()
		}
	}
	a.Enabled.Listen(onEnabledChange)
	a.MainWindowEnabled.Listen(onEnabledChange)
	if a.speechAllowed != nil {
		a.speechAllowed.Listen(onEnabledChange)
	}

	if platform != nil {
		platform.OnVoicesChanged(a.populateVoices)
		a.populateVoices()
	}
	return a
}

// Initialize marks the user-gesture requirement satisfied. The platform is
// primed with an empty utterance so the first real announcement does not pay
// the engine's cold-start cost. Safe to call more than once.
func (a *Adapter) Initialize() {
	if a.initialized {
		return
	}
	a.initialized = true
	if a.platform != nil {
		a.platform.Speak(&SpeechUtterance{Text: ""})
	}
	a.logger.Debug("synth: initialized")
}

// Initialized reports whether the user-gesture requirement was satisfied.
func (a *Adapter) Initialized() bool { return a.initialized }

// SpeechEnabled returns the combined enable state.
func (a *Adapter) SpeechEnabled() bool {
	if a.speechAllowed != nil && !a.speechAllowed.Get() {
		return false
	}
	return a.Enabled.Get() && a.MainWindowEnabled.Get()
}

// State exposes the lifecycle state name for logs and status displays.
func (a *Adapter) State() string { return a.state.String() }

// Announce implements announce.Announcer. Unspeakable announcements (nil
// platform, not yet initialized, speech disabled, text empty after
// sanitisation) synthesise an immediate completion.
func (a *Adapter) Announce(u *announce.Utterance, _ announce.AnnouncerOptions) {
	text := Sanitize(u.AlertText(a.collector, a.RespectResponseCollectorProperties()))

	if a.platform == nil || !a.initialized || !a.SpeechEnabled() || text == "" {
		a.logger.Debug("synth: cannot speak, completing immediately",
			"utterance", u.ID(), "initialized", a.initialized)
		a.completion.Emit(u, text)
		return
	}

	w := &wrapper{utterance: u, text: text}
	w.speech = &SpeechUtterance{
		Text:    text,
		Voice:   a.voice,
		Pitch:   a.cfg.Pitch,
		Rate:    a.cfg.Rate,
		Volume:  a.cfg.Volume,
		OnStart: func() { a.handleStart(w) },
		OnEnd:   func() { a.handleEnd(w) },
		OnError: func(err error) {
			a.logger.Warn("synth: platform error", "utterance", u.ID(), "error", err)
			a.handleEnd(w)
		},
	}

	a.pending = w
	a.state = statePending
	a.ready = false
	a.timeInPending = 0
	a.timeSinceEnd = 0
	a.logger.Debug("synth: speak submitted", "utterance", u.ID(), "text", text)
	a.platform.Speak(w.speech)
}

// handleStart reacts to the platform start event.
func (a *Adapter) handleStart(w *wrapper) {
	if w != a.pending || w.ended {
		return
	}
	a.pending = nil
	a.current = w
	a.state = stateSpeaking
	a.hasSpoken = true
	a.timeSincePauseResume = 0

	// Interrupt if the can-announce gate drops while this is speaking.
	a.removeGateListener = w.utterance.OnCanAnnounceChange(func(canAnnounce bool) {
		if !canAnnounce {
			a.logger.Debug("synth: gate dropped, interrupting", "utterance", w.utterance.ID())
			a.CancelUtterance(w.utterance)
		}
	})

	a.startSpeaking.Emit(w.utterance, w.text)
	a.logger.Debug("synth: speaking", "utterance", w.utterance.ID())
}

// handleEnd reacts to the platform end or error event, or to a synthesised
// end. Events for wrappers that already ended are dropped; this is how late
// platform events after a cancel are ignored.
func (a *Adapter) handleEnd(w *wrapper) {
	if w.ended || (w != a.current && w != a.pending) {
		return
	}
	w.ended = true
	if w == a.pending {
		a.pending = nil
	}
	if w == a.current {
		a.current = nil
	}
	if a.removeGateListener != nil {
		a.removeGateListener()
		a.removeGateListener = nil
	}
	a.state = stateIdle
	a.timeSinceEnd = 0
	a.logger.Debug("synth: ended", "utterance", w.utterance.ID())
	a.completion.Emit(w.utterance, w.text)
}

// Cancel implements announce.Announcer.
func (a *Adapter) Cancel() {
	if w := a.inFlight(); w != nil {
		a.CancelUtterance(w.utterance)
	}
}

// CancelUtterance implements announce.Announcer. The end is synthesised
// before the platform cancel so the queue's view stays consistent even when
// the platform's own end event is late or missing.
func (a *Adapter) CancelUtterance(u *announce.Utterance) {
	w := a.inFlight()
	if w == nil || w.utterance != u {
		return
	}
	a.state = stateCancelling
	a.handleEnd(w)
	if a.platform != nil {
		a.platform.Cancel()
	}
}

func (a *Adapter) inFlight() *wrapper {
	if a.current != nil {
		return a.current
	}
	return a.pending
}

// ShouldUtteranceCancelOther implements announce.Announcer with the
// CancelSelf/CancelOther collision semantics.
func (a *Adapter) ShouldUtteranceCancelOther(candidate, victim *announce.Utterance) bool {
	return announce.ShouldCancelWithOptions(candidate, victim)
}

// OnUtterancePriorityChange implements announce.Announcer: if the queue's
// front utterance now out-ranks the one in flight, the in-flight utterance
// is interrupted.
func (a *Adapter) OnUtterancePriorityChange(front *announce.Utterance) {
	w := a.inFlight()
	if w == nil || front == nil || front == w.utterance {
		return
	}
	if a.ShouldUtteranceCancelOther(front, w.utterance) {
		a.logger.Debug("synth: interrupted by queue front",
			"interrupted", w.utterance.ID(), "front", front.ID())
		a.CancelUtterance(w.utterance)
	}
}

// Step implements announce.Announcer: readiness gating, the keep-alive
// ping, the pending-speech timeout and the pause/resume cycling all run off
// the queue's tick.
func (a *Adapter) Step(dt time.Duration, _ announce.QueueView) {
	if a.platform == nil {
		a.ready = true
		return
	}

	switch a.state {
	case stateIdle:
		a.timeSinceEnd += dt
		if !a.ready && a.timeSinceEnd > a.cfg.InterUtteranceGap {
			a.ready = true
		}

		// Keep the engine awake while it would otherwise idle out.
		if a.initialized {
			a.timeSinceWake += dt
			if a.timeSinceWake > a.cfg.EngineWakeInterval && !a.platform.Speaking() {
				a.timeSinceWake = 0
				a.platform.Speak(&SpeechUtterance{Text: ""})
				a.logger.Debug("synth: keep-alive ping")
			}
		}

	case statePending:
		a.timeSinceWake = 0
		a.timeInPending += dt
		if a.timeInPending > a.cfg.PendingTimeout {
			w := a.pending
			a.logger.Warn("synth: no start event, declaring announce failure",
				"utterance", w.utterance.ID(), "pending", a.timeInPending)
			a.handleEnd(w)
			a.platform.Cancel()
		}

	case stateSpeaking:
		a.timeSinceWake = 0
		if a.cfg.PauseResumeWorkaround && a.usingRemoteVoice() {
			a.timeSincePauseResume += dt
			if a.timeSincePauseResume > a.cfg.PauseResumeInterval {
				a.timeSincePauseResume = 0
				a.platform.Pause()
				a.platform.Resume()
				a.logger.Debug("synth: pause/resume cycle")
			}
		}
	}
}

func (a *Adapter) usingRemoteVoice() bool {
	return a.voice != nil && !a.voice.LocalService
}

// ReadyToAnnounce implements announce.Announcer.
func (a *Adapter) ReadyToAnnounce() bool { return a.ready }

// HasSpoken implements announce.Announcer; it latches on the first platform
// start event.
func (a *Adapter) HasSpoken() bool { return a.hasSpoken }

// AnnounceImmediatelyUntilSpeaking implements announce.Announcer. Speech
// platforms require the first utterance to be submitted synchronously from
// a user gesture.
func (a *Adapter) AnnounceImmediatelyUntilSpeaking() bool { return true }

// RespectResponseCollectorProperties implements announce.Announcer.
func (a *Adapter) RespectResponseCollectorProperties() bool { return true }

// Completion implements announce.Announcer.
func (a *Adapter) Completion() *announce.Emitter { return &a.completion }

// StartSpeaking emits (utterance, text) when the platform begins producing
// audio for it.
func (a *Adapter) StartSpeaking() *announce.Emitter { return &a.startSpeaking }

// populateVoices refreshes the deduplicated voice list from the platform.
func (a *Adapter) populateVoices() {
	a.voices = DedupeVoices(a.platform.Voices())
	a.logger.Debug("synth: voices populated", "count", len(a.voices))
}

// Voices returns the known voices, deduplicated by display name.
func (a *Adapter) Voices() []Voice { return a.voices }

// PrioritizedVoices returns the known voices in preferred order.
func (a *Adapter) PrioritizedVoices() []Voice { return PrioritizedVoices(a.voices) }

// Voice returns the selected voice, nil meaning the platform default.
func (a *Adapter) Voice() *Voice { return a.voice }

// SetVoice selects the voice for subsequent announcements.
func (a *Adapter) SetVoice(v *Voice) { a.voice = v }
