package synth

// Voice is one voice offered by the speech platform.
type Voice struct {
	Name string
	Lang string

	// LocalService is false for voices synthesised remotely; some platform
	// workarounds only apply to those.
	LocalService bool

	// Default marks the platform's default voice.
	Default bool
}

// SpeechUtterance is the per-call speech object submitted to the platform.
// The platform fires the callbacks as the utterance progresses; they must be
// delivered on the adapter's goroutine (see the Dispatch option of concrete
// platforms).
type SpeechUtterance struct {
	Text   string
	Voice  *Voice
	Pitch  float64
	Rate   float64
	Volume float64

	OnStart func()
	OnEnd   func()
	OnError func(err error)
}

// Platform is the speech-synthesis backend consumed by the Adapter.
type Platform interface {
	// Speak submits an utterance. Submission is asynchronous; progress is
	// reported through the utterance callbacks.
	Speak(u *SpeechUtterance)

	// Cancel stops whatever the platform is speaking or preparing to
	// speak. Platforms fire the end callback of the dropped utterance on
	// a best-effort basis only.
	Cancel()

	// Pause and Resume suspend and continue the current speech.
	Pause()
	Resume()

	// Speaking reports whether the platform is producing audio.
	Speaking() bool

	// Voices returns the currently known voice list.
	Voices() []Voice

	// OnVoicesChanged registers a hook invoked when the voice list
	// becomes available or changes.
	OnVoicesChanged(fn func())
}

// NullPlatform is the inert platform used when real speech output is
// unavailable. Every spoken utterance starts and ends within the Speak call
// so queues draining through it keep making progress.
type NullPlatform struct{}

func (NullPlatform) Speak(u *SpeechUtterance) {
	if u.OnStart != nil {
		u.OnStart()
	}
	if u.OnEnd != nil {
		u.OnEnd()
	}
}

func (NullPlatform) Cancel()                  {}
func (NullPlatform) Pause()                   {}
func (NullPlatform) Resume()                  {}
func (NullPlatform) Speaking() bool           { return false }
func (NullPlatform) Voices() []Voice          { return nil }
func (NullPlatform) OnVoicesChanged(func())   {}
