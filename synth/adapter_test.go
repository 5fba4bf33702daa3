package synth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/a11ykit/announce"
	"github.com/a11ykit/announce/synth"
)

// mockPlatform records speak requests and lets tests fire the start/end/
// error events by hand.
type mockPlatform struct {
	spoken   []*synth.SpeechUtterance
	cancels  int
	pauses   int
	resumes  int
	speaking bool

	voices        []synth.Voice
	voicesChanged []func()
}

func (m *mockPlatform) Speak(u *synth.SpeechUtterance) { m.spoken = append(m.spoken, u) }
func (m *mockPlatform) Cancel()                        { m.cancels++ }
func (m *mockPlatform) Pause()                         { m.pauses++ }
func (m *mockPlatform) Resume()                        { m.resumes++ }
func (m *mockPlatform) Speaking() bool                 { return m.speaking }
func (m *mockPlatform) Voices() []synth.Voice          { return m.voices }
func (m *mockPlatform) OnVoicesChanged(fn func())      { m.voicesChanged = append(m.voicesChanged, fn) }

// last returns the most recent speak request.
func (m *mockPlatform) last() *synth.SpeechUtterance {
	if len(m.spoken) == 0 {
		return nil
	}
	return m.spoken[len(m.spoken)-1]
}

// texts returns the non-empty submitted texts, skipping the initialization
// priming and keep-alive pings.
func (m *mockPlatform) texts() []string {
	var out []string
	for _, u := range m.spoken {
		if u.Text != "" {
			out = append(out, u.Text)
		}
	}
	return out
}

func newTestAdapter(t *testing.T, opts ...synth.AdapterOption) (*synth.Adapter, *mockPlatform) {
	t.Helper()
	platform := &mockPlatform{}
	a := synth.New(platform, opts...)
	a.Initialize()
	return a, platform
}

func completionRecorder(a *synth.Adapter) *[]string {
	texts := &[]string{}
	a.Completion().Listen(func(_ *announce.Utterance, text string) {
		*texts = append(*texts, text)
	})
	return texts
}

func TestAnnounceLifecycle(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("hello there"))
	a.Announce(u, u.AnnouncerOptions)

	if got := platform.texts(); len(got) != 1 || got[0] != "hello there" {
		t.Fatalf("platform got %v", got)
	}
	if a.ReadyToAnnounce() {
		t.Fatal("adapter ready while pending")
	}
	if a.HasSpoken() {
		t.Fatal("hasSpoken latched before the start event")
	}

	platform.last().OnStart()
	if !a.HasSpoken() {
		t.Fatal("hasSpoken not latched on start")
	}
	if a.State() != "speaking" {
		t.Fatalf("state = %q, want speaking", a.State())
	}

	platform.last().OnEnd()
	if len(*completions) != 1 || (*completions)[0] != "hello there" {
		t.Fatalf("completions = %v", *completions)
	}
	if a.State() != "idle" {
		t.Fatalf("state = %q after end, want idle", a.State())
	}
}

func TestInterUtteranceGap(t *testing.T) {
	for _, gap := range []time.Duration{125 * time.Millisecond, 250 * time.Millisecond} {
		cfg := synth.DefaultConfig()
		cfg.InterUtteranceGap = gap

		a, platform := newTestAdapter(t, synth.WithConfig(cfg))
		u := announce.New(announce.Text("gap test"))
		a.Announce(u, u.AnnouncerOptions)
		platform.last().OnStart()
		platform.last().OnEnd()

		if a.ReadyToAnnounce() {
			t.Fatal("ready immediately after end")
		}
		a.Step(gap/2, nil)
		if a.ReadyToAnnounce() {
			t.Fatalf("ready before the %v gap elapsed", gap)
		}
		a.Step(gap, nil)
		if !a.ReadyToAnnounce() {
			t.Fatalf("not ready after the %v gap elapsed", gap)
		}
	}
}

func TestPendingTimeout(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("never starts"))
	a.Announce(u, u.AnnouncerOptions)

	a.Step(3*time.Second, nil)
	if len(*completions) != 0 {
		t.Fatal("completed before the pending timeout")
	}

	a.Step(3*time.Second, nil)
	if len(*completions) != 1 {
		t.Fatal("pending timeout did not synthesize a completion")
	}
	if platform.cancels != 1 {
		t.Fatalf("platform cancels = %d, want 1", platform.cancels)
	}
	if a.State() != "idle" {
		t.Fatalf("state = %q after timeout, want idle", a.State())
	}
}

func TestCancelUtteranceSynthesizesEnd(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("cut short"))
	a.Announce(u, u.AnnouncerOptions)
	platform.last().OnStart()

	a.CancelUtterance(u)
	if len(*completions) != 1 {
		t.Fatal("cancel did not synthesize a completion")
	}
	if platform.cancels != 1 {
		t.Fatalf("platform cancels = %d, want 1", platform.cancels)
	}

	// The platform's own late end event must not double-complete.
	platform.last().OnEnd()
	if len(*completions) != 1 {
		t.Fatal("late platform end double-completed")
	}
}

func TestCancelUnknownUtteranceIsNoop(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("speaking"))
	a.Announce(u, u.AnnouncerOptions)
	platform.last().OnStart()

	a.CancelUtterance(announce.New(announce.Text("someone else")))
	if len(*completions) != 0 || platform.cancels != 0 {
		t.Fatal("cancelling a foreign utterance touched the current one")
	}
}

func TestErrorEventCompletes(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("breaks"))
	a.Announce(u, u.AnnouncerOptions)
	platform.last().OnStart()
	platform.last().OnError(errors.New("engine exploded"))

	if len(*completions) != 1 {
		t.Fatal("error event did not complete the utterance")
	}
	if a.State() != "idle" {
		t.Fatalf("state = %q after error, want idle", a.State())
	}
}

func TestGateDropInterrupts(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	gate := announce.NewProperty(true)
	u := announce.New(announce.Text("gated"), announce.WithCanAnnounce(gate))
	a.Announce(u, u.AnnouncerOptions)
	platform.last().OnStart()

	gate.Set(false)
	if len(*completions) != 1 {
		t.Fatal("gate drop did not interrupt the announcement")
	}
	if platform.cancels != 1 {
		t.Fatalf("platform cancels = %d, want 1", platform.cancels)
	}
	if gate.ListenerCount() != 0 {
		t.Fatal("gate listener not detached after the interrupt")
	}
}

func TestUninitializedCompletesImmediately(t *testing.T) {
	platform := &mockPlatform{}
	a := synth.New(platform)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("too early"))
	a.Announce(u, u.AnnouncerOptions)

	if len(*completions) != 1 {
		t.Fatal("uninitialized announce did not complete immediately")
	}
	if len(platform.texts()) != 0 {
		t.Fatal("uninitialized announce reached the platform")
	}
}

func TestNilPlatformIsInertButSafe(t *testing.T) {
	a := synth.New(nil)
	a.Initialize()
	completions := completionRecorder(a)

	u := announce.New(announce.Text("nowhere to go"))
	a.Announce(u, u.AnnouncerOptions)
	if len(*completions) != 1 {
		t.Fatal("nil-platform announce did not complete immediately")
	}

	a.Step(time.Second, nil)
	if !a.ReadyToAnnounce() {
		t.Fatal("nil-platform adapter not ready")
	}
}

func TestKeepAlivePing(t *testing.T) {
	a, platform := newTestAdapter(t)
	primed := len(platform.spoken)

	a.Step(11*time.Second, nil)
	if len(platform.spoken) != primed+1 {
		t.Fatalf("speak calls = %d, want one keep-alive ping", len(platform.spoken))
	}
	if platform.last().Text != "" {
		t.Fatal("keep-alive ping is not empty")
	}

	// The wake clock restarts after a ping.
	a.Step(time.Second, nil)
	if len(platform.spoken) != primed+1 {
		t.Fatal("keep-alive pinged again too soon")
	}
}

func TestPauseResumeWorkaround(t *testing.T) {
	cfg := synth.DefaultConfig()
	cfg.PauseResumeWorkaround = true

	a, platform := newTestAdapter(t, synth.WithConfig(cfg))
	a.SetVoice(&synth.Voice{Name: "Google UK English", LocalService: false})

	u := announce.New(announce.Text("long speech"))
	a.Announce(u, u.AnnouncerOptions)
	platform.last().OnStart()

	a.Step(11*time.Second, nil)
	if platform.pauses != 1 || platform.resumes != 1 {
		t.Fatalf("pause/resume = %d/%d, want 1/1", platform.pauses, platform.resumes)
	}

	// Local voices are unaffected.
	a.SetVoice(&synth.Voice{Name: "Local", LocalService: true})
	a.Step(11*time.Second, nil)
	if platform.pauses != 1 {
		t.Fatal("pause/resume cycled for a local voice")
	}
}

func TestDisablingSpeechCancels(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("cut off"))
	a.Announce(u, u.AnnouncerOptions)
	platform.last().OnStart()

	a.Enabled.Set(false)
	if len(*completions) != 1 {
		t.Fatal("disabling speech did not cancel the announcement")
	}
	if a.SpeechEnabled() {
		t.Fatal("speech still enabled")
	}

	// Disabled announce completes immediately.
	u2 := announce.New(announce.Text("while disabled"))
	a.Announce(u2, u2.AnnouncerOptions)
	if len(*completions) != 2 {
		t.Fatal("disabled announce did not complete immediately")
	}
}

func TestSpeechAllowedProperty(t *testing.T) {
	allowed := announce.NewProperty(true)
	platform := &mockPlatform{}
	a := synth.New(platform, synth.WithSpeechAllowed(allowed))
	a.Initialize()

	if !a.SpeechEnabled() {
		t.Fatal("speech not enabled with all properties true")
	}
	allowed.Set(false)
	if a.SpeechEnabled() {
		t.Fatal("externally disallowed speech still enabled")
	}
}

func TestOnUtterancePriorityChangeInterrupts(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	low := announce.New(announce.Text("low"), announce.WithPriority(1))
	a.Announce(low, low.AnnouncerOptions)
	platform.last().OnStart()

	peer := announce.New(announce.Text("peer"), announce.WithPriority(1),
		announce.WithCancelOther(false))
	a.OnUtterancePriorityChange(peer)
	if len(*completions) != 0 {
		t.Fatal("equal priority with cancelOther=false interrupted")
	}

	high := announce.New(announce.Text("high"), announce.WithPriority(2))
	a.OnUtterancePriorityChange(high)
	if len(*completions) != 1 {
		t.Fatal("higher-priority front did not interrupt")
	}
}

func TestSanitizedTextSubmitted(t *testing.T) {
	a, platform := newTestAdapter(t)

	u := announce.New(announce.Text("one<br/>two"))
	a.Announce(u, u.AnnouncerOptions)
	if got := platform.last().Text; got != "one two" {
		t.Fatalf("submitted %q, want %q", got, "one two")
	}
}

func TestEmptyAfterSanitizeCompletesImmediately(t *testing.T) {
	a, platform := newTestAdapter(t)
	completions := completionRecorder(a)

	u := announce.New(announce.Text("<br/>"))
	a.Announce(u, u.AnnouncerOptions)
	if len(*completions) != 1 {
		t.Fatal("empty-after-sanitize announce did not complete immediately")
	}
	if len(platform.texts()) != 0 {
		t.Fatal("empty utterance reached the platform")
	}
}

func TestVoicesPopulatedAndDeduplicated(t *testing.T) {
	platform := &mockPlatform{
		voices: []synth.Voice{
			{Name: "Alice"},
			{Name: "Alice"},
			{Name: "Bob"},
		},
	}
	a := synth.New(platform)

	if got := len(a.Voices()); got != 2 {
		t.Fatalf("voices = %d, want 2 after dedupe", got)
	}

	platform.voices = append(platform.voices, synth.Voice{Name: "Carol"})
	for _, fn := range platform.voicesChanged {
		fn()
	}
	if got := len(a.Voices()); got != 3 {
		t.Fatalf("voices = %d after voiceschanged, want 3", got)
	}
}

func TestAnnouncerContract(t *testing.T) {
	a, _ := newTestAdapter(t)

	if !a.AnnounceImmediatelyUntilSpeaking() {
		t.Error("speech announcer must request immediate first-gesture output")
	}
	if !a.RespectResponseCollectorProperties() {
		t.Error("speech announcer must respect collector properties")
	}

	var _ announce.Announcer = a
}
