// Package espeakng is a speech Platform backed by the espeak-ng binary:
// text is synthesised through a subprocess and the resulting PCM is played
// locally. Progress callbacks are delivered through a configurable
// dispatcher so the announcement queue keeps its single-goroutine
// discipline.
package espeakng

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/a11ykit/announce/internal/audio"
	"github.com/a11ykit/announce/synth"
)

// ErrBinaryNotFound is returned when the espeak-ng binary is not on PATH.
var ErrBinaryNotFound = errors.New("espeak-ng binary not found")

// Config holds the subprocess and synthesis settings.
type Config struct {
	// Binary is the synthesiser executable.
	Binary string

	// Voice is the espeak-ng voice identifier, e.g. "en-us".
	Voice string

	// WordsPerMinute is the base speaking rate, scaled by the per-call
	// rate.
	WordsPerMinute int

	// SampleRate of the synthesised PCM.
	SampleRate int

	// Timeout bounds a single synthesis run.
	Timeout time.Duration

	// GracePeriod is how long an interrupted synthesis process gets to
	// exit before it is killed outright.
	GracePeriod time.Duration
}

// DefaultConfig returns the subprocess defaults.
func DefaultConfig() Config {
	return Config{
		Binary:         "espeak-ng",
		Voice:          "en-us",
		WordsPerMinute: 175,
		SampleRate:     22050,
		Timeout:        10 * time.Second,
		GracePeriod:    500 * time.Millisecond,
	}
}

// Platform shells out to espeak-ng and plays the result. It bridges the
// synthesis goroutine back to the queue goroutine through the dispatcher.
type Platform struct {
	cfg      Config
	logger   *log.Logger
	player   *audio.Player
	dispatch func(func())

	mu           sync.Mutex
	speaking     bool
	stopPlayback func()
	cancelSynth  context.CancelFunc

	voices        []synth.Voice
	voicesLoaded  bool
	voicesChanged []func()
}

// Option configures a Platform at construction.
type Option func(*Platform)

// WithDispatch sets the function used to deliver utterance callbacks. It
// must execute them on the queue's goroutine. The default calls inline,
// which is only safe in single-goroutine tests.
func WithDispatch(fn func(func())) Option {
	return func(p *Platform) { p.dispatch = fn }
}

// WithLogger supplies a structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Platform) { p.logger = logger }
}

// New creates the platform, verifying the binary and initialising audio
// output.
func New(cfg Config, opts ...Option) (*Platform, error) {
	if _, err := exec.LookPath(cfg.Binary); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBinaryNotFound, cfg.Binary)
	}
	player, err := audio.NewPlayer(cfg.SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("espeakng: %w", err)
	}
	p := &Platform{
		cfg:      cfg,
		logger:   log.Default(),
		player:   player,
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Speak implements synth.Platform. Empty text is the adapter's keep-alive
// ping; a subprocess engine has nothing to keep warm, so it is ignored.
func (p *Platform) Speak(u *synth.SpeechUtterance) {
	if strings.TrimSpace(u.Text) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	p.mu.Lock()
	p.cancelSynth = cancel
	p.mu.Unlock()

	go p.synthesize(ctx, cancel, u)
}

func (p *Platform) synthesize(ctx context.Context, cancel context.CancelFunc, u *synth.SpeechUtterance) {
	defer cancel()

	voice := p.cfg.Voice
	if u.Voice != nil {
		voice = u.Voice.Name
	}
	wpm := p.cfg.WordsPerMinute
	if u.Rate > 0 {
		wpm = int(float64(wpm) * u.Rate)
	}
	args := []string{
		"--stdout",
		"-v", voice,
		"-s", strconv.Itoa(wpm),
		"-a", strconv.Itoa(clamp(int(u.Volume*100), 0, 200)),
		"-p", strconv.Itoa(clamp(int(u.Pitch*50), 0, 99)),
		u.Text,
	}

	cmd := exec.CommandContext(ctx, p.cfg.Binary, args...)
	// Graceful shutdown on cancel or timeout: interrupt first, then kill
	// if the process lingers past the grace period.
	cmd.Cancel = func() error { return interruptProcess(cmd.Process) }
	cmd.WaitDelay = p.cfg.GracePeriod

	start := time.Now()
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("synthesis timed out after %v", p.cfg.Timeout)
		}
		p.logger.Warn("espeakng: synthesis failed", "error", err, "duration", time.Since(start))
		p.fail(u, err)
		return
	}
	if ctx.Err() != nil {
		// Cancelled while synthesising; no events for a dropped utterance.
		return
	}

	pcm, err := wavPCM(out)
	if err != nil {
		p.fail(u, err)
		return
	}
	p.logger.Debug("espeakng: synthesized",
		"bytes", len(pcm), "duration", time.Since(start))

	done, stop := p.player.Play(pcm)
	p.mu.Lock()
	p.speaking = true
	p.stopPlayback = stop
	p.mu.Unlock()

	p.dispatch(func() {
		if u.OnStart != nil {
			u.OnStart()
		}
	})

	<-done

	p.mu.Lock()
	p.speaking = false
	p.stopPlayback = nil
	p.mu.Unlock()

	p.dispatch(func() {
		if u.OnEnd != nil {
			u.OnEnd()
		}
	})
}

func (p *Platform) fail(u *synth.SpeechUtterance, err error) {
	p.dispatch(func() {
		if u.OnError != nil {
			u.OnError(err)
		}
	})
}

// Cancel implements synth.Platform.
func (p *Platform) Cancel() {
	p.mu.Lock()
	cancel := p.cancelSynth
	stop := p.stopPlayback
	p.cancelSynth = nil
	p.stopPlayback = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stop != nil {
		stop()
	}
}

// Pause implements synth.Platform.
func (p *Platform) Pause() { p.player.Pause() }

// Resume implements synth.Platform.
func (p *Platform) Resume() { p.player.Resume() }

// Speaking implements synth.Platform.
func (p *Platform) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

// Voices implements synth.Platform, listing the installed voices on first
// use.
func (p *Platform) Voices() []synth.Voice {
	if !p.voicesLoaded {
		p.loadVoices()
	}
	return p.voices
}

// OnVoicesChanged implements synth.Platform.
func (p *Platform) OnVoicesChanged(fn func()) {
	p.voicesChanged = append(p.voicesChanged, fn)
}

func (p *Platform) loadVoices() {
	p.voicesLoaded = true
	out, err := exec.Command(p.cfg.Binary, "--voices=en").Output()
	if err != nil {
		p.logger.Warn("espeakng: listing voices failed", "error", err)
		return
	}
	p.voices = parseVoices(string(out))
	for _, fn := range p.voicesChanged {
		fn()
	}
}

// parseVoices reads `espeak-ng --voices` output: a header line followed by
// columns Pty Language Age/Gender VoiceName File Other.
func parseVoices(out string) []synth.Voice {
	var voices []synth.Voice
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		if i == 0 || len(fields) < 4 {
			continue
		}
		voices = append(voices, synth.Voice{
			Name:         fields[3],
			Lang:         fields[1],
			LocalService: true,
		})
	}
	return voices
}

// wavPCM extracts the PCM payload from a RIFF/WAVE stream by locating its
// data chunk.
func wavPCM(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a WAV stream")
	}
	offset := 12
	for offset+8 <= len(wav) {
		id := string(wav[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8
		if id == "data" {
			// espeak-ng streams with a zero/placeholder size; take the rest.
			if size <= 0 || body+size > len(wav) {
				return wav[body:], nil
			}
			return wav[body : body+size], nil
		}
		offset = body + size
		if size <= 0 {
			break
		}
	}
	return nil, errors.New("WAV stream has no data chunk")
}

// interruptProcess asks a synthesis process to stop. Windows has no
// interrupt signal, so the process is killed directly there.
func interruptProcess(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGINT)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
