// Package audio provides minimal PCM playback for speech platforms, built
// on the oto audio context.
package audio

import (
	"bytes"
	"fmt"
	"runtime"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Format is the sample format produced by the speech synthesisers we run.
const Format = oto.FormatSignedInt16LE

// Player owns an oto context and plays one PCM clip at a time.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
	current    *oto.Player
}

// NewPlayer initialises the audio context. The context is a process-wide
// resource; create one Player per process.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	options := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       Format,
	}
	// macOS stutters with the default buffer size.
	if runtime.GOOS == "darwin" {
		options.BufferSize = 100 * time.Millisecond
	}

	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	<-ready

	return &Player{ctx: ctx, sampleRate: sampleRate, channels: channels}, nil
}

// Play starts playback of a PCM clip and returns a channel closed when the
// clip finishes or is stopped, plus a stop function. Playing while a clip
// is active stops the previous clip first.
func (p *Player) Play(pcm []byte) (<-chan struct{}, func()) {
	p.Stop()

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.current = player
	player.Play()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(done)
		for player.IsPlaying() {
			select {
			case <-stopped:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()

	var once bool
	stop := func() {
		if once {
			return
		}
		once = true
		close(stopped)
		player.Pause()
		_ = player.Close()
	}
	return done, stop
}

// Pause suspends the active clip, if any.
func (p *Player) Pause() {
	if p.current != nil {
		p.current.Pause()
	}
}

// Resume continues the active clip, if any.
func (p *Player) Resume() {
	if p.current != nil && !p.current.IsPlaying() {
		p.current.Play()
	}
}

// Stop ends the active clip, if any.
func (p *Player) Stop() {
	if p.current != nil {
		p.current.Pause()
		_ = p.current.Close()
		p.current = nil
	}
}

// Duration reports how long a PCM clip will play for.
func (p *Player) Duration(pcm []byte) time.Duration {
	bytesPerSecond := p.sampleRate * p.channels * 2
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(float64(len(pcm)) / float64(bytesPerSecond) * float64(time.Second))
}
