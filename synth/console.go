package synth

import (
	"fmt"
	"io"
)

// ConsolePlatform "speaks" by printing to a writer, completing each
// utterance within the Speak call. Useful for demos and environments
// without audio output.
type ConsolePlatform struct {
	// Out receives the spoken lines.
	Out io.Writer
}

// Speak implements Platform.
func (c ConsolePlatform) Speak(u *SpeechUtterance) {
	if u.Text != "" && c.Out != nil {
		fmt.Fprintln(c.Out, u.Text)
	}
	if u.OnStart != nil {
		u.OnStart()
	}
	if u.OnEnd != nil {
		u.OnEnd()
	}
}

func (ConsolePlatform) Cancel()                {}
func (ConsolePlatform) Pause()                 {}
func (ConsolePlatform) Resume()                {}
func (ConsolePlatform) Speaking() bool         { return false }
func (ConsolePlatform) Voices() []Voice        { return nil }
func (ConsolePlatform) OnVoicesChanged(func()) {}
