// Package config loads the announcement-stack configuration from Viper,
// mapping the `announce.*` key space onto the per-component Config structs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/a11ykit/announce/arialive"
	"github.com/a11ykit/announce/queue"
	"github.com/a11ykit/announce/synth"
	"github.com/a11ykit/announce/synth/espeakng"
)

// Config aggregates the tunables of the whole announcement stack.
type Config struct {
	// Engine selects the output backend: "espeak", "console", "arialive"
	// or "null".
	Engine string

	Queue    queue.Config
	Synth    synth.Config
	AriaLive arialive.Config
	Espeak   espeakng.Config
}

// Default returns the stack defaults.
func Default() Config {
	return Config{
		Engine:   "espeak",
		Queue:    queue.DefaultConfig(),
		Synth:    synth.DefaultConfig(),
		AriaLive: arialive.DefaultConfig(),
		Espeak:   espeakng.DefaultConfig(),
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Engine {
	case "espeak", "console", "arialive", "null":
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if c.Synth.InterUtteranceGap < 125*time.Millisecond {
		return fmt.Errorf("inter-utterance gap %v below the 125ms floor", c.Synth.InterUtteranceGap)
	}
	if c.AriaLive.RegionCount < 1 {
		return fmt.Errorf("aria-live region count must be positive")
	}
	return nil
}

// FromViper loads configuration from the global Viper instance.
func FromViper() (Config, error) {
	cfg := Default()

	if viper.IsSet("announce.engine") {
		cfg.Engine = viper.GetString("announce.engine")
	}

	if viper.IsSet("announce.queue.enabled") {
		cfg.Queue.Enabled = viper.GetBool("announce.queue.enabled")
	}
	if viper.IsSet("announce.queue.muted") {
		cfg.Queue.Muted = viper.GetBool("announce.queue.muted")
	}
	if d, ok := durationKey("announce.queue.stable_delay"); ok {
		cfg.Queue.StableDelay = d
	}
	if d, ok := durationKey("announce.queue.maximum_delay"); ok {
		cfg.Queue.MaximumDelay = d
	}

	if d, ok := durationKey("announce.synth.inter_utterance_gap"); ok {
		cfg.Synth.InterUtteranceGap = d
	}
	if d, ok := durationKey("announce.synth.pending_timeout"); ok {
		cfg.Synth.PendingTimeout = d
	}
	if d, ok := durationKey("announce.synth.engine_wake_interval"); ok {
		cfg.Synth.EngineWakeInterval = d
	}
	if d, ok := durationKey("announce.synth.pause_resume_interval"); ok {
		cfg.Synth.PauseResumeInterval = d
	}
	if viper.IsSet("announce.synth.pause_resume_workaround") {
		cfg.Synth.PauseResumeWorkaround = viper.GetBool("announce.synth.pause_resume_workaround")
	}
	if viper.IsSet("announce.synth.pitch") {
		cfg.Synth.Pitch = viper.GetFloat64("announce.synth.pitch")
	}
	if viper.IsSet("announce.synth.rate") {
		cfg.Synth.Rate = viper.GetFloat64("announce.synth.rate")
	}
	if viper.IsSet("announce.synth.volume") {
		cfg.Synth.Volume = viper.GetFloat64("announce.synth.volume")
	}

	if viper.IsSet("announce.arialive.region_count") {
		cfg.AriaLive.RegionCount = viper.GetInt("announce.arialive.region_count")
	}
	if d, ok := durationKey("announce.arialive.clear_delay"); ok {
		cfg.AriaLive.ClearDelay = d
	}
	if viper.IsSet("announce.arialive.hide_on_clear") {
		cfg.AriaLive.HideOnClear = viper.GetBool("announce.arialive.hide_on_clear")
	}

	if viper.IsSet("announce.espeak.binary") {
		cfg.Espeak.Binary = viper.GetString("announce.espeak.binary")
	}
	if viper.IsSet("announce.espeak.voice") {
		cfg.Espeak.Voice = viper.GetString("announce.espeak.voice")
	}
	if viper.IsSet("announce.espeak.words_per_minute") {
		cfg.Espeak.WordsPerMinute = viper.GetInt("announce.espeak.words_per_minute")
	}
	if viper.IsSet("announce.espeak.sample_rate") {
		cfg.Espeak.SampleRate = viper.GetInt("announce.espeak.sample_rate")
	}
	if d, ok := durationKey("announce.espeak.timeout"); ok {
		cfg.Espeak.Timeout = d
	}
	if d, ok := durationKey("announce.espeak.grace_period"); ok {
		cfg.Espeak.GracePeriod = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid announce configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults seeds Viper with the stack defaults.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("announce.engine", defaults.Engine)

	viper.SetDefault("announce.queue.enabled", defaults.Queue.Enabled)
	viper.SetDefault("announce.queue.muted", defaults.Queue.Muted)
	viper.SetDefault("announce.queue.stable_delay", defaults.Queue.StableDelay.String())

	viper.SetDefault("announce.synth.inter_utterance_gap", defaults.Synth.InterUtteranceGap.String())
	viper.SetDefault("announce.synth.pending_timeout", defaults.Synth.PendingTimeout.String())
	viper.SetDefault("announce.synth.engine_wake_interval", defaults.Synth.EngineWakeInterval.String())
	viper.SetDefault("announce.synth.pause_resume_interval", defaults.Synth.PauseResumeInterval.String())
	viper.SetDefault("announce.synth.pause_resume_workaround", defaults.Synth.PauseResumeWorkaround)
	viper.SetDefault("announce.synth.pitch", defaults.Synth.Pitch)
	viper.SetDefault("announce.synth.rate", defaults.Synth.Rate)
	viper.SetDefault("announce.synth.volume", defaults.Synth.Volume)

	viper.SetDefault("announce.arialive.region_count", defaults.AriaLive.RegionCount)
	viper.SetDefault("announce.arialive.clear_delay", defaults.AriaLive.ClearDelay.String())
	viper.SetDefault("announce.arialive.hide_on_clear", defaults.AriaLive.HideOnClear)

	viper.SetDefault("announce.espeak.binary", defaults.Espeak.Binary)
	viper.SetDefault("announce.espeak.voice", defaults.Espeak.Voice)
	viper.SetDefault("announce.espeak.words_per_minute", defaults.Espeak.WordsPerMinute)
	viper.SetDefault("announce.espeak.sample_rate", defaults.Espeak.SampleRate)
	viper.SetDefault("announce.espeak.timeout", defaults.Espeak.Timeout.String())
	viper.SetDefault("announce.espeak.grace_period", defaults.Espeak.GracePeriod.String())
}

func durationKey(key string) (time.Duration, bool) {
	if !viper.IsSet(key) {
		return 0, false
	}
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, false
	}
	return d, true
}
