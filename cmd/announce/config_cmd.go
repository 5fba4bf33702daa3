package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/a11ykit/announce"
	"github.com/a11ykit/announce/config"
)

const defaultConfig = `# announce configuration
announce:
  # Output engine: espeak, console, arialive, or null
  engine: "espeak"

  queue:
    enabled: true
    muted: false
    # Minimum time an alert sits unchanged before it is spoken
    stable_delay: "200ms"

  synth:
    # Readiness hold-off between utterances; must be >= 125ms
    inter_utterance_gap: "250ms"
    # How long to wait for the engine to start speaking
    pending_timeout: "5s"
    engine_wake_interval: "10s"
    pause_resume_interval: "10s"
    pause_resume_workaround: false
    pitch: 1.0
    rate: 1.0
    volume: 1.0

  arialive:
    region_count: 4
    clear_delay: "200ms"
    hide_on_clear: false

  espeak:
    binary: "espeak-ng"
    voice: "en-us"
    words_per_minute: 175
    sample_rate: 22050
    timeout: "10s"
    grace_period: "500ms"
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: "Prints the configuration the stack would run with: defaults, the\n" +
		"config file, environment variables and flags, all applied. Creates\n" +
		"the default configuration file first if none exists.",
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		cfg, err := config.FromViper()
		if err != nil {
			return err
		}
		var overrides envOverrides
		if err := env.Parse(&overrides); err != nil {
			return fmt.Errorf("parsing environment: %w", err)
		}
		if overrides.Engine != "" {
			cfg.Engine = overrides.Engine
		}
		if engineFlag != "" {
			cfg.Engine = engineFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Println(faintStyle.Render("# from " + file))
		}
		fmt.Print(renderConfig(cfg))
		return nil
	},
}

// ensureConfigFile writes the default config file if none was found.
func ensureConfigFile() error {
	if viper.ConfigFileUsed() != "" {
		return nil
	}
	scope := gap.NewScope(gap.User, "announce")
	dirs, err := scope.ConfigDirs()
	if err != nil || len(dirs) == 0 {
		return fmt.Errorf("locating config directory: %w", err)
	}
	path := filepath.Join(dirs[0], "announce.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	fmt.Println(faintStyle.Render("# wrote " + path))
	return nil
}

// renderConfig lays the effective configuration out in the config file's
// own shape.
func renderConfig(cfg config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "announce:\n")
	fmt.Fprintf(&b, "  engine: %q\n\n", cfg.Engine)

	fmt.Fprintf(&b, "  queue:\n")
	fmt.Fprintf(&b, "    enabled: %t\n", cfg.Queue.Enabled)
	fmt.Fprintf(&b, "    muted: %t\n", cfg.Queue.Muted)
	fmt.Fprintf(&b, "    stable_delay: %q\n", cfg.Queue.StableDelay)
	if cfg.Queue.MaximumDelay != announce.Forever {
		fmt.Fprintf(&b, "    maximum_delay: %q\n", cfg.Queue.MaximumDelay)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  synth:\n")
	fmt.Fprintf(&b, "    inter_utterance_gap: %q\n", cfg.Synth.InterUtteranceGap)
	fmt.Fprintf(&b, "    pending_timeout: %q\n", cfg.Synth.PendingTimeout)
	fmt.Fprintf(&b, "    engine_wake_interval: %q\n", cfg.Synth.EngineWakeInterval)
	fmt.Fprintf(&b, "    pause_resume_interval: %q\n", cfg.Synth.PauseResumeInterval)
	fmt.Fprintf(&b, "    pause_resume_workaround: %t\n", cfg.Synth.PauseResumeWorkaround)
	fmt.Fprintf(&b, "    pitch: %g\n", cfg.Synth.Pitch)
	fmt.Fprintf(&b, "    rate: %g\n", cfg.Synth.Rate)
	fmt.Fprintf(&b, "    volume: %g\n\n", cfg.Synth.Volume)

	fmt.Fprintf(&b, "  arialive:\n")
	fmt.Fprintf(&b, "    region_count: %d\n", cfg.AriaLive.RegionCount)
	fmt.Fprintf(&b, "    clear_delay: %q\n", cfg.AriaLive.ClearDelay)
	fmt.Fprintf(&b, "    hide_on_clear: %t\n\n", cfg.AriaLive.HideOnClear)

	fmt.Fprintf(&b, "  espeak:\n")
	fmt.Fprintf(&b, "    binary: %q\n", cfg.Espeak.Binary)
	fmt.Fprintf(&b, "    voice: %q\n", cfg.Espeak.Voice)
	fmt.Fprintf(&b, "    words_per_minute: %d\n", cfg.Espeak.WordsPerMinute)
	fmt.Fprintf(&b, "    sample_rate: %d\n", cfg.Espeak.SampleRate)
	fmt.Fprintf(&b, "    timeout: %q\n", cfg.Espeak.Timeout)
	fmt.Fprintf(&b, "    grace_period: %q\n", cfg.Espeak.GracePeriod)
	return b.String()
}
