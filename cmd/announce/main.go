// Package main provides the announce CLI: a line-driven (or TUI) front end
// to the announcement queue, speaking alerts through espeak-ng or draining
// them into in-memory live regions.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/a11ykit/announce"
	"github.com/a11ykit/announce/arialive"
	"github.com/a11ykit/announce/config"
	"github.com/a11ykit/announce/queue"
	"github.com/a11ykit/announce/synth"
	"github.com/a11ykit/announce/synth/espeakng"
	"github.com/a11ykit/announce/ticker"
	"github.com/a11ykit/announce/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""

	configFile string
	engineFlag string
	tuiFlag    bool
	mutedFlag  bool
	debugFlag  bool

	spokenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle  = lipgloss.NewStyle().Faint(true)

	rootCmd = &cobra.Command{
		Use:   "announce",
		Short: "Queue and speak accessibility announcements",
		Long: "Reads alert lines from stdin (or an interactive TUI) and drains them\n" +
			"through a debounced, priority-aware announcement queue.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         execute,
	}
)

// envOverrides are applied on top of the config file.
type envOverrides struct {
	Engine string `env:"ANNOUNCE_ENGINE"`
	Debug  bool   `env:"ANNOUNCE_DEBUG"`
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file to use")
	rootCmd.PersistentFlags().StringVarP(&engineFlag, "engine", "e", "", "output engine: espeak, console, arialive, null")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "verbose logging")
	rootCmd.Flags().BoolVar(&tuiFlag, "tui", false, "run the interactive queue monitor")
	rootCmd.Flags().BoolVar(&mutedFlag, "muted", false, "start muted")
	rootCmd.AddCommand(configCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		scope := gap.NewScope(gap.User, "announce")
		dirs, err := scope.ConfigDirs()
		if err == nil {
			for _, dir := range dirs {
				viper.AddConfigPath(dir)
			}
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("announce")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults()
	if err := viper.ReadInConfig(); err == nil {
		log.Debug("config loaded", "file", viper.ConfigFileUsed())
		viper.WatchConfig()
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Debug("config changed", "file", e.Name)
		})
	}
}

func execute(*cobra.Command, []string) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	if debugFlag || overrides.Debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.FromViper()
	if err != nil {
		return err
	}
	if overrides.Engine != "" {
		cfg.Engine = overrides.Engine
	}
	if engineFlag != "" {
		cfg.Engine = engineFlag
	}
	cfg.Queue.Muted = cfg.Queue.Muted || mutedFlag
	if err := cfg.Validate(); err != nil {
		return err
	}

	run := ticker.NewRunner(ticker.DefaultInterval)

	announcer, err := buildAnnouncer(cfg, run.Dispatch)
	if err != nil {
		return err
	}
	q := queue.New(announcer,
		queue.WithConfig(cfg.Queue),
		queue.WithCollector(announce.NewResponseCollector()),
	)

	if tuiFlag {
		_, err := ui.Run(q)
		return err
	}
	return runStdin(q, run)
}

// buildAnnouncer wires the configured output engine. dispatch funnels
// platform callbacks onto the tick goroutine.
func buildAnnouncer(cfg config.Config, dispatch func(func())) (announce.Announcer, error) {
	switch cfg.Engine {
	case "espeak":
		platform, err := espeakng.New(cfg.Espeak, espeakng.WithDispatch(dispatch))
		if err != nil {
			log.Warn("speech unavailable, falling back to null engine", "error", err)
			return newSynth(nil, cfg), nil
		}
		return newSynth(platform, cfg), nil
	case "console":
		return newSynth(synth.ConsolePlatform{Out: os.Stdout}, cfg), nil
	case "null":
		return newSynth(synth.NullPlatform{}, cfg), nil
	case "arialive":
		return arialive.New(arialive.NewMemoryDocument(),
			arialive.WithConfig(cfg.AriaLive)), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func newSynth(platform synth.Platform, cfg config.Config) *synth.Adapter {
	a := synth.New(platform, synth.WithConfig(cfg.Synth))
	// Launching the process counts as the user gesture here.
	a.Initialize()
	return a
}

func runStdin(q *queue.Queue, run *ticker.Runner) error {
	run.Listen(q.Step)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println(faintStyle.Render("type alerts, one per line; ctrl-d to quit"))
	}

	q.Announcer().Completion().Listen(func(_ *announce.Utterance, text string) {
		if text != "" && interactive {
			fmt.Println(spokenStyle.Render("spoke: ") + text)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			run.Dispatch(func() { q.AddToBack(announce.Text(line)) })
		}
		// Let the queue drain before shutting the ticker down.
		for {
			done := make(chan bool, 1)
			run.Dispatch(func() { done <- q.Length() == 0 && q.Announcing() == nil })
			if <-done {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	run.Run(ctx)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
