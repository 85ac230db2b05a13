package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/nvaillant/quaver/config"
	"github.com/nvaillant/quaver/event"
	"github.com/nvaillant/quaver/mpris"
	"github.com/nvaillant/quaver/player"
	"github.com/nvaillant/quaver/resource"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file-or-url> [more...]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			log = log.Level(lvl)
		}
	}
	event.SetLogger(log)

	pb := cfg.GetPlaybackConfig()

	// The MPRIS adapter is both the now-playing sink and the remote
	// command router, so it must exist before the player.
	adapter := mpris.New("quaver", "Quaver")

	p, err := player.NewQueued(player.Options{
		Factory: resource.NewBeepFactory(resource.BeepOptions{
			BufferDuration: pb.BufferDuration(),
			TickInterval:   pb.TickInterval(),
			CacheDir:       pb.CacheDir,
			Logger:         log,
		}),
		NowPlaying:     adapter,
		RemoteCommands: adapter,
		Logger:         log,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	adapter.Start()
	defer adapter.Close()

	p.SetVolume(cfg.GetVolume())
	p.SetRepeatMode(player.ParseRepeatMode(cfg.Repeat))

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	events := p.Events()
	events.CurrentItem.AddListener(p, func(e player.CurrentItemChanged) {
		if e.Item == nil {
			return
		}
		log.Info().
			Str("track", e.Item.ItemTitle()).
			Str("position", fmt.Sprintf("%s of %d", humanize.Ordinal(e.Index+1), p.Count())).
			Msg("now playing")
	})
	events.SecondElapse.AddListener(p, func(e player.SecondsElapsed) {
		log.Debug().
			Str("at", formatDuration(e.Position)).
			Str("of", formatDuration(p.Duration())).
			Msg("progress")
	})
	events.Fail.AddListener(p, func(e player.Failed) {
		log.Error().Err(e.Err).Msg("playback failed")
		finish()
	})
	events.StateChange.AddListener(p, func(e player.StateChanged) {
		log.Debug().Stringer("state", e.Current).Msg("state change")
		if e.Current == player.StateEnded {
			finish()
		}
	})

	items := make([]player.Item, 0, len(args))
	for _, arg := range args {
		items = append(items, player.MediaItem{
			URL:   arg,
			Title: strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg)),
		})
	}
	p.Add(items...)
	p.Play()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info().Msg("interrupted, stopping")
		p.Stop()
	case <-done:
	}
	return nil
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
