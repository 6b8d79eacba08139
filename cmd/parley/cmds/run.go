package cmds

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/persistence/sessionstore"
	"github.com/go-go-golems/parley/pkg/session"
	"github.com/go-go-golems/parley/pkg/speech"
	"github.com/go-go-golems/parley/pkg/synth"
	"github.com/go-go-golems/parley/pkg/ui"
	"github.com/go-go-golems/parley/pkg/voicecmd"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive interview client",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return err
		}
		store, err := sessionstore.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		bus := events.NewBus(log.Logger)
		defer func() { _ = bus.Close() }()

		var synthOpts []synth.Option
		if cfg.TTS.Voice != "" {
			synthOpts = append(synthOpts, synth.WithVoice(cfg.TTS.Voice))
		}
		if cfg.TTS.ClipsDir != "" {
			synthOpts = append(synthOpts, synth.WithPlayer(synth.FilePlayer{Dir: cfg.TTS.ClipsDir}))
		}
		speaker, err := synth.NewClient(cfg.TTS.BaseURL, cfg.TTS.APIKey, synthOpts...)
		if err != nil {
			return err
		}

		rt, err := session.NewRuntime(client, store, cfg.Engine.UserID,
			session.WithPublisher(bus),
			session.WithSynthesizer(speaker),
		)
		if err != nil {
			return err
		}
		defer rt.Close()

		var recorder ui.Recorder
		if cfg.Speech.WSURL != "" {
			var capture *speech.Capture
			dispatcher := voicecmd.NewDispatcher(rt.Commands(func() {
				if capture != nil {
					capture.Stop()
				}
			}))
			recognizer, err := speech.NewWSRecognizer(cfg.Speech.WSURL)
			if err != nil {
				return err
			}
			capture, err = speech.NewCapture(speech.CaptureConfig{
				Recognizer: recognizer,
				Dispatcher: dispatcher,
				Sink:       rt,
				Events:     bus,
			})
			if err != nil {
				return err
			}
			recorder = capture
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		p := tea.NewProgram(
			ui.New(rt, client, recorder, cfg.Engine.UserID),
			tea.WithAltScreen(),
		)

		// Subscribe before restoring: the restoration replay is published
		// immediately and the gochannel pub/sub drops events without a
		// subscriber.
		msgs, err := bus.Subscribe(ctx)
		if err != nil {
			return err
		}
		if resumed, err := rt.Restore(ctx); err != nil {
			log.Warn().Err(err).Msg("session restore failed")
		} else if resumed {
			log.Info().Str("session_id", rt.SessionID()).Msg("resumed interrupted interview")
		}

		var g errgroup.Group
		g.Go(func() error {
			return ui.Forward(msgs, p)
		})
		g.Go(func() error {
			_, err := p.Run()
			cancel()
			_ = bus.Close()
			return err
		})
		return g.Wait()
	},
}
