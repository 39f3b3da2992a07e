package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d1nch8g/pushtalk/actions"
	"github.com/d1nch8g/pushtalk/actuator"
	"github.com/d1nch8g/pushtalk/assistant"
	"github.com/d1nch8g/pushtalk/audio"
	"github.com/d1nch8g/pushtalk/config"
	"github.com/d1nch8g/pushtalk/console"
	"github.com/d1nch8g/pushtalk/engine"
	"github.com/d1nch8g/pushtalk/sound"
	"github.com/d1nch8g/pushtalk/trigger"
	"github.com/d1nch8g/pushtalk/tts"
	"github.com/d1nch8g/pushtalk/vision"
)

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logs *console.LogWriter
	var logOut io.Writer = os.Stderr
	if consoleMode {
		logs = console.NewLogWriter()
		logOut = logs
	}
	logger := newLogger(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := audio.NewRecorder(audio.Config{
		SampleRate:      float64(cfg.Audio.SampleRate),
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		InputChannels:   1,
	})
	if err := recorder.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer recorder.Terminate()
	if err := recorder.Open(); err != nil {
		return err
	}
	defer recorder.Close()

	playerConfig := sound.GetDefaultConfig()
	playerConfig.SampleRate = float64(cfg.Audio.SampleRate)
	playerConfig.Encoding = sound.Encoding(cfg.Audio.OutputEncoding)
	player := sound.NewPortaudioPlayer(playerConfig, logger)
	if err := player.Open(); err != nil {
		return err
	}
	defer player.Close()

	port, closePort, err := openActuators(cfg.Device)
	if err != nil {
		return err
	}
	defer closePort()

	client, err := assistant.NewClient(ctx, assistant.Config{
		Endpoint:        cfg.Assistant.Endpoint,
		CredentialsJSON: cfg.Assistant.CredentialsJSON,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	// The dispatcher and the camera announce through the controller,
	// which is created after them.
	var controller *engine.Controller
	announcer := actions.AnnouncerFunc(func(text string) { controller.Speak(text) })

	commands, err := cfg.Device.CommandTable()
	if err != nil {
		return err
	}
	coordinator := vision.NewCoordinator(
		vision.ExecCamera{Command: cfg.Device.Camera.Command},
		announcer,
		vision.WithMinConfidence(cfg.Device.Camera.MinConfidence),
		vision.WithMaxAttempts(cfg.Device.Camera.MaxAttempts),
		vision.WithLogger(logger),
	)
	dispatcherOpts := []actions.DispatcherOption{
		actions.WithCommands(commands),
		actions.WithAnnouncer(announcer),
		actions.WithLocationText(cfg.LocationText),
		actions.WithLogger(logger),
	}
	if len(cfg.Device.Camera.Command) > 0 {
		dispatcherOpts = append(dispatcherOpts, actions.WithCaptureRequester(coordinator))
	}
	dispatcher := actions.NewDispatcher(port, dispatcherOpts...)

	opts := []engine.ControllerOption{
		engine.WithDispatcher(dispatcher),
		engine.WithIndicator(dispatcher),
		engine.WithLogger(logger),
	}

	if cfg.Speech.ApiKey != "" {
		synth, err := tts.NewYandexTTSClient(tts.YandexConfig{
			ApiKey:   cfg.Speech.ApiKey,
			FolderID: cfg.Speech.FolderID,
		})
		if err != nil {
			return err
		}
		defer synth.Close()

		options := tts.GetDefaultSynthesisOptions()
		options.Voice = cfg.Speech.Voice
		options.SampleRate = int64(cfg.Audio.SampleRate)
		if playerConfig.Encoding == sound.EncodingMP3 {
			// Synthesized speech is raw PCM, so it needs its own player.
			speechConfig := playerConfig
			speechConfig.Encoding = sound.EncodingLinear16
			speechPlayer := sound.NewPortaudioPlayer(speechConfig, logger)
			if err := speechPlayer.Open(); err != nil {
				return err
			}
			defer speechPlayer.Close()
			opts = append(opts, engine.WithVoice(tts.NewVoice(synth, speechPlayer, options)))
		} else {
			opts = append(opts, engine.WithVoice(tts.NewVoice(synth, player, options)))
		}
	} else {
		logger.Info("YANDEX_API_KEY not set, announcements will only be logged")
	}

	var ui *console.Console
	if consoleMode {
		ui = console.New(logs)
		opts = append(opts, engine.WithHistorySink(ui), engine.WithStateObserver(ui.StateChanged))
	}

	controller = engine.NewController(engine.Config{
		Input: assistant.AudioFormat{
			Encoding:        assistant.EncodingLinear16,
			SampleRateHertz: cfg.Audio.SampleRate,
		},
		Output: assistant.AudioFormat{
			Encoding:        assistant.Encoding(cfg.Audio.OutputEncoding),
			SampleRateHertz: cfg.Audio.SampleRate,
		},
		DeviceID:      cfg.Assistant.DeviceID,
		DeviceModelID: cfg.Assistant.DeviceModelID,
		LanguageCode:  cfg.Assistant.LanguageCode,
	}, client, recorder, player, opts...)

	workers := []worker{
		{"controller", controller.Run},
		{"dispatcher", dispatcher.Run},
		{"camera", coordinator.Run},
	}

	if ui != nil {
		ui.Bind(controller, controller.ResetConversation)
		workers = append(workers, worker{"console", ui.Run})
	} else {
		if cfg.Device.Pins.Button == "" {
			return errors.New("no button pin configured, set pins.button in DEVICE_CONFIG or use --console")
		}
		button, err := trigger.OpenButton(cfg.Device.Pins.Button, trigger.WithLogger(logger))
		if err != nil {
			return err
		}
		workers = append(workers, worker{"button", func(ctx context.Context) error {
			return button.Run(ctx, controller)
		}})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(workers))
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			if err := panicSafe(w.name, w.run)(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- err
			}
		}()
	}

	logger.Info("pushtalk ready", "console", consoleMode, "output", cfg.Audio.OutputEncoding)
	wg.Wait()
	close(errs)
	return errors.Join(collect(errs)...)
}

type worker struct {
	name string
	run  func(context.Context) error
}

func openActuators(device config.DeviceConfig) (actions.ActuatorPort, func(), error) {
	pins := device.ActuatorPins()
	if len(pins) == 0 {
		return actuator.NewMemory(), func() {}, nil
	}
	g, err := actuator.OpenGPIO(pins)
	if err != nil {
		return nil, nil, err
	}
	return g, func() {
		if err := g.CloseAll(); err != nil {
			slog.Warn("failed to release gpio pins", "error", err)
		}
	}, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func panicSafe(name string, run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s worker failed: %w", name, err)
		}
		return nil
	}
}

func collect(errs <-chan error) []error {
	var out []error
	for err := range errs {
		out = append(out, err)
	}
	return out
}
