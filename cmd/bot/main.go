package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/vgreer/soundbot/internal/catalog"
	"github.com/vgreer/soundbot/internal/config"
	"github.com/vgreer/soundbot/internal/encoder"
	"github.com/vgreer/soundbot/internal/handler"
	"github.com/vgreer/soundbot/internal/ingest"
	"github.com/vgreer/soundbot/internal/opus"
	"github.com/vgreer/soundbot/internal/registry"
	"github.com/vgreer/soundbot/internal/voice"
)

var voiceManagerKey = registry.NewKey[*voice.Manager]("voice-manager")

// registryPlayer defers the voice manager lookup until playback time.
// The manager does not exist yet when the message handlers are wired:
// it needs an open Discord session to dial with.
type registryPlayer struct {
	registry *registry.Registry
}

func (p *registryPlayer) Play(ctx context.Context, effectName string) error {
	manager, err := registry.Get(p.registry, voiceManagerKey)
	if err != nil {
		return &voice.NotReadyError{Status: voice.StatusIdle}
	}
	return manager.Play(ctx, effectName)
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}

	storageConfig, err := config.NewStorageConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load storage config: %w", err)
	}

	effects, err := catalog.New(storageConfig.EffectsDir)
	if err != nil {
		return fmt.Errorf("failed to open effect catalog: %w", err)
	}

	ffmpeg := encoder.NewFFmpeg(storageConfig.FFmpegPath, storageConfig.FFprobePath)
	pipeline := ingest.NewPipeline(effects, ffmpeg, storageConfig.TempDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	reg := registry.New()
	responder := &handler.SplitResponder{
		Chat:    &handler.DiscordResponder{Session: session},
		Console: &handler.ConsoleResponder{Out: os.Stdout},
	}
	router := handler.NewRouter(&registryPlayer{registry: reg}, effects, responder, cancel)
	session.AddHandler(handler.MakeMessageCreateHandler(router, pipeline, storageConfig.DownloadTimeout))

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	manager := voice.NewManager(
		&voice.DiscordDialer{Session: session},
		&opus.Streamer{FFmpegBin: storageConfig.FFmpegPath},
		effects,
	)
	registry.Set(reg, voiceManagerKey, manager)

	if err := manager.Connect(ctx, discordConfig.GuildID, discordConfig.VoiceChannelID); err != nil {
		// The bot stays up; playback requests report NotReady until a
		// later connect succeeds.
		slog.Error("failed to join voice channel", "channelID", discordConfig.VoiceChannelID, "error", err)
	}

	go func() {
		if err := handler.RunConsole(ctx, router, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("console loop ended", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	select {
	case <-stop:
	case <-ctx.Done():
	}
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
