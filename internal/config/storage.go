package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type StorageConfig struct {
	// EffectsDir is the canonical store: one finalized audio file per effect.
	EffectsDir string `env:"SOUNDBOT_EFFECTS_DIR, default=effects-normalized"`

	// TempDir holds in-flight uploads. Empty means the OS temp directory.
	TempDir string `env:"SOUNDBOT_TEMP_DIR"`

	DownloadTimeout time.Duration `env:"SOUNDBOT_DOWNLOAD_TIMEOUT, default=12s"`

	FFmpegPath  string `env:"SOUNDBOT_FFMPEG_PATH, default=ffmpeg"`
	FFprobePath string `env:"SOUNDBOT_FFPROBE_PATH, default=ffprobe"`
}

func NewStorageConfigFromEnv() (*StorageConfig, error) {
	var cfg StorageConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
