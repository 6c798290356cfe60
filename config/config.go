package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "ffkit-console"

// Settings holds the console configuration.
type Settings struct {
	FFmpeg  FFmpegSettings  `mapstructure:"ffmpeg"`
	Dirs    DirSettings     `mapstructure:"dirs"`
	History HistorySettings `mapstructure:"history"`
	Log     LogSettings     `mapstructure:"log"`
	UI      UISettings      `mapstructure:"ui"`
}

// FFmpegSettings configures the execution engine.
type FFmpegSettings struct {
	Path             string `mapstructure:"path"`
	ProbePath        string `mapstructure:"probe_path"`
	AsyncConcurrency int    `mapstructure:"async_concurrency"`
	SessionHistory   int    `mapstructure:"session_history"`
}

// DirSettings holds the working directories. Generated videos and audio go
// to Files, intermediate images and transform files to Cache.
type DirSettings struct {
	Files string `mapstructure:"files"`
	Cache string `mapstructure:"cache"`
}

// HistorySettings holds the session history database location.
// An empty path disables persistence.
type HistorySettings struct {
	Path string `mapstructure:"path"`
}

// LogSettings configures the debug log file.
type LogSettings struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// UISettings holds presentation preferences.
type UISettings struct {
	Tab        string `mapstructure:"tab"`
	AudioCodec string `mapstructure:"audio_codec"`
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", appName)
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// Path returns the config file location: $FFKIT_CONFIG or
// ~/.config/ffkit-console/config.toml.
func Path() string {
	if p := os.Getenv("FFKIT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", appName, "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("ffmpeg.probe_path", "ffprobe")
	v.SetDefault("ffmpeg.async_concurrency", 10)
	v.SetDefault("ffmpeg.session_history", 10)
	v.SetDefault("dirs.files", filepath.Join(dataDir(), "files"))
	v.SetDefault("dirs.cache", cacheDir())
	v.SetDefault("history.path", filepath.Join(dataDir(), "history.db"))
	v.SetDefault("log.file", filepath.Join(dataDir(), "ffkit.log"))
	v.SetDefault("log.level", "debug")
	v.SetDefault("ui.tab", "concurrent")
	v.SetDefault("ui.audio_codec", AvailableAudioCodecs()[0].Key)
}

// Defaults returns the settings used when no file or env override exists.
func Defaults() Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	// Defaults always decode.
	_ = v.Unmarshal(&s)
	return s
}

// Load reads configuration from file and env. Env var overrides use prefix FFKIT_.
// A missing config file is not an error.
func Load() (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("FFKIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("read config %s: %w", Path(), err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	if s.FFmpeg.AsyncConcurrency < 1 {
		return fmt.Errorf("ffmpeg.async_concurrency must be at least 1, got %d", s.FFmpeg.AsyncConcurrency)
	}
	if s.FFmpeg.SessionHistory < 1 {
		return fmt.Errorf("ffmpeg.session_history must be at least 1, got %d", s.FFmpeg.SessionHistory)
	}
	if s.Dirs.Files == "" || s.Dirs.Cache == "" {
		return errors.New("dirs.files and dirs.cache must be set")
	}
	if s.UI.AudioCodec != "" {
		if _, err := LookupAudioCodec(s.UI.AudioCodec); err != nil {
			return fmt.Errorf("ui.audio_codec: %w", err)
		}
	}
	return nil
}

// Save writes the provided settings to Path(), creating the config directory if needed.
func Save(s Settings) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("ffmpeg.path", s.FFmpeg.Path)
	v.Set("ffmpeg.probe_path", s.FFmpeg.ProbePath)
	v.Set("ffmpeg.async_concurrency", s.FFmpeg.AsyncConcurrency)
	v.Set("ffmpeg.session_history", s.FFmpeg.SessionHistory)
	v.Set("dirs.files", s.Dirs.Files)
	v.Set("dirs.cache", s.Dirs.Cache)
	v.Set("history.path", s.History.Path)
	v.Set("log.file", s.Log.File)
	v.Set("log.level", s.Log.Level)
	v.Set("ui.tab", s.UI.Tab)
	v.Set("ui.audio_codec", s.UI.AudioCodec)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
