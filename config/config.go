package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Assistant AssistantConfig
	Audio     AudioConfig
	Speech    SpeechConfig
	Device    DeviceConfig

	LocationText string
	LogLevel     string
}

type AssistantConfig struct {
	Endpoint        string
	CredentialsJSON []byte
	DeviceID        string
	DeviceModelID   string
	LanguageCode    string
}

type AudioConfig struct {
	SampleRate      int
	FramesPerBuffer int
	OutputEncoding  string
}

// SpeechConfig configures spoken announcements. An empty ApiKey disables
// them.
type SpeechConfig struct {
	ApiKey   string
	FolderID string
	Voice    string
}

// LoadConfig reads envFile (ignored when missing) and the process
// environment, then the optional device file named by DEVICE_CONFIG.
func LoadConfig(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		Assistant: AssistantConfig{
			Endpoint:      getEnv("ASSISTANT_ENDPOINT", "embeddedassistant.googleapis.com:443"),
			DeviceID:      os.Getenv("DEVICE_ID"),
			DeviceModelID: os.Getenv("DEVICE_MODEL_ID"),
			LanguageCode:  getEnv("LANGUAGE_CODE", "en-US"),
		},
		Speech: SpeechConfig{
			ApiKey:   os.Getenv("YANDEX_API_KEY"),
			FolderID: os.Getenv("YANDEX_FOLDER_ID"),
			Voice:    getEnv("TTS_VOICE", "marina"),
		},
		LocationText: os.Getenv("LOCATION_TEXT"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	credentials := os.Getenv("ASSISTANT_CREDENTIALS")
	if credentials == "" {
		return nil, errors.New("ASSISTANT_CREDENTIALS must point to an OAuth credentials file")
	}
	data, err := os.ReadFile(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to read assistant credentials: %w", err)
	}
	cfg.Assistant.CredentialsJSON = data

	if cfg.Audio.SampleRate, err = getPositiveInt("SAMPLE_RATE", 16000); err != nil {
		return nil, err
	}
	if cfg.Audio.FramesPerBuffer, err = getPositiveInt("FRAMES_PER_BUFFER", 512); err != nil {
		return nil, err
	}

	cfg.Audio.OutputEncoding = strings.ToLower(getEnv("OUTPUT_ENCODING", "linear16"))
	switch cfg.Audio.OutputEncoding {
	case "linear16", "mp3":
	default:
		return nil, fmt.Errorf("OUTPUT_ENCODING must be linear16 or mp3, got %q", cfg.Audio.OutputEncoding)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel)
	}

	if path := os.Getenv("DEVICE_CONFIG"); path != "" {
		device, err := LoadDeviceConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Device = *device
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
