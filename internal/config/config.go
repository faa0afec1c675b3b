package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSystemPrompt is sent to the summarizer when none is configured.
const DefaultSystemPrompt = "You are a helpful assistant. Analyze the following transcript."

// Speech engines understood by the transcriber.
const (
	EngineWhisperX = "whisperx"
	EngineWhisper  = "whisper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.segments_json", false)
	v.SetDefault("whisper.engine", EngineWhisperX)
	v.SetDefault("whisper.model", "medium")
	v.SetDefault("whisper.command", "")
	v.SetDefault("whisper.device", "auto")
	v.SetDefault("whisper.compute_type", "float32")
	v.SetDefault("whisper.batch_size", 8)
	v.SetDefault("whisper.language", "")
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.system_prompt", DefaultSystemPrompt)
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("openai.timeout_sec", 120)
	v.SetDefault("hf.token", "")
	v.SetDefault("log.level", "info")
	return v
}

// bindEnv maps the well-known credential variables in addition to the
// AUDIOBAKED_ prefixed form of every key.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("AUDIOBAKED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("openai.api_key", "AUDIOBAKED_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("openai.system_prompt", "AUDIOBAKED_OPENAI_SYSTEM_PROMPT", "OPENAI_SYSTEM_PROMPT")
	v.BindEnv("openai.base_url", "AUDIOBAKED_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	v.BindEnv("openai.model", "AUDIOBAKED_OPENAI_MODEL", "OPENAI_MODEL")
	v.BindEnv("hf.token", "AUDIOBAKED_HF_TOKEN", "HF_TOKEN")
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env") into
// the process environment. Missing files are ignored; variables that are
// already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	return &Configuration{viper: newViper()}
}

// NewConfigurationFromFile creates a Configuration instance from a config file.
// Environment variables still override file values.
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	bindEnv(v)

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := newViper()
	bindEnv(v)
	return &Configuration{viper: v}, nil
}

// Set overrides a single key, used to apply command line flags.
func (c *Configuration) Set(key string, value any) {
	c.viper.Set(key, value)
}

// Validate checks enumerated settings.
func (c *Configuration) Validate() error {
	switch c.GetWhisperEngine() {
	case EngineWhisperX, EngineWhisper:
	default:
		return fmt.Errorf("whisper.engine must be %q or %q, got %q", EngineWhisperX, EngineWhisper, c.GetWhisperEngine())
	}
	switch c.GetWhisperDevice() {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("whisper.device must be auto, cpu or cuda, got %q", c.GetWhisperDevice())
	}
	if c.GetOutputDir() == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}
	if c.GetOpenAITimeoutSec() <= 0 {
		return fmt.Errorf("openai.timeout_sec must be positive")
	}
	return nil
}

// GetOutputDir returns the root directory for execution folders
func (c *Configuration) GetOutputDir() string {
	return strings.TrimSpace(c.viper.GetString("output.dir"))
}

// GetSegmentsJSON reports whether a JSON lines segment dump is written
func (c *Configuration) GetSegmentsJSON() bool {
	return c.viper.GetBool("output.segments_json")
}

// GetWhisperEngine returns the speech engine name
func (c *Configuration) GetWhisperEngine() string {
	return strings.ToLower(strings.TrimSpace(c.viper.GetString("whisper.engine")))
}

// GetWhisperModel returns the configured model size
func (c *Configuration) GetWhisperModel() string {
	return strings.TrimSpace(c.viper.GetString("whisper.model"))
}

// GetWhisperCommand returns the executable used to run the speech engine.
// Defaults to uvx for whisperx and whisper for openai-whisper.
func (c *Configuration) GetWhisperCommand() string {
	if cmd := strings.TrimSpace(c.viper.GetString("whisper.command")); cmd != "" {
		return cmd
	}
	if c.GetWhisperEngine() == EngineWhisper {
		return "whisper"
	}
	return "uvx"
}

// GetWhisperDevice returns auto, cpu or cuda
func (c *Configuration) GetWhisperDevice() string {
	return strings.ToLower(strings.TrimSpace(c.viper.GetString("whisper.device")))
}

// GetWhisperComputeType returns the CPU compute type passed to whisperx
func (c *Configuration) GetWhisperComputeType() string {
	return c.viper.GetString("whisper.compute_type")
}

// GetWhisperBatchSize returns the inference batch size
func (c *Configuration) GetWhisperBatchSize() int {
	return c.viper.GetInt("whisper.batch_size")
}

// GetWhisperLanguage returns the forced language code, or "" for auto-detection
func (c *Configuration) GetWhisperLanguage() string {
	return strings.TrimSpace(c.viper.GetString("whisper.language"))
}

// GetFFmpegPath returns the ffmpeg binary path
func (c *Configuration) GetFFmpegPath() string {
	return c.viper.GetString("ffmpeg.path")
}

// GetOpenAIAPIKey returns the chat-completion API key, or "" when unset
func (c *Configuration) GetOpenAIAPIKey() string {
	return strings.TrimSpace(c.viper.GetString("openai.api_key"))
}

// GetOpenAISystemPrompt returns the system prompt sent with every analysis
func (c *Configuration) GetOpenAISystemPrompt() string {
	return c.viper.GetString("openai.system_prompt")
}

// GetOpenAIModel returns the chat-completion model name
func (c *Configuration) GetOpenAIModel() string {
	return c.viper.GetString("openai.model")
}

// GetOpenAIBaseURL returns the chat-completion endpoint
func (c *Configuration) GetOpenAIBaseURL() string {
	return c.viper.GetString("openai.base_url")
}

// GetOpenAITimeoutSec returns the HTTP timeout for the analysis request
func (c *Configuration) GetOpenAITimeoutSec() int {
	return c.viper.GetInt("openai.timeout_sec")
}

// GetHFToken returns the Hugging Face token required for diarization
func (c *Configuration) GetHFToken() string {
	return strings.TrimSpace(c.viper.GetString("hf.token"))
}

// GetLogLevel returns the configured log level
func (c *Configuration) GetLogLevel() string {
	return c.viper.GetString("log.level")
}
