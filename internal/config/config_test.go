package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "AUDIOBAKED_OPENAI_API_KEY", "HF_TOKEN", "AUDIOBAKED_HF_TOKEN", "OPENAI_SYSTEM_PROMPT", "OPENAI_MODEL", "OPENAI_BASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestNewConfiguration_Defaults(t *testing.T) {
	// Arrange
	cfg := NewConfiguration()

	// Assert
	assert.Equal(t, "output", cfg.GetOutputDir())
	assert.False(t, cfg.GetSegmentsJSON())
	assert.Equal(t, EngineWhisperX, cfg.GetWhisperEngine())
	assert.Equal(t, "medium", cfg.GetWhisperModel())
	assert.Equal(t, "uvx", cfg.GetWhisperCommand())
	assert.Equal(t, "auto", cfg.GetWhisperDevice())
	assert.Equal(t, "float32", cfg.GetWhisperComputeType())
	assert.Equal(t, 8, cfg.GetWhisperBatchSize())
	assert.Empty(t, cfg.GetWhisperLanguage())
	assert.Equal(t, "ffmpeg", cfg.GetFFmpegPath())
	assert.Empty(t, cfg.GetOpenAIAPIKey())
	assert.Equal(t, DefaultSystemPrompt, cfg.GetOpenAISystemPrompt())
	assert.Equal(t, "gpt-4", cfg.GetOpenAIModel())
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.GetOpenAIBaseURL())
	assert.Equal(t, 120, cfg.GetOpenAITimeoutSec())
	assert.Empty(t, cfg.GetHFToken())
	assert.Equal(t, "info", cfg.GetLogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestConfiguration_WhisperCommand(t *testing.T) {
	t.Run("should default to the whisper binary for the openai-whisper engine", func(t *testing.T) {
		cfg := NewConfiguration()
		cfg.Set("whisper.engine", "Whisper")

		assert.Equal(t, EngineWhisper, cfg.GetWhisperEngine())
		assert.Equal(t, "whisper", cfg.GetWhisperCommand())
	})

	t.Run("should prefer an explicit command", func(t *testing.T) {
		cfg := NewConfiguration()
		cfg.Set("whisper.command", "/opt/bin/uvx")

		assert.Equal(t, "/opt/bin/uvx", cfg.GetWhisperCommand())
	})
}

func TestNewConfigurationFromFile(t *testing.T) {
	t.Run("should load values from a yaml file", func(t *testing.T) {
		// Arrange
		clearCredentialEnv(t)
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		configContent := `output:
  dir: "/tmp/transcripts"
  segments_json: true
whisper:
  model: "large-v3"
  device: "cuda"
openai:
  api_key: "sk-file"
  model: "gpt-4o"`

		err := os.WriteFile(configFile, []byte(configContent), 0644)
		require.NoError(t, err)

		// Act
		cfg, err := NewConfigurationFromFile(configFile)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "/tmp/transcripts", cfg.GetOutputDir())
		assert.True(t, cfg.GetSegmentsJSON())
		assert.Equal(t, "large-v3", cfg.GetWhisperModel())
		assert.Equal(t, "cuda", cfg.GetWhisperDevice())
		assert.Equal(t, "sk-file", cfg.GetOpenAIAPIKey())
		assert.Equal(t, "gpt-4o", cfg.GetOpenAIModel())
		assert.Equal(t, "ffmpeg", cfg.GetFFmpegPath(), "unset keys keep defaults")
	})

	t.Run("should load values from a toml file", func(t *testing.T) {
		clearCredentialEnv(t)
		configFile := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(configFile, []byte("[whisper]\nengine = \"whisper\"\nmodel = \"small\"\n"), 0644))

		cfg, err := NewConfigurationFromFile(configFile)

		require.NoError(t, err)
		assert.Equal(t, EngineWhisper, cfg.GetWhisperEngine())
		assert.Equal(t, "small", cfg.GetWhisperModel())
	})

	t.Run("should let environment override file values", func(t *testing.T) {
		// Arrange
		clearCredentialEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-env")
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("openai:\n  api_key: \"sk-file\"\n"), 0644))

		// Act
		cfg, err := NewConfigurationFromFile(configFile)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "sk-env", cfg.GetOpenAIAPIKey())
	})

	t.Run("should return error for non-existent config file", func(t *testing.T) {
		cfg, err := NewConfigurationFromFile(filepath.Join(t.TempDir(), "missing.yaml"))

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("should return error for invalid config file format", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("whisper:\n  model: [unclosed_bracket"), 0644))

		cfg, err := NewConfigurationFromFile(configFile)

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}

func TestNewConfigurationFromEnv(t *testing.T) {
	t.Run("should read well-known credential variables", func(t *testing.T) {
		// Arrange
		clearCredentialEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("OPENAI_SYSTEM_PROMPT", "Summarize briefly.")
		t.Setenv("HF_TOKEN", "hf_test")

		// Act
		cfg, err := NewConfigurationFromEnv()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.GetOpenAIAPIKey())
		assert.Equal(t, "Summarize briefly.", cfg.GetOpenAISystemPrompt())
		assert.Equal(t, "hf_test", cfg.GetHFToken())
	})

	t.Run("should read prefixed variables for any key", func(t *testing.T) {
		clearCredentialEnv(t)
		t.Setenv("AUDIOBAKED_WHISPER_MODEL", "tiny")
		t.Setenv("AUDIOBAKED_OUTPUT_DIR", "/srv/out")

		cfg, err := NewConfigurationFromEnv()

		require.NoError(t, err)
		assert.Equal(t, "tiny", cfg.GetWhisperModel())
		assert.Equal(t, "/srv/out", cfg.GetOutputDir())
	})

	t.Run("should treat empty credentials as absent", func(t *testing.T) {
		clearCredentialEnv(t)

		cfg, err := NewConfigurationFromEnv()

		require.NoError(t, err)
		assert.Empty(t, cfg.GetOpenAIAPIKey())
		assert.Empty(t, cfg.GetHFToken())
		assert.Equal(t, DefaultSystemPrompt, cfg.GetOpenAISystemPrompt())
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("should populate unset variables", func(t *testing.T) {
		// Arrange
		t.Setenv("AUDIOBAKED_DOTENV_PROBE", "")
		os.Unsetenv("AUDIOBAKED_DOTENV_PROBE")
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("AUDIOBAKED_DOTENV_PROBE=from-file\n"), 0644))

		// Act
		err := LoadDotEnv(envFile)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "from-file", os.Getenv("AUDIOBAKED_DOTENV_PROBE"))
	})
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		value         any
		expectedError string
	}{
		{name: "unknown engine", key: "whisper.engine", value: "kaldi", expectedError: "whisper.engine"},
		{name: "unknown device", key: "whisper.device", value: "tpu", expectedError: "whisper.device"},
		{name: "empty output dir", key: "output.dir", value: " ", expectedError: "output.dir"},
		{name: "non-positive timeout", key: "openai.timeout_sec", value: 0, expectedError: "openai.timeout_sec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfiguration()
			cfg.Set(tt.key, tt.value)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}
