package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"audiobaked/internal/apperr"
	"audiobaked/internal/config"
)

func TestLoadConfiguration(t *testing.T) {
	t.Run("should read the file named by CONFIG_PATH", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: /srv/out\nwhisper:\n  model: small\n"), 0o644))
		t.Setenv("CONFIG_PATH", path)

		// Act
		cfg, err := LoadConfiguration("")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "/srv/out", cfg.GetOutputDir())
		assert.Equal(t, "small", cfg.GetWhisperModel())
	})

	t.Run("should fall back to the environment", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", "")
		t.Setenv("OPENAI_API_KEY", "sk-env")

		cfg, err := LoadConfiguration("")

		require.NoError(t, err)
		assert.Equal(t, "sk-env", cfg.GetOpenAIAPIKey())
		assert.Equal(t, "output", cfg.GetOutputDir())
	})

	t.Run("should reject invalid settings", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", "")
		t.Setenv("AUDIOBAKED_WHISPER_ENGINE", "kaldi")

		_, err := LoadConfiguration("")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("should report a missing file", func(t *testing.T) {
		_, err := LoadConfiguration(filepath.Join(t.TempDir(), "absent.yaml"))

		assert.Error(t, err)
	})
}

func TestApplication_DefaultOptions(t *testing.T) {
	cfg := config.NewConfiguration()
	cfg.Set("output.dir", "/data/runs")
	cfg.Set("output.segments_json", true)
	cfg.Set("whisper.language", "es")
	application := NewApplication(cfg, zaptest.NewLogger(t))

	opts := application.DefaultOptions()

	assert.Equal(t, "/data/runs", opts.OutputDir)
	assert.Equal(t, "medium", opts.ModelSize)
	assert.Equal(t, "es", opts.Language)
	assert.Equal(t, config.DefaultSystemPrompt, opts.SystemPrompt)
	assert.True(t, opts.SegmentsJSON)
}

func TestApplication_Run(t *testing.T) {
	t.Run("should fail preflight for an unknown model without running tools", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "clip.mp4")
		require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))
		application := NewApplication(config.NewConfiguration(), zaptest.NewLogger(t))
		opts := application.DefaultOptions()
		opts.InputPath = input
		opts.OutputDir = filepath.Join(dir, "out")
		opts.ModelSize = "colossal"

		res, err := application.Run(context.Background(), opts)

		assert.True(t, apperr.IsCode(err, apperr.CodeConfiguration))
		assert.Equal(t, StageFailed, res.State)
	})

	t.Run("should require a token for diarization", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "clip.mp4")
		require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))
		application := NewApplication(config.NewConfiguration(), zaptest.NewLogger(t))
		opts := application.DefaultOptions()
		opts.InputPath = input
		opts.OutputDir = filepath.Join(dir, "out")
		opts.Diarize = true

		_, err := application.Run(context.Background(), opts)

		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeConfiguration))
		assert.Contains(t, err.Error(), "HF_TOKEN")
	})
}

func TestApplication_CheckDependencies(t *testing.T) {
	cfg := config.NewConfiguration()
	cfg.Set("ffmpeg.path", "definitely-not-ffmpeg")
	application := NewApplication(cfg, zaptest.NewLogger(t))

	statuses := application.CheckDependencies()

	require.Len(t, statuses, 5)
	assert.Equal(t, "ffmpeg", statuses[0].Name)
	assert.Error(t, statuses[0].Err)
	assert.Equal(t, "uvx whisperx", statuses[1].Detail)
	assert.Error(t, statuses[3].Err, "no API key configured")
	assert.Error(t, statuses[4].Err, "no HF token configured")
}
