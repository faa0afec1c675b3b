package processor

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"audiobaked/internal/apperr"
)

// AudioProcessor wraps ffmpeg for the two media operations of a run:
// pulling the audio track out of a video and hardcoding subtitles into it.
type AudioProcessor struct {
	runner     Runner
	logger     *zap.Logger
	ffmpegPath string
}

// NewAudioProcessor creates a new AudioProcessor instance
func NewAudioProcessor(runner Runner, ffmpegPath string, logger *zap.Logger) *AudioProcessor {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &AudioProcessor{
		runner:     runner,
		logger:     logger,
		ffmpegPath: ffmpegPath,
	}
}

// Available checks that the ffmpeg binary can be found.
func (a *AudioProcessor) Available() error {
	if _, err := exec.LookPath(a.ffmpegPath); err != nil {
		return apperr.ExternalTool(a.ffmpegPath, err)
	}
	return nil
}

// Extract writes the audio track of sourcePath to {outputDir}/{base}.mp3 and
// returns that path.
func (a *AudioProcessor) Extract(ctx context.Context, sourcePath, outputDir string) (string, error) {
	audioPath := filepath.Join(outputDir, BaseName(sourcePath)+".mp3")

	a.logger.Info("extracting audio with ffmpeg",
		zap.String("source", sourcePath),
		zap.String("destination", audioPath))

	args := []string{
		"-hide_banner",
		"-i", sourcePath,
		"-q:a", "0",
		"-map", "a",
		audioPath,
		"-y",
	}
	if _, err := a.runner.Run(ctx, a.ffmpegPath, args...); err != nil {
		return "", apperr.ExternalTool(a.ffmpegPath, err).WithDetail("source", sourcePath)
	}

	a.logger.Info("audio saved", zap.String("path", audioPath))
	return audioPath, nil
}

// Burn renders subtitlePath onto sourcePath and writes
// {outputDir}/{base}_subtitled.mp4, returning that path. Audio is copied as is.
func (a *AudioProcessor) Burn(ctx context.Context, sourcePath, subtitlePath, outputDir string) (string, error) {
	outputPath := filepath.Join(outputDir, BaseName(sourcePath)+"_subtitled.mp4")

	a.logger.Info("burning subtitles with ffmpeg",
		zap.String("source", sourcePath),
		zap.String("subtitles", subtitlePath),
		zap.String("destination", outputPath))

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", sourcePath,
		"-vf", "subtitles=" + escapeFilterPath(subtitlePath),
		"-c:a", "copy",
		outputPath,
		"-y",
	}
	if _, err := a.runner.Run(ctx, a.ffmpegPath, args...); err != nil {
		return "", apperr.ExternalTool(a.ffmpegPath, err).WithDetail("source", sourcePath)
	}

	a.logger.Info("subtitled video saved", zap.String("path", outputPath))
	return outputPath, nil
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ffmpeg unescapes a -vf value twice: once when parsing the filtergraph and
// once when parsing the filter's options. A path is escaped for the option
// level first and the result again for the graph level.
var (
	filterOptionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	filterGraphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterPath escapes path for use as a filter option value inside -vf.
func escapeFilterPath(path string) string {
	return filterGraphEscaper.Replace(filterOptionEscaper.Replace(path))
}
