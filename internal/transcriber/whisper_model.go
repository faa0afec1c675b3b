// Package transcriber runs a Whisper speech model as an external command and
// converts its JSON output into raw transcript segments.
package transcriber

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiobaked/internal/apperr"
	"audiobaked/internal/config"
	"audiobaked/internal/gpu"
	"audiobaked/internal/processor"
	"audiobaked/internal/transcript"
)

// Request selects the optional stages of one transcription.
type Request struct {
	// ModelSize overrides the configured model when set.
	ModelSize string
	// Language forces a language code; empty means auto-detect.
	Language string
	Align    bool
	Diarize  bool
}

// Result is the outcome of one transcription.
type Result struct {
	Language    string
	Segments    []transcript.RawSegment
	Aligned     bool
	Diarization transcript.Diarization
	Elapsed     time.Duration
}

// SpeechModel turns an audio file into raw transcript segments.
type SpeechModel interface {
	Preflight(req Request) error
	Transcribe(ctx context.Context, audioPath string, req Request) (Result, error)
}

// DeviceResolver maps a configured device ("auto", "cpu", "cuda") to a concrete one.
type DeviceResolver interface {
	ResolveDevice(configured string) string
}

// Settings holds the engine options that do not change between requests.
type Settings struct {
	Engine      string
	Command     string
	Model       string
	Device      string
	ComputeType string
	BatchSize   int
	Language    string
	HFToken     string
}

// SettingsFromConfig reads the speech model settings from cfg.
func SettingsFromConfig(cfg *config.Configuration) Settings {
	return Settings{
		Engine:      cfg.GetWhisperEngine(),
		Command:     cfg.GetWhisperCommand(),
		Model:       cfg.GetWhisperModel(),
		Device:      cfg.GetWhisperDevice(),
		ComputeType: cfg.GetWhisperComputeType(),
		BatchSize:   cfg.GetWhisperBatchSize(),
		Language:    cfg.GetWhisperLanguage(),
		HFToken:     cfg.GetHFToken(),
	}
}

// WhisperModel implements SpeechModel on top of the whisperx or openai-whisper CLI
type WhisperModel struct {
	runner   processor.Runner
	settings Settings
	devices  DeviceResolver
	logger   *zap.Logger
	tempDir  string
}

// NewWhisperModel creates a speech model that runs through runner
func NewWhisperModel(runner processor.Runner, settings Settings, devices DeviceResolver, logger *zap.Logger) *WhisperModel {
	if settings.Engine == "" {
		settings.Engine = config.EngineWhisperX
	}
	if settings.Command == "" {
		settings.Command = "uvx"
		if settings.Engine == config.EngineWhisper {
			settings.Command = "whisper"
		}
	}
	if devices == nil {
		devices = gpu.NewGPUDetector(logger)
	}
	return &WhisperModel{
		runner:   runner,
		settings: settings,
		devices:  devices,
		logger:   logger.With(zap.String("component", "transcriber")),
	}
}

// Preflight rejects requests that cannot succeed, before any work starts.
func (w *WhisperModel) Preflight(req Request) error {
	if err := ValidateModel(w.modelFor(req)); err != nil {
		return err
	}
	if req.Diarize && w.settings.HFToken == "" {
		return apperr.Configuration("speaker diarization requires a Hugging Face token; " +
			"set HF_TOKEN (or hf.token in the config file) and accept the pyannote model terms, or drop --diarize")
	}
	if w.settings.Engine == config.EngineWhisper && (req.Align || req.Diarize) {
		return apperr.Configuration("word alignment and diarization need whisper.engine=%s; the %s engine supports neither",
			config.EngineWhisperX, config.EngineWhisper)
	}
	return nil
}

// Transcribe runs the engine on audioPath. The engine's JSON output goes to a
// scratch directory that is removed before returning.
func (w *WhisperModel) Transcribe(ctx context.Context, audioPath string, req Request) (Result, error) {
	if err := w.Preflight(req); err != nil {
		return Result{}, err
	}

	scratch, err := os.MkdirTemp(w.tempDir, "audiobaked-whisper-*")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	device := w.devices.ResolveDevice(w.settings.Device)
	args := w.buildArgs(audioPath, scratch, device, req)

	w.logger.Info("transcribing audio",
		zap.String("engine", w.settings.Engine),
		zap.String("model", w.modelFor(req)),
		zap.String("model_download", ModelSize(w.modelFor(req))),
		zap.String("device", device),
		zap.Bool("align", req.Align),
		zap.Bool("diarize", req.Diarize),
		zap.String("audio", audioPath))

	start := time.Now()
	if _, err := w.runner.Run(ctx, w.settings.Command, args...); err != nil {
		return Result{}, apperr.ExternalTool(w.commandName(), err).
			WithDetail("model", w.modelFor(req)).
			WithDetail("audio", audioPath)
	}
	elapsed := time.Since(start)

	jsonPath := filepath.Join(scratch, processor.BaseName(audioPath)+".json")
	payload, err := loadPayload(jsonPath)
	if err != nil {
		return Result{}, apperr.ExternalTool(w.commandName(), err)
	}

	result, err := payload.toResult(req)
	if err != nil {
		return Result{}, apperr.ExternalTool(w.commandName(), err)
	}
	result.Elapsed = elapsed

	w.logger.Info("transcription completed",
		zap.String("language", result.Language),
		zap.Int("segments", len(result.Segments)),
		zap.Int("speakers_resolved", result.Diarization.Resolved()),
		zap.Duration("elapsed", elapsed))

	return result, nil
}

// modelFor is the normalized model name passed to the engine.
func (w *WhisperModel) modelFor(req Request) string {
	if req.ModelSize != "" {
		return NormalizeModelName(req.ModelSize)
	}
	return NormalizeModelName(w.settings.Model)
}

func (w *WhisperModel) languageFor(req Request) string {
	if req.Language != "" {
		return req.Language
	}
	return w.settings.Language
}

// commandName identifies the failing program in errors, e.g. "uvx whisperx".
func (w *WhisperModel) commandName() string {
	if w.runsThroughUVX() {
		return w.settings.Command + " whisperx"
	}
	return w.settings.Command
}

func (w *WhisperModel) runsThroughUVX() bool {
	return w.settings.Engine == config.EngineWhisperX && filepath.Base(w.settings.Command) == "uvx"
}

func (w *WhisperModel) buildArgs(audioPath, outputDir, device string, req Request) []string {
	if w.settings.Engine == config.EngineWhisper {
		return w.buildWhisperArgs(audioPath, outputDir, device, req)
	}
	return w.buildWhisperXArgs(audioPath, outputDir, device, req)
}

// buildWhisperXArgs constructs the whisperx command line.
func (w *WhisperModel) buildWhisperXArgs(audioPath, outputDir, device string, req Request) []string {
	args := make([]string, 0, 24)
	if w.runsThroughUVX() {
		args = append(args, "whisperx")
	}
	args = append(args,
		audioPath,
		"--model", w.modelFor(req),
		"--output_dir", outputDir,
		"--output_format", "json",
		"--device", device,
	)
	if device == gpu.DeviceCPU && w.settings.ComputeType != "" {
		args = append(args, "--compute_type", w.settings.ComputeType)
	}
	if w.settings.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(w.settings.BatchSize))
	}
	if lang := w.languageFor(req); lang != "" {
		args = append(args, "--language", lang)
	}
	if !req.Align {
		args = append(args, "--no_align")
	}
	if req.Diarize {
		args = append(args, "--diarize", "--hf_token", w.settings.HFToken)
	}
	return args
}

// buildWhisperArgs constructs the openai-whisper command line.
func (w *WhisperModel) buildWhisperArgs(audioPath, outputDir, device string, req Request) []string {
	args := []string{
		audioPath,
		"--model", w.modelFor(req),
		"--output_dir", outputDir,
		"--output_format", "json",
		"--device", device,
	}
	if device == gpu.DeviceCPU {
		args = append(args, "--fp16", "False")
	}
	if lang := w.languageFor(req); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// Available checks that the engine command can be found.
func (w *WhisperModel) Available() error {
	if _, err := exec.LookPath(w.settings.Command); err != nil {
		return apperr.ExternalTool(w.commandName(), err)
	}
	return nil
}

// DescribeCommand returns the executable and leading arguments, for display.
func (w *WhisperModel) DescribeCommand() string {
	return strings.TrimSpace(w.commandName())
}
