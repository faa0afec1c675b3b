package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"audiobaked/internal/config"
	"audiobaked/internal/gpu"
	"audiobaked/internal/processor"
	"audiobaked/internal/summarizer"
	"audiobaked/internal/transcriber"
)

// runnerEnv is added to every external command. Torch 2.6 changed the
// torch.load default to weights_only, which breaks whisperx/pyannote checkpoints.
var runnerEnv = []string{"TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1"}

// Application wires configuration to the concrete collaborators of a pipeline
type Application struct {
	config         *config.Configuration
	zapLogger      *zap.Logger
	audioProcessor *processor.AudioProcessor
	whisperModel   *transcriber.WhisperModel
	summarizer     *summarizer.Client
	gpuDetector    *gpu.GPUDetector
	pipeline       *Pipeline
}

// LoadConfiguration reads configuration from path, from CONFIG_PATH when path
// is empty, and from the environment alone when neither is set. A .env file in
// the working directory is loaded first.
func LoadConfiguration(path string) (*config.Configuration, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg *config.Configuration
	var err error
	if path != "" {
		cfg, err = config.NewConfigurationFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewApplication creates a new application instance with all components initialized
func NewApplication(cfg *config.Configuration, zapLogger *zap.Logger) *Application {
	runner := processor.NewExecRunner(zapLogger, runnerEnv...)
	detector := gpu.NewGPUDetector(zapLogger)

	audioProcessor := processor.NewAudioProcessor(runner, cfg.GetFFmpegPath(), zapLogger)
	whisperModel := transcriber.NewWhisperModel(runner, transcriber.SettingsFromConfig(cfg), detector, zapLogger)
	client := summarizer.NewClient(summarizer.ConfigFromConfiguration(cfg), zapLogger)

	return &Application{
		config:         cfg,
		zapLogger:      zapLogger,
		audioProcessor: audioProcessor,
		whisperModel:   whisperModel,
		summarizer:     client,
		gpuDetector:    detector,
		pipeline:       NewPipeline(audioProcessor, audioProcessor, whisperModel, client, zapLogger),
	}
}

// DefaultOptions returns run options seeded from configuration. Callers set
// InputPath and the feature flags.
func (app *Application) DefaultOptions() Options {
	return Options{
		OutputDir:    app.config.GetOutputDir(),
		ModelSize:    app.config.GetWhisperModel(),
		Language:     app.config.GetWhisperLanguage(),
		SystemPrompt: app.config.GetOpenAISystemPrompt(),
		SegmentsJSON: app.config.GetSegmentsJSON(),
	}
}

// Run processes one media file.
func (app *Application) Run(ctx context.Context, opts Options) (*RunResult, error) {
	app.zapLogger.Info("starting audiobaked run",
		zap.String("component", "application"),
		zap.String("input", opts.InputPath),
		zap.String("engine", app.config.GetWhisperEngine()))
	return app.pipeline.Run(ctx, opts)
}

// AnalyzeTranscript summarizes an existing transcript file.
func (app *Application) AnalyzeTranscript(ctx context.Context, transcriptPath string) (AnalysisResult, error) {
	return app.pipeline.AnalyzeTranscript(ctx, transcriptPath, app.config.GetOpenAISystemPrompt())
}

// DependencyStatus reports whether one external dependency is usable.
type DependencyStatus struct {
	Name   string
	Detail string
	Err    error
}

// CheckDependencies probes the external tools and credentials a run may need.
func (app *Application) CheckDependencies() []DependencyStatus {
	statuses := []DependencyStatus{
		{Name: "ffmpeg", Detail: app.config.GetFFmpegPath(), Err: app.audioProcessor.Available()},
		{Name: "speech engine", Detail: app.whisperModel.DescribeCommand(), Err: app.whisperModel.Available()},
	}

	info := app.gpuDetector.DetectGPU()
	device := app.gpuDetector.ResolveDevice(app.config.GetWhisperDevice())
	gpuDetail := "none detected"
	if info.Available {
		gpuDetail = fmt.Sprintf("%s x%d (driver %s)", info.DeviceName, info.DeviceCount, info.DriverVersion)
	}
	statuses = append(statuses, DependencyStatus{Name: "device", Detail: device + ", " + gpuDetail})

	var keyErr error
	if !app.summarizer.Configured() {
		keyErr = fmt.Errorf("OPENAI_API_KEY not set, analysis will be skipped")
	}
	statuses = append(statuses, DependencyStatus{Name: "analysis", Detail: app.config.GetOpenAIModel(), Err: keyErr})

	var hfErr error
	if app.config.GetHFToken() == "" {
		hfErr = fmt.Errorf("HF_TOKEN not set, --diarize unavailable")
	}
	statuses = append(statuses, DependencyStatus{Name: "diarization", Detail: "pyannote via whisperx", Err: hfErr})
	return statuses
}
