package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"audiobaked/internal/apperr"
	"audiobaked/internal/performance"
	"audiobaked/internal/processor"
	"audiobaked/internal/summarizer"
	"audiobaked/internal/transcriber"
	"audiobaked/internal/transcript"
)

// Stage is a step of a pipeline run.
type Stage string

const (
	StageInit       Stage = "init"
	StageExtract    Stage = "extract"
	StageTranscribe Stage = "transcribe"
	StageMerge      Stage = "merge"
	StageWrite      Stage = "write"
	StageBurn       Stage = "burn"
	StageAnalyze    Stage = "analyze"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// AudioExtractor pulls the audio track out of a media file.
type AudioExtractor interface {
	Extract(ctx context.Context, sourcePath, outputDir string) (string, error)
}

// SubtitleBurner renders a subtitle file onto a video.
type SubtitleBurner interface {
	Burn(ctx context.Context, sourcePath, subtitlePath, outputDir string) (string, error)
}

// Options are the per-run choices.
type Options struct {
	InputPath    string
	OutputDir    string
	ExtractAudio bool
	Burn         bool
	ExportOnly   bool
	Analyze      bool
	Align        bool
	Diarize      bool
	ModelSize    string
	Language     string
	SystemPrompt string
	SegmentsJSON bool
}

func (o Options) request() transcriber.Request {
	return transcriber.Request{
		ModelSize: o.ModelSize,
		Language:  o.Language,
		Align:     o.Align,
		Diarize:   o.Diarize,
	}
}

// Artifacts are the files a run wrote. Empty fields were not produced.
type Artifacts struct {
	ExecutionDir string
	Audio        string
	Subtitles    string
	Transcript   string
	SegmentsJSON string
	Video        string
	Analysis     string
}

// RunResult reports how far a run got and what it left behind. Artifacts
// written before a failure are kept on disk and listed here.
type RunResult struct {
	RunID     string
	State     Stage
	Completed []Stage
	Skipped   []Stage
	Artifacts Artifacts
	Language  string
	Segments  int
	Analysis  string
	Timings   []performance.StageRecord
	Summary   string
	Err       error
}

// errStageSkipped is returned by a stage that chose not to run, e.g. analysis
// without a credential. The run continues.
var errStageSkipped = errors.New("stage skipped")

// stageStep is one row of the stage table.
type stageStep struct {
	stage   Stage
	enabled func(Options) bool
	run     func(p *Pipeline, ctx context.Context, rs *runState) error
}

func always(Options) bool { return true }

// stageTable is the fixed stage order. A stage runs when its predicate
// holds; stages are never reordered or repeated.
var stageTable = []stageStep{
	{StageExtract, func(o Options) bool { return o.ExtractAudio }, (*Pipeline).extract},
	{StageTranscribe, always, (*Pipeline).transcribe},
	{StageMerge, always, (*Pipeline).merge},
	{StageWrite, always, (*Pipeline).write},
	{StageBurn, func(o Options) bool { return o.Burn && !o.ExtractAudio && !o.ExportOnly }, (*Pipeline).burn},
	{StageAnalyze, func(o Options) bool { return o.Analyze }, (*Pipeline).analyze},
}

// PlannedStages returns the stages a run with opts would execute, in order.
func PlannedStages(opts Options) []Stage {
	var stages []Stage
	for _, step := range stageTable {
		if step.enabled(opts) {
			stages = append(stages, step.stage)
		}
	}
	return stages
}

// runState carries intermediate values between the stages of one run.
type runState struct {
	opts       Options
	logger     *zap.Logger
	monitor    *performance.PerformanceMonitor
	execDir    string
	sourcePath string
	result     transcriber.Result
	segments   []transcript.AnnotatedSegment
	output     transcript.Output
	res        *RunResult
}

// Pipeline runs one media file through extraction, transcription, writing,
// burning and analysis. It holds no state between runs.
type Pipeline struct {
	extractor  AudioExtractor
	burner     SubtitleBurner
	speech     transcriber.SpeechModel
	summarizer summarizer.Summarizer
	logger     *zap.Logger
}

// NewPipeline creates a pipeline over the given collaborators
func NewPipeline(extractor AudioExtractor, burner SubtitleBurner, speech transcriber.SpeechModel, summ summarizer.Summarizer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		burner:     burner,
		speech:     speech,
		summarizer: summ,
		logger:     logger.With(zap.String("component", "pipeline")),
	}
}

// Preflight validates the input file and the requested features before any
// stage starts.
func (p *Pipeline) Preflight(opts Options) error {
	if opts.InputPath == "" {
		return apperr.Input("an input file is required")
	}
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.Input("input file not found: %s", opts.InputPath)
		}
		return apperr.Input("cannot read input file %s: %v", opts.InputPath, err)
	}
	if info.IsDir() {
		return apperr.Input("input path is a directory: %s", opts.InputPath)
	}
	if opts.OutputDir == "" {
		return apperr.Configuration("output directory cannot be empty; pass --output-dir or set output.dir")
	}
	return p.speech.Preflight(opts.request())
}

// Run executes the stages enabled by opts. The returned result is never nil;
// on failure its State is StageFailed and Err matches the returned error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), State: StageInit}
	logger := p.logger.With(zap.String("run_id", res.RunID))
	monitor := performance.NewPerformanceMonitor(logger)

	fail := func(err error) (*RunResult, error) {
		res.State = StageFailed
		res.Err = err
		res.Timings = monitor.Records()
		res.Summary = monitor.GetPerformanceSummary()
		logger.Error("run failed",
			zap.String("code", string(apperr.CodeOf(err))),
			zap.Strings("completed", stageNames(res.Completed)),
			zap.Error(err))
		return res, err
	}

	if err := p.Preflight(opts); err != nil {
		return fail(err)
	}

	rs := &runState{
		opts:       opts,
		logger:     logger,
		monitor:    monitor,
		execDir:    filepath.Join(opts.OutputDir, processor.BaseName(opts.InputPath)),
		sourcePath: opts.InputPath,
		res:        res,
	}
	if err := os.MkdirAll(rs.execDir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create execution directory %s: %w", rs.execDir, err))
	}
	res.Artifacts.ExecutionDir = rs.execDir

	logger.Info("starting run",
		zap.String("input", opts.InputPath),
		zap.String("execution_dir", rs.execDir),
		zap.Strings("stages", stageNames(PlannedStages(opts))))
	p.announceSuppressed(logger, opts)

	for _, step := range stageTable {
		if !step.enabled(opts) {
			res.Skipped = append(res.Skipped, step.stage)
			continue
		}
		res.State = step.stage
		timer := monitor.StartStage(string(step.stage))
		err := step.run(p, ctx, rs)
		skipped := errors.Is(err, errStageSkipped)
		if skipped {
			monitor.EndStage(timer, nil)
		} else {
			monitor.EndStage(timer, err)
		}
		switch {
		case skipped:
			res.Skipped = append(res.Skipped, step.stage)
		case err != nil:
			return fail(err)
		default:
			res.Completed = append(res.Completed, step.stage)
		}
	}

	res.State = StageDone
	res.Timings = monitor.Records()
	res.Summary = monitor.GetPerformanceSummary()
	monitor.LogCurrentMetrics()
	logger.Info("run completed",
		zap.Strings("completed", stageNames(res.Completed)),
		zap.String("execution_dir", rs.execDir))
	return res, nil
}

// announceSuppressed tells the user about requested work the flags rule out.
func (p *Pipeline) announceSuppressed(logger *zap.Logger, opts Options) {
	if opts.ExportOnly {
		logger.Warn("export-only mode enabled, skipping video rendering")
		return
	}
	if opts.Burn && opts.ExtractAudio {
		logger.Warn("subtitle burning is skipped when audio extraction is requested")
	}
}

func (p *Pipeline) extract(ctx context.Context, rs *runState) error {
	audioPath, err := p.extractor.Extract(ctx, rs.opts.InputPath, rs.execDir)
	if err != nil {
		return err
	}
	rs.sourcePath = audioPath
	rs.res.Artifacts.Audio = audioPath
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, rs *runState) error {
	result, err := p.speech.Transcribe(ctx, rs.sourcePath, rs.opts.request())
	if err != nil {
		return err
	}
	rs.result = result
	rs.res.Language = result.Language
	if n := len(result.Segments); n > 0 {
		rs.monitor.RecordTranscription(result.Segments[n-1].End, result.Elapsed)
	}
	return nil
}

func (p *Pipeline) merge(_ context.Context, rs *runState) error {
	rs.segments = transcript.Merge(rs.result.Segments, rs.result.Diarization)
	rs.res.Segments = len(rs.segments)
	rs.logger.Debug("segments merged",
		zap.Int("segments", len(rs.segments)),
		zap.Bool("aligned", rs.result.Aligned),
		zap.Bool("diarized", rs.result.Diarization.Ran()))
	return nil
}

func (p *Pipeline) write(_ context.Context, rs *runState) error {
	output, err := transcript.Write(rs.segments)
	if err != nil {
		return err
	}
	rs.output = output

	base := processor.BaseName(rs.sourcePath)
	srtPath := filepath.Join(rs.execDir, base+".srt")
	txtPath := filepath.Join(rs.execDir, base+".txt")
	if err := os.WriteFile(srtPath, []byte(output.SubtitleTrack), 0o644); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	rs.res.Artifacts.Subtitles = srtPath
	if err := os.WriteFile(txtPath, []byte(output.PlainText), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	rs.res.Artifacts.Transcript = txtPath
	rs.logger.Info("transcript saved", zap.String("srt", srtPath), zap.String("txt", txtPath))

	if rs.opts.SegmentsJSON {
		jsonPath := filepath.Join(rs.execDir, base+".segments.jsonl")
		if err := writeSegmentsJSON(jsonPath, rs.segments, rs.logger); err != nil {
			return err
		}
		rs.res.Artifacts.SegmentsJSON = jsonPath
	}
	return nil
}

func writeSegmentsJSON(path string, segments []transcript.AnnotatedSegment, logger *zap.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create segments file: %w", err)
	}
	defer f.Close()

	out := transcript.NewJSONOutput(f, logger)
	if err := out.OutputAll(segments); err != nil {
		return fmt.Errorf("failed to write segments file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close segments file: %w", err)
	}
	logger.Info("segments saved", zap.String("path", path), zap.Int("segments", out.Count()))
	return nil
}

// burn always renders onto the original input, never the extracted audio.
func (p *Pipeline) burn(ctx context.Context, rs *runState) error {
	videoPath, err := p.burner.Burn(ctx, rs.opts.InputPath, rs.res.Artifacts.Subtitles, rs.execDir)
	if err != nil {
		return err
	}
	rs.res.Artifacts.Video = videoPath
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, rs *runState) error {
	base := processor.BaseName(rs.sourcePath)
	result, err := p.summarize(ctx, rs.logger, rs.output.PlainText, rs.opts.SystemPrompt, rs.execDir, base)
	if err != nil {
		return err
	}
	if result.Skipped {
		return errStageSkipped
	}
	rs.res.Analysis = result.Analysis
	rs.res.Artifacts.Analysis = result.Path
	return nil
}

// AnalysisResult is the outcome of summarizing a transcript.
type AnalysisResult struct {
	Analysis string
	Path     string
	Skipped  bool
	Elapsed  time.Duration
}

// summarize sends text for analysis and writes {dir}/{base}_analysis.md.
// A missing credential skips the call with a warning.
func (p *Pipeline) summarize(ctx context.Context, logger *zap.Logger, text, systemPrompt, dir, base string) (AnalysisResult, error) {
	if p.summarizer == nil || !p.summarizer.Configured() {
		logger.Warn("OPENAI_API_KEY not set, skipping analysis")
		return AnalysisResult{Skipped: true}, nil
	}

	start := time.Now()
	analysis, err := p.summarizer.Summarize(ctx, systemPrompt, text)
	if err != nil {
		return AnalysisResult{}, err
	}

	path := filepath.Join(dir, base+"_analysis.md")
	if err := os.WriteFile(path, []byte(analysis), 0o644); err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to write analysis: %w", err)
	}
	logger.Info("analysis saved", zap.String("path", path))
	return AnalysisResult{Analysis: analysis, Path: path, Elapsed: time.Since(start)}, nil
}

// AnalyzeTranscript summarizes an existing plain-text transcript and writes
// the analysis next to it.
func (p *Pipeline) AnalyzeTranscript(ctx context.Context, transcriptPath, systemPrompt string) (AnalysisResult, error) {
	logger := p.logger.With(zap.String("run_id", uuid.NewString()))

	info, err := os.Stat(transcriptPath)
	if err != nil || info.IsDir() {
		return AnalysisResult{}, apperr.Input("transcript file not found: %s", transcriptPath)
	}
	text, err := os.ReadFile(transcriptPath)
	if err != nil {
		return AnalysisResult{}, apperr.Input("cannot read transcript %s: %v", transcriptPath, err)
	}

	return p.summarize(ctx, logger, string(text), systemPrompt,
		filepath.Dir(transcriptPath), processor.BaseName(transcriptPath))
}

func stageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}
