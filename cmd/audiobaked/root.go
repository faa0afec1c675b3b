package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audiobaked/internal/app"
	"audiobaked/internal/apperr"
	"audiobaked/internal/config"
	"audiobaked/internal/logger"
)

type rootFlags struct {
	extractAudio      bool
	burn              bool
	exportOnly        bool
	analyze           bool
	align             bool
	diarize           bool
	model             string
	language          string
	outputDir         string
	analyzeTranscript string
	segmentsJSON      bool
	configPath        string
	debug             bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "audiobaked [file]",
		Short: "Transcribe, burn, and analyze audio & video files",
		Long: "audiobaked transcribes a media file into SRT subtitles and plain text, " +
			"optionally with word alignment and speaker labels, can burn the subtitles " +
			"into the video and can send the transcript for analysis.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, out, flags, args)
		},
	}

	f := rootCmd.Flags()
	f.BoolVar(&flags.extractAudio, "extract-audio", false, "Extract audio from video before processing")
	f.BoolVar(&flags.burn, "burn", false, "Burn subtitles into the video (ignored with --extract-audio)")
	f.BoolVar(&flags.exportOnly, "export-only", false, "Only export the transcript (.srt and .txt)")
	f.BoolVar(&flags.analyze, "analyze", false, "Send transcript for analysis")
	f.BoolVar(&flags.align, "align", false, "Refine segment timing with word-level alignment")
	f.BoolVar(&flags.diarize, "diarize", false, "Label segments by speaker (requires HF_TOKEN)")
	f.StringVar(&flags.model, "model", "", "Whisper model size (tiny, base, small, medium, large, large-v3, turbo, ...)")
	f.StringVar(&flags.language, "language", "", "Language code; auto-detected when empty")
	f.StringVar(&flags.outputDir, "output-dir", "", "Directory for output files (default \"output\")")
	f.StringVar(&flags.analyzeTranscript, "analyze-transcript", "", "Path to an existing transcript (.txt) file to analyze directly")
	f.BoolVar(&flags.segmentsJSON, "json", false, "Also write segments as JSON lines")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (default $CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCommand(out, flags))
	return rootCmd
}

// loadRuntime builds configuration and logger, applying command line overrides.
func loadRuntime(cmd *cobra.Command, flags *rootFlags) (*config.Configuration, *zap.Logger, error) {
	cfg, err := app.LoadConfiguration(flags.configPath)
	if err != nil {
		return nil, nil, apperr.Configuration("%v", err)
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Set("output.dir", flags.outputDir)
	}
	if cmd.Flags().Changed("model") {
		cfg.Set("whisper.model", flags.model)
	}
	if cmd.Flags().Changed("language") {
		cfg.Set("whisper.language", flags.language)
	}
	if flags.segmentsJSON {
		cfg.Set("output.segments_json", true)
	}
	if flags.debug {
		cfg.Set("log.level", "debug")
	}

	zapLogger, err := logger.New(logger.Options{Level: cfg.GetLogLevel()})
	if err != nil {
		return nil, nil, apperr.Configuration("%v", err)
	}
	return cfg, zapLogger, nil
}

func runRoot(cmd *cobra.Command, out io.Writer, flags *rootFlags, args []string) error {
	if flags.analyzeTranscript == "" && len(args) == 0 {
		return apperr.Input("a media file argument is required (or use --analyze-transcript PATH)")
	}

	cfg, zapLogger, err := loadRuntime(cmd, flags)
	if err != nil {
		return err
	}
	defer zapLogger.Sync() //nolint:errcheck

	application := app.NewApplication(cfg, zapLogger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if flags.analyzeTranscript != "" {
		return runAnalyzeTranscript(ctx, out, application, flags.analyzeTranscript)
	}

	opts := application.DefaultOptions()
	opts.InputPath = args[0]
	opts.ExtractAudio = flags.extractAudio
	opts.Burn = flags.burn
	opts.ExportOnly = flags.exportOnly
	opts.Analyze = flags.analyze
	opts.Align = flags.align
	opts.Diarize = flags.diarize

	res, runErr := application.Run(ctx, opts)
	if res != nil && res.Artifacts.ExecutionDir != "" {
		fmt.Fprintln(out, renderRunSummary(res))
	}
	if res != nil && res.Analysis != "" {
		printAnalysis(out, res.Analysis, res.Artifacts.Analysis)
	}
	return runErr
}

func runAnalyzeTranscript(ctx context.Context, out io.Writer, application *app.Application, path string) error {
	result, err := application.AnalyzeTranscript(ctx, path)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Fprintln(out, "OPENAI_API_KEY not set. Skipping analysis.")
		return nil
	}
	printAnalysis(out, result.Analysis, result.Path)
	return nil
}
