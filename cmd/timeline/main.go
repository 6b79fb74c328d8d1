// Package main provides the CLI entry point for the timeline tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	timeline "github.com/acidbubbles/vam-timeline-sub003"
	"github.com/acidbubbles/vam-timeline-sub003/internal/config"
	"github.com/acidbubbles/vam-timeline-sub003/internal/discovery"
	"github.com/acidbubbles/vam-timeline-sub003/internal/logging"
	"github.com/acidbubbles/vam-timeline-sub003/internal/reporter"
	"github.com/acidbubbles/vam-timeline-sub003/internal/util"
)

const (
	appName    = "timeline"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Keyframe animation tool",
		Long:          "Validate, sample and reduce keyframe animation documents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReduceCommand(), newValidateCommand(), newSampleCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}

// commonArgs holds the flags shared by every document command.
type commonArgs struct {
	inputPath string
	logDir    string
	verbose   bool
	noLog     bool
	json      bool
	events    string
}

func (a *commonArgs) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.inputPath, "input", "i", "", "Input animation document (.yaml), or a directory of them for reduce")
	cmd.Flags().StringVarP(&a.logDir, "log-dir", "l", "", "Log directory (defaults to logs/ next to the input)")
	cmd.Flags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVar(&a.noLog, "no-log", false, "Disable log file creation")
	cmd.Flags().BoolVar(&a.json, "json", false, "Print NDJSON events instead of text")
	cmd.Flags().StringVar(&a.events, "events", "", "Also append NDJSON events to this file")
	_ = cmd.MarkFlagRequired("input")
}

// session is the state shared by a command run.
type session struct {
	inputPath string
	isDir     bool
	logger    *logging.FileLogger
	reporter  reporter.Reporter
	events    *os.File
}

// open validates the input path and sets up logging and reporting. A
// directory input is accepted only when allowDir is set.
func (a *commonArgs) open(allowDir bool) (*session, error) {
	inputPath, err := filepath.Abs(a.inputPath)
	if err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	isDir := util.DirExists(inputPath)
	switch {
	case isDir && !allowDir:
		return nil, fmt.Errorf("input must be a file: %s", inputPath)
	case isDir:
	case !util.FileExists(inputPath):
		return nil, fmt.Errorf("input file does not exist: %s", inputPath)
	case !util.IsDocumentFile(inputPath):
		return nil, fmt.Errorf("input is not an animation document: %s", inputPath)
	}

	logDir := a.logDir
	if logDir == "" {
		base := inputPath
		if !isDir {
			base = filepath.Dir(inputPath)
		}
		logDir = filepath.Join(base, "logs")
	}
	logger, err := logging.Setup(logDir, a.verbose, a.noLog)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	var rep reporter.Reporter
	if a.json {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter(a.verbose)
	}
	s := &session{inputPath: inputPath, isDir: isDir, logger: logger, reporter: rep}
	if a.events != "" {
		f, err := os.OpenFile(a.events, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			_ = logger.Close()
			return nil, fmt.Errorf("failed to open events file: %w", err)
		}
		s.events = f
		s.reporter = reporter.NewCompositeReporter(rep, reporter.NewJSONReporterWithWriter(f))
	}
	return s, nil
}

func (s *session) close() {
	if s.events != nil {
		_ = s.events.Close()
	}
	_ = s.logger.Close()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// reduceArgs holds the parsed arguments for the reduce command.
type reduceArgs struct {
	commonArgs
	outputPath    string
	preset        string
	fps           float64
	avgToSnap     bool
	noRemoveFlats bool
	noSimplify    bool
	minDistance   float64
	minRotation   float64
	minRangeRatio float64
	workers       int
	skipValidate  bool
}

func newReduceCommand() *cobra.Command {
	var ra reduceArgs
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce the keyframes of every target within a tolerance",
		Long: fmt.Sprintf(`Reduce the keyframes of every target of an animation document.

Tolerances default to the balanced preset: %g units, %g degrees and %g of
the parameter range. Explicit tolerance flags override the preset.`,
			config.DefaultMinMeaningfulDistance, config.DefaultMinMeaningfulRotation, config.DefaultMinMeaningfulFloatParamRangeRatio),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeReduce(cmd, ra)
		},
	}
	ra.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&ra.outputPath, "output", "o", "", "Output document or directory (defaults to <input>.reduced.yaml next to the input)")
	f.StringVar(&ra.preset, "preset", "", "Tolerance preset (fine, balanced, aggressive)")
	f.Float64Var(&ra.fps, "fps", config.DefaultFPS, "Frame rate used to snap averaged keyframes")
	f.BoolVar(&ra.avgToSnap, "avg-to-snap", false, "Average dense keyframes onto frame times")
	f.BoolVar(&ra.noRemoveFlats, "no-remove-flats", false, "Keep motionless sections as they are")
	f.BoolVar(&ra.noSimplify, "no-simplify", false, "Keep keyframes that are within tolerance")
	f.Float64Var(&ra.minDistance, "min-distance", 0, "Position tolerance in units (overrides preset)")
	f.Float64Var(&ra.minRotation, "min-rotation", 0, "Rotation tolerance in degrees (overrides preset)")
	f.Float64Var(&ra.minRangeRatio, "min-range-ratio", 0, "Scalar tolerance as a fraction of the range (overrides preset)")
	f.IntVar(&ra.workers, "workers", 0, "Targets reduced in parallel (0 = one per CPU)")
	f.BoolVar(&ra.skipValidate, "no-validate", false, "Skip validation before reducing")
	return cmd
}

func executeReduce(cmd *cobra.Command, ra reduceArgs) error {
	s, err := ra.open(true)
	if err != nil {
		return err
	}
	defer s.close()

	settings, presetName, err := ra.settings(cmd)
	if err != nil {
		return err
	}

	files := []string{s.inputPath}
	if s.isDir {
		result, err := discovery.FindDocumentsWithLogging(s.inputPath, s.logger)
		if err != nil {
			return err
		}
		files = result.Files
		if ra.outputPath != "" {
			if err := util.EnsureDirectory(ra.outputPath); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
	}

	s.logger.Info("Preset: %s", presetName)
	s.logger.Info("Tolerances: distance=%g, rotation=%g, range ratio=%g",
		settings.MinMeaningfulDistance, settings.MinMeaningfulRotation, settings.MinMeaningfulFloatParamRangeRatio)
	s.logger.Info("Options: fps=%g, avg-to-snap=%v, remove-flats=%v, simplify=%v",
		settings.FPS, settings.AvgToSnap, settings.RemoveFlats, settings.Simplify)

	info := util.GetSystemInfo()
	s.reporter.Host(reporter.HostSummary{Hostname: info.Hostname, NumCPU: info.NumCPU})
	s.reporter.ReduceConfig(reporter.ReduceConfigSummary{
		Preset:        presetName,
		FPS:           settings.FPS,
		AvgToSnap:     settings.AvgToSnap,
		RemoveFlats:   settings.RemoveFlats,
		Simplify:      settings.Simplify,
		MinDistance:   settings.MinMeaningfulDistance,
		MinRotation:   settings.MinMeaningfulRotation,
		MinRangeRatio: settings.MinMeaningfulFloatParamRangeRatio,
		PresetSettings: [][2]string{
			{"workers", fmt.Sprintf("%d", util.WorkerCount(ra.workers))},
			{"documents", fmt.Sprintf("%d", len(files))},
		},
	})

	ctx, cancel := signalContext()
	defer cancel()

	failed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		outputPath := util.ResolveOutputPath(file, ra.outputPath)
		if err := reduceDocument(ctx, s, ra, settings, file, outputPath); err != nil {
			if !s.isDir || ctx.Err() != nil {
				return err
			}
			failed++
			s.logger.Error("%s: %v", file, err)
			s.reporter.Warning(fmt.Sprintf("%s: %v", filepath.Base(file), err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(files))
	}
	return nil
}

// settings resolves the reduce settings from the preset and explicit flags.
func (ra reduceArgs) settings(cmd *cobra.Command) (timeline.ReduceSettings, string, error) {
	cfg := config.NewConfig(ra.logDir)
	presetName := string(config.PresetBalanced)
	if ra.preset != "" {
		preset, err := config.ParsePreset(ra.preset)
		if err != nil {
			return timeline.ReduceSettings{}, "", err
		}
		cfg.ApplyPreset(preset)
		presetName = preset.String()
	}
	settings := cfg.Reduce
	settings.FPS = ra.fps
	if cmd.Flags().Changed("avg-to-snap") {
		settings.AvgToSnap = ra.avgToSnap
	}
	if ra.noRemoveFlats {
		settings.RemoveFlats = false
	}
	if ra.noSimplify {
		settings.Simplify = false
	}
	if cmd.Flags().Changed("min-distance") {
		settings.MinMeaningfulDistance = ra.minDistance
	}
	if cmd.Flags().Changed("min-rotation") {
		settings.MinMeaningfulRotation = ra.minRotation
	}
	if cmd.Flags().Changed("min-range-ratio") {
		settings.MinMeaningfulFloatParamRangeRatio = ra.minRangeRatio
	}
	if err := settings.Validate(); err != nil {
		return timeline.ReduceSettings{}, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, presetName, nil
}

// reduceDocument validates, reduces and writes one animation document.
func reduceDocument(ctx context.Context, s *session, ra reduceArgs, settings timeline.ReduceSettings, inputPath, outputPath string) error {
	if err := util.EnsureDirectory(filepath.Dir(outputPath)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	engine, err := timeline.New(
		timeline.WithReduceSettings(settings),
		timeline.WithWorkers(ra.workers),
		timeline.WithLogger(s.logger.Slog()),
		timeline.WithReporter(s.reporter),
	)
	if err != nil {
		return err
	}
	if err := engine.LoadFile(inputPath); err != nil {
		return err
	}

	s.logger.Info("Input: %s", inputPath)
	s.logger.Info("Output: %s", outputPath)
	s.reporter.Initialization(initSummary(engine, inputPath, outputPath))

	if !ra.skipValidate {
		s.reporter.StageProgress(reporter.StageProgress{Stage: "Validation", Message: "Checking targets"})
		for _, r := range engine.Validate() {
			for _, repair := range r.Repairs {
				s.logger.Warn("%s: %s", r.Target, repair)
			}
		}
	}

	s.reporter.StageProgress(reporter.StageProgress{Stage: "Reduction", Message: fmt.Sprintf("Reducing %d targets", len(engine.Targets()))})
	batch, err := engine.ReduceAll(ctx)
	if err != nil {
		s.reporter.Error(reporter.ReporterError{
			Title:      "Reduction stopped",
			Message:    err.Error(),
			Suggestion: "The input document was not modified",
		})
		return err
	}
	for _, e := range batch.Errors {
		s.logger.Error("%v", e)
		s.reporter.Warning(e.Error())
	}
	for _, r := range batch.Results {
		s.logger.Debug("%s: %s -> %s (%d steps, %s)", r.Target,
			util.FormatKeyframes(r.Before), util.FormatKeyframes(r.After), r.Steps, util.FormatElapsed(r.Duration))
	}

	if err := engine.SaveFile(outputPath); err != nil {
		return err
	}
	s.logger.Info("Reduced %s to %s (%.1f%%)",
		util.FormatKeyframes(batch.TotalBefore), util.FormatKeyframes(batch.TotalAfter), batch.Reduction)
	s.reporter.OperationComplete(fmt.Sprintf("Wrote %s", outputPath))
	if len(batch.Errors) > 0 {
		return fmt.Errorf("%d of %d targets failed", len(batch.Errors), batch.TotalTargets)
	}
	return nil
}

func initSummary(engine *timeline.Engine, input, output string) reporter.InitializationSummary {
	return reporter.InitializationSummary{
		InputFile:       input,
		OutputFile:      output,
		AnimationLength: engine.AnimationLength(),
		Loop:            engine.Loop(),
		Targets:         len(engine.Targets()),
		Keyframes:       engine.KeyframeCount(),
	}
}

// validateArgs holds the parsed arguments for the validate command.
type validateArgs struct {
	commonArgs
	outputPath string
	length     float64
}

func newValidateCommand() *cobra.Command {
	var va validateArgs
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every target and optionally write the repaired document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeValidate(va)
		},
	}
	va.register(cmd)
	cmd.Flags().StringVarP(&va.outputPath, "output", "o", "", "Write the repaired document to this path")
	cmd.Flags().Float64Var(&va.length, "length", 0, "Animation length in seconds (defaults to the document's)")
	return cmd
}

func executeValidate(va validateArgs) error {
	s, err := va.open(false)
	if err != nil {
		return err
	}
	defer s.close()

	engine, err := timeline.New(timeline.WithLogger(s.logger.Slog()), timeline.WithReporter(s.reporter))
	if err != nil {
		return err
	}
	if err := engine.LoadFile(s.inputPath); err != nil {
		return err
	}
	if va.length > 0 {
		doc := engine.Document()
		doc.Length = va.length
		if err := engine.Load(doc); err != nil {
			return err
		}
	}
	s.reporter.Initialization(initSummary(engine, s.inputPath, va.outputPath))

	failed := 0
	for _, r := range engine.Validate() {
		if !r.IsValid() {
			failed++
			for _, f := range r.GetFailures() {
				s.logger.Warn("%s: %s", r.Target, f)
			}
		}
	}

	if va.outputPath != "" {
		if err := engine.SaveFile(va.outputPath); err != nil {
			return err
		}
		s.reporter.OperationComplete(fmt.Sprintf("Wrote %s", va.outputPath))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets needed repairs", failed, len(engine.Targets()))
	}
	s.reporter.OperationComplete("All targets valid")
	return nil
}

// sampleArgs holds the parsed arguments for the sample command.
type sampleArgs struct {
	commonArgs
	target string
	fps    float64
}

func newSampleCommand() *cobra.Command {
	var sa sampleArgs
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the values of a target at every frame",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeSample(cmd, sa)
		},
	}
	sa.register(cmd)
	cmd.Flags().StringVarP(&sa.target, "target", "t", "", "Target name")
	cmd.Flags().Float64Var(&sa.fps, "fps", config.DefaultFPS, "Sampling frame rate")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func executeSample(cmd *cobra.Command, sa sampleArgs) error {
	s, err := sa.open(false)
	if err != nil {
		return err
	}
	defer s.close()

	engine, err := timeline.New(timeline.WithLogger(s.logger.Slog()))
	if err != nil {
		return err
	}
	if err := engine.LoadFile(s.inputPath); err != nil {
		return err
	}
	t, ok := engine.Target(sa.target)
	if !ok {
		return fmt.Errorf("no target named %q in %s", sa.target, s.inputPath)
	}
	samples, err := engine.Sample(sa.target, sa.fps)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "time,%s\n", strings.Join(t.Kind().ChannelNames(), ","))
	for _, smp := range samples {
		fields := make([]string, len(smp.Values))
		for i, v := range smp.Values {
			fields[i] = fmt.Sprintf("%g", v)
		}
		fmt.Fprintf(out, "%g,%s\n", smp.Time, strings.Join(fields, ","))
	}
	s.logger.Info("Sampled %s: %d frames at %g fps", sa.target, len(samples), sa.fps)
	return nil
}
