package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/acidbubbles/vam-timeline-sub003/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent float32
	lastStage  string
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	faint      *color.Color
}

// NewTerminalReporter creates a new terminal reporter. Verbose messages are
// only printed when verbose is set.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

func (r *TerminalReporter) Host(summary HostSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("HOST")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "CPUs:", fmt.Sprintf("%d", summary.NumCPU))
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Initialization(summary InitializationSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("ANIMATION")
	r.printLabel(10, "File:", summary.InputFile)
	if summary.OutputFile != "" {
		r.printLabel(10, "Output:", summary.OutputFile)
	}
	length := util.FormatSeconds(summary.AnimationLength)
	if summary.Loop {
		length += " (loop)"
	}
	r.printLabel(10, "Length:", length)
	r.printLabel(10, "Targets:", fmt.Sprintf("%d", summary.Targets))
	r.printLabel(10, "Keyframes:", fmt.Sprintf("%d", summary.Keyframes))
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.mu.Unlock()
		fmt.Println()
		_, _ = r.cyan.Println(strings.ToUpper(update.Stage))
		r.mu.Lock()
		r.lastStage = update.Stage
	}
	r.mu.Unlock()
	fmt.Printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) ReduceConfig(summary ReduceConfigSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("REDUCTION")
	const w = 14 // Width to fit "Preset values:"
	r.printLabel(w, "Preset:", summary.Preset)
	r.printLabel(w, "FPS:", fmt.Sprintf("%g", summary.FPS))
	r.printLabel(w, "Snap to FPS:", onOff(summary.AvgToSnap))
	r.printLabel(w, "Remove flats:", onOff(summary.RemoveFlats))
	r.printLabel(w, "Simplify:", onOff(summary.Simplify))
	r.printLabel(w, "Distance:", fmt.Sprintf("%g", summary.MinDistance))
	r.printLabel(w, "Rotation:", fmt.Sprintf("%g°", summary.MinRotation))
	r.printLabel(w, "Range ratio:", fmt.Sprintf("%g", summary.MinRangeRatio))

	if len(summary.PresetSettings) > 0 {
		var parts []string
		for _, kv := range summary.PresetSettings {
			parts = append(parts, fmt.Sprintf("%s=%s", kv[0], kv[1]))
		}
		r.printLabel(w, "Preset values:", strings.Join(parts, ", "))
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (r *TerminalReporter) ReductionStarted(info ReductionStartInfo) {
	r.finishProgress()

	fmt.Printf("  %s %s (%s, %s)\n", r.magenta.Sprint("›"), r.bold.Sprint(info.Target),
		info.Kind, util.FormatKeyframes(info.Keyframes))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Reducing [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) ReductionProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := progress.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	desc := fmt.Sprintf("%d/%d keys, %d steps, branch %d",
		progress.Resolved, progress.Total, progress.Steps, progress.Branch)
	r.progress.Describe(desc)
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	r.finishProgress()

	fmt.Println()
	_, _ = r.cyan.Println("VALIDATION " + summary.Target)

	if summary.Passed {
		fmt.Printf("  %s\n", r.green.Add(color.Bold).Sprint("All checks passed"))
	} else {
		fmt.Printf("  %s\n", r.red.Sprint("Validation failed"))
	}

	// Find the longest step name for alignment
	maxLen := 0
	for _, step := range summary.Steps {
		if len(step.Name) > maxLen {
			maxLen = len(step.Name)
		}
	}

	for _, step := range summary.Steps {
		var status string
		if step.Passed {
			status = r.green.Sprint("✓")
		} else {
			status = r.red.Sprint("✗")
		}
		// Pad the name for alignment
		paddedName := fmt.Sprintf("%-*s", maxLen, step.Name)
		fmt.Printf("  - %s: %s (%s)\n", paddedName, status, step.Details)
	}

	for _, repair := range summary.Repairs {
		fmt.Printf("  %s %s\n", r.yellow.Sprint("repaired"), repair)
	}
}

func (r *TerminalReporter) ReductionComplete(outcome ReductionOutcome) {
	r.finishProgress()

	reduction := util.CalculateReduction(outcome.Before, outcome.After)
	status := r.green.Sprint("committed")
	if !outcome.Committed {
		status = r.faint.Sprint("kept source")
	}
	fmt.Printf("  %s %d -> %d keyframes (%s, %s) in %s\n",
		r.bold.Sprint(outcome.Target+":"),
		outcome.Before, outcome.After,
		r.bold.Sprintf("%.1f%%", reduction),
		status,
		util.FormatElapsed(outcome.Duration))
	if r.verbose {
		fmt.Printf("    steps %d, copied %d, averaged %d, flattened %d, verification rounds %d\n",
			outcome.Steps, outcome.Copied, outcome.Averaged, outcome.Flattened, outcome.Verifications)
	}
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Println()
	fmt.Printf("%s %s\n", r.green.Add(color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	fmt.Println()
	_, _ = r.cyan.Println("BATCH")
	if info.OutputFile != "" {
		fmt.Printf("  Reducing %d targets -> %s\n", info.TotalTargets, r.bold.Sprint(info.OutputFile))
	} else {
		fmt.Printf("  Reducing %d targets\n", info.TotalTargets)
	}
	if r.verbose {
		for i, name := range info.TargetList {
			fmt.Printf("  %d. %s\n", i+1, name)
		}
	}
}

func (r *TerminalReporter) TargetProgress(context TargetProgressContext) {
	if !r.verbose {
		return
	}
	fmt.Printf("\nTarget %s of %d: %s\n",
		r.bold.Sprint(context.CurrentTarget),
		context.TotalTargets,
		context.Name)
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	reduction := util.CalculateReduction(summary.TotalBefore, summary.TotalAfter)

	fmt.Println()
	_, _ = r.cyan.Println("BATCH SUMMARY")
	fmt.Printf("  %s\n", r.bold.Sprintf("%d of %d reduced", summary.SuccessfulCount, summary.TotalTargets))
	fmt.Printf("  Validation: %s passed, %s failed\n",
		r.green.Sprint(summary.ValidationPassedCount),
		r.red.Sprint(summary.ValidationFailedCount))
	fmt.Printf("  Keyframes: %d -> %d (%.1f%% reduction)\n",
		summary.TotalBefore, summary.TotalAfter, reduction)
	fmt.Printf("  Time: %s\n", util.FormatElapsed(summary.TotalDuration))

	for _, result := range summary.TargetResults {
		fmt.Printf("  - %s (%.1f%% reduction)\n", result.Name, result.Reduction)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s\n", r.faint.Sprint(message))
}
