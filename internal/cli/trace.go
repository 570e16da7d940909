package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/unnest/internal/engine"
	"github.com/roach88/unnest/internal/queryir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	RuleFlags
	Rewrite string // optional - filter to one rewrite name
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Name     string     `json:"name"`
	Rules    []string   `json:"rules"`
	Timeline []RuleStep `json:"timeline"`
	Stats    TraceStats `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalRewrites int            `json:"total_rewrites"`
	ByRewrite     map[string]int `json:"by_rewrite"`
	Decorrelated  bool           `json:"decorrelated"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <document>",
		Short: "Show the rewrites that fired while building a plan",
		Long: `Build a plan document and list every rewrite in the order it fired.

Each step names the rewrite and the constructor it fired in. The stats
count firings per rewrite and report whether the final plan is free of
dependent joins and subqueries.

Examples:
  unnest trace plan.cue
  unnest trace plan.cue --rule hoist
  unnest trace plan.cue --rewrite HoistScalar
  unnest trace plan.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	opts.RuleFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Rewrite, "rewrite", "", "filter to one rewrite name")

	return cmd
}

func runTrace(opts *TraceOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	built, err := buildDocument(path, opts.RuleFlags, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return failWith(formatter, err)
	}

	trace := built.session.Trace()
	result := TraceResult{
		Name:     built.doc.Name,
		Rules:    ruleNames(built.session.Rules()),
		Timeline: buildTimeline(trace, opts.Rewrite),
		Stats: TraceStats{
			TotalRewrites: len(trace),
			ByRewrite:     countRewrites(trace),
			Decorrelated:  queryir.Validate(built.result.Plan).Decorrelated,
		},
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

// buildTimeline converts session events to timeline steps. When filter is
// set, only steps with that rewrite name are kept; sequence numbers are
// not renumbered.
func buildTimeline(trace []engine.RuleEvent, filter string) []RuleStep {
	timeline := []RuleStep{}
	for _, step := range ruleSteps(trace) {
		if filter != "" && step.Rule != filter {
			continue
		}
		timeline = append(timeline, step)
	}
	return timeline
}

func countRewrites(trace []engine.RuleEvent) map[string]int {
	counts := make(map[string]int)
	for _, ev := range trace {
		counts[ev.Name]++
	}
	return counts
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Plan: %s\n", result.Name)
	fmt.Fprintf(w, "Rules: %s\n", formatRules(result.Rules))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no rewrites)")
	} else {
		for _, step := range result.Timeline {
			formatTimelineStep(w, step)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Rewrites: %d\n", result.Stats.TotalRewrites)
	if len(result.Stats.ByRewrite) > 0 {
		fmt.Fprintf(w, "  By Rewrite:     %s\n", formatCounts(result.Stats.ByRewrite))
	}
	fmt.Fprintf(w, "  Decorrelated:   %s\n", yesNo(result.Stats.Decorrelated))

	return nil
}

func formatTimelineStep(w io.Writer, step RuleStep) {
	fmt.Fprintf(w, "  [%d] %-24s (%s)\n", step.Seq, step.Rule, step.Op)
}

// formatCounts formats per-rewrite counts with sorted keys.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
