package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/unnest/internal/compiler"
	"github.com/roach88/unnest/internal/engine"
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
	"github.com/roach88/unnest/internal/querysql"
	"github.com/roach88/unnest/internal/render"
	"github.com/roach88/unnest/internal/store"
)

// RuleFlags selects the rewrite rules for commands that build a plan.
type RuleFlags struct {
	Rules []string // overrides the document's rules when non-empty
	Raw   bool     // ignore the document's rules and build without rewrites
}

func (f *RuleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.Rules, "rule", nil, "enable a rewrite rule (hoist|decorrelate), repeatable; overrides the document")
	cmd.Flags().BoolVar(&f.Raw, "raw", false, "build without any rewrite rules")
}

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	RuleFlags
	Database string // save the plan to this history database
}

// BuildResult is the JSON payload of the build command.
type BuildResult struct {
	Name     string                 `json:"name"`
	Digest   string                 `json:"digest"`
	Rules    []string               `json:"rules"`
	Columns  map[string]ir.ColumnID `json:"columns"`
	Plan     map[string]any         `json:"plan"`
	Rendered string                 `json:"rendered"`
	Trace    []RuleStep             `json:"trace"`
	Saved    *bool                  `json:"saved,omitempty"`
}

// RuleStep is one rewrite in a command's output.
type RuleStep struct {
	Seq  int    `json:"seq"`
	Rule string `json:"rule"`
	Op   string `json:"op"`
}

// builtPlan is a document compiled through a session.
type builtPlan struct {
	doc     *compiler.Document
	session *engine.Session
	result  *compiler.Result
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <document>",
		Short: "Build a plan document through the rewrite rules",
		Long: `Compile a CUE or YAML plan document into a relational plan.

Every node is built through the rewriting constructors, so the printed
plan is already hoisted and decorrelated as far as the enabled rules allow.

Output formats:
  text - indented plan tree
  json - canonical encoding, digest, column names and rule trace
  sql  - parameterized SQL (dependent joins render as LATERAL)

Examples:
  unnest build plan.cue
  unnest build plan.yaml --rule hoist
  unnest build plan.cue --format sql
  unnest build plan.cue --db history.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	opts.RuleFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", "", "save the plan to a history database")

	return cmd
}

func runBuild(opts *BuildOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	built, err := buildDocument(path, opts.RuleFlags, logger)
	if err != nil {
		return failWith(formatter, err)
	}
	plan := built.result.Plan

	formatter.VerboseLog("Built %s with rules %v (%d rewrites)",
		built.doc.Name, ruleNames(built.session.Rules()), len(built.session.Trace()))

	var saved *bool
	if opts.Database != "" {
		inserted, err := savePlan(cmd.Context(), opts.Database, built)
		if err != nil {
			return fail(formatter, ErrCodeStore, err.Error(), nil)
		}
		saved = &inserted
	}

	switch formatter.Format {
	case "json":
		digest, err := queryir.Digest(plan)
		if err != nil {
			return fail(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		return formatter.Success(BuildResult{
			Name:     built.doc.Name,
			Digest:   digest,
			Rules:    ruleNames(built.session.Rules()),
			Columns:  built.result.Columns,
			Plan:     queryir.Encode(plan),
			Rendered: render.Render(plan),
			Trace:    ruleSteps(built.session.Trace()),
			Saved:    saved,
		})

	case "sql":
		query, params, err := querysql.NewSQLCompiler().Compile(plan)
		if err != nil {
			return fail(formatter, ErrCodeSQL, err.Error(), nil)
		}
		fmt.Fprintln(formatter.Writer, query)
		if len(params) > 0 {
			fmt.Fprintf(formatter.Writer, "-- params: %v\n", params)
		}

	default:
		fmt.Fprint(formatter.Writer, render.Render(plan))
	}

	if saved != nil {
		state := "already recorded"
		if *saved {
			state = "saved"
		}
		formatter.VerboseLog("Plan %s %s in %s", built.doc.Name, state, opts.Database)
	}
	return nil
}

// loadDocument reads a plan document, classifying failures.
func loadDocument(path string) (*compiler.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &CodedError{Code: ErrCodeNotFound, Err: fmt.Errorf("document not found: %s", path)}
	}
	doc, err := compiler.LoadDocument(path)
	if err != nil {
		return nil, &CodedError{Code: ErrCodeLoadFailed, Err: err}
	}
	return doc, nil
}

// buildDocument loads and compiles a plan document.
func buildDocument(path string, flags RuleFlags, logger *slog.Logger) (*builtPlan, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	return compileDocument(doc, flags, logger)
}

// compileDocument compiles doc in a fresh session with the selected rules.
func compileDocument(doc *compiler.Document, flags RuleFlags, logger *slog.Logger) (*builtPlan, error) {
	var rules []ir.Rule
	var err error
	switch {
	case flags.Raw:
	case len(flags.Rules) > 0:
		rules, err = ir.ParseRules(flags.Rules)
	default:
		rules, err = doc.ParsedRules()
	}
	if err != nil {
		return nil, &CodedError{Code: ErrCodeInvalidRule, Err: err}
	}

	session := engine.New(engine.WithRules(rules...), engine.WithLogger(logger))
	result, err := compiler.Compile(doc, session)
	if err != nil {
		return nil, &CodedError{Code: classifyBuildError(err), Err: err}
	}

	return &builtPlan{doc: doc, session: session, result: result}, nil
}

func classifyBuildError(err error) string {
	var rewrite *engine.RewriteError
	var invalid compiler.ValidationError
	var compileErr *compiler.CompileError
	switch {
	case errors.As(err, &rewrite):
		return ErrCodeRewrite
	case errors.As(err, &invalid), errors.As(err, &compileErr):
		return ErrCodeInvalidDocument
	default:
		return ErrCodeGeneric
	}
}

// savePlan records a built plan in the history database at path.
func savePlan(ctx context.Context, path string, built *builtPlan) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(path)
	if err != nil {
		return false, fmt.Errorf("open history: %w", err)
	}
	defer st.Close()

	rec, err := store.NewPlanRecord(built.doc.Name, built.session.ID(), built.session.Rules(), built.result.Plan)
	if err != nil {
		return false, err
	}
	return st.SavePlan(ctx, rec)
}

func ruleNames(rules []ir.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = string(r)
	}
	return names
}

func ruleSteps(trace []engine.RuleEvent) []RuleStep {
	steps := make([]RuleStep, len(trace))
	for i, ev := range trace {
		steps[i] = RuleStep{Seq: ev.Seq, Rule: ev.Name, Op: ev.Op}
	}
	return steps
}

// formatRules renders a rule list for text output.
func formatRules(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
