package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/unnest/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Show     string // digest of one plan to print
	Verify   bool   // recompute every digest
}

// HistoryResult is the JSON payload of a history listing or verification.
type HistoryResult struct {
	Plans      []store.PlanRecord `json:"plans,omitempty"`
	Verified   int                `json:"verified,omitempty"`
	Mismatches []store.Mismatch   `json:"mismatches,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect plans recorded by build and test",
		Long: `List, show or verify plans recorded in a history database.

Plans are keyed by the digest of their canonical encoding and listed in
the order they were first recorded. --verify recomputes every digest
from the stored encoding and fails when any row was altered.

Examples:
  unnest history --db history.db
  unnest history --db history.db --show <digest>
  unnest history --db history.db --verify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Show, "show", "", "print the plan with this digest")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check every stored digest")
	cmd.MarkFlagsMutuallyExclusive("show", "verify")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return fail(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return fail(formatter, ErrCodeStore, fmt.Sprintf("open history: %v", err), nil)
	}
	defer st.Close()

	switch {
	case opts.Show != "":
		return showPlan(ctx, st, opts.Show, formatter)
	case opts.Verify:
		return verifyHistory(ctx, st, formatter)
	default:
		return listPlans(ctx, st, formatter)
	}
}

func listPlans(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	plans, err := st.ListPlans(ctx)
	if err != nil {
		return fail(formatter, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Plans: plans})
	}

	if len(plans) == 0 {
		fmt.Fprintln(formatter.Writer, "No plans recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tDIGEST\tNAME\tRULES")
	for _, p := range plans {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Seq, truncateDigest(p.Digest), p.Name, formatRules(p.Rules))
	}
	return tw.Flush()
}

func showPlan(ctx context.Context, st *store.Store, digest string, formatter *OutputFormatter) error {
	rec, err := st.GetPlan(ctx, digest)
	if errors.Is(err, store.ErrPlanNotFound) {
		return fail(formatter, ErrCodeNotFound, fmt.Sprintf("no plan with digest %s", digest), nil)
	}
	if err != nil {
		return fail(formatter, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(rec)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Plan: %s\n", rec.Name)
	fmt.Fprintf(w, "Digest: %s\n", rec.Digest)
	fmt.Fprintf(w, "Session: %s\n", rec.SessionID)
	fmt.Fprintf(w, "Rules: %s\n", formatRules(rec.Rules))
	fmt.Fprintf(w, "Engine: %s (IR %s)\n", rec.EngineVersion, rec.IRVersion)
	fmt.Fprintln(w)
	fmt.Fprint(w, rec.Rendered)
	return nil
}

func verifyHistory(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	plans, err := st.ListPlans(ctx)
	if err != nil {
		return fail(formatter, ErrCodeStore, err.Error(), nil)
	}
	mismatches, err := st.VerifyPlans(ctx)
	if err != nil {
		return fail(formatter, ErrCodeStore, err.Error(), nil)
	}

	if len(mismatches) > 0 {
		msg := fmt.Sprintf("%d of %d plan(s) do not match their digest", len(mismatches), len(plans))
		if formatter.Format == "json" {
			if err := encodeFailure(formatter, HistoryResult{Verified: len(plans) - len(mismatches), Mismatches: mismatches}, ErrCodeHistoryCorrupt, msg); err != nil {
				return err
			}
			return NewExitError(exitCodeFor(ErrCodeHistoryCorrupt), fmt.Sprintf("%s: %s", ErrCodeHistoryCorrupt, msg))
		}
		fmt.Fprintln(formatter.Writer, "✗ History corrupt")
		for _, m := range mismatches {
			fmt.Fprintf(formatter.Writer, "  [%d] %s: stored %s, computed %s\n",
				m.Seq, m.Name, truncateDigest(m.Digest), truncateDigest(m.Computed))
		}
		return NewExitError(exitCodeFor(ErrCodeHistoryCorrupt), fmt.Sprintf("%s: %s", ErrCodeHistoryCorrupt, msg))
	}

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Verified: len(plans)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d plan(s) verified\n", len(plans))
	return nil
}

// truncateDigest shortens a digest for tables.
func truncateDigest(d string) string {
	if len(d) <= 16 {
		return d
	}
	return d[:8] + "..." + d[len(d)-8:]
}
