package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/unnest/internal/compiler"
	"github.com/roach88/unnest/internal/engine"
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
	"github.com/roach88/unnest/internal/render"
	"github.com/roach88/unnest/internal/store"
	"github.com/roach88/unnest/internal/testutil"
)

// Harness runs scenarios. It optionally records every successfully built
// plan in a Store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithStore saves each built plan to st.
func WithStore(st *store.Store) Option {
	return func(h *Harness) { h.store = st }
}

// WithLogger routes session rule firings to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// New creates a Harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run builds the scenario's plan in a fresh session and evaluates its
// assertions.
//
// Execution flow:
// 1. Load the document, or wrap the inline plan in one
// 2. Resolve rules (scenario overrides document)
// 3. Compile through a session with a fixed id
// 4. Render, digest and optionally save the plan
// 5. Evaluate assertions
//
// A rewrite error is part of the result, not a Run error: scenarios may
// assert on it. Load and validation failures are returned as errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := scenarioDocument(scenario)
	if err != nil {
		return nil, err
	}

	rules, err := scenarioRules(scenario, doc)
	if err != nil {
		return nil, err
	}

	session := engine.New(
		engine.WithIDGenerator(testutil.NewFixedSessionGenerator(scenario.SessionID)),
		engine.WithRules(rules...),
		engine.WithLogger(h.logger),
	)

	result := NewResult()
	compiled, buildErr := compiler.Compile(doc, session)
	for _, ev := range session.Trace() {
		result.Trace = append(result.Trace, ev.Name)
	}

	if buildErr != nil {
		var re *engine.RewriteError
		if !errors.As(buildErr, &re) {
			return nil, fmt.Errorf("failed to compile plan: %w", buildErr)
		}
		result.BuildError = buildErr.Error()
		result.errorCode = string(re.Code)
		h.logger.Info("scenario build failed",
			"scenario", scenario.Name,
			"code", re.Code,
		)
	} else {
		if err := h.capture(ctx, scenario, session, compiled, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.BuildError != "" && !expectsError(scenario.Assertions) {
		result.AddError("unexpected build error: " + result.BuildError)
	}

	return result, nil
}

// capture fills the plan fields of result and saves the plan when a
// store is configured.
func (h *Harness) capture(ctx context.Context, scenario *Scenario, session *engine.Session, compiled *compiler.Result, result *Result) error {
	result.plan = compiled.Plan
	result.names = compiled.Names
	result.Rendered = render.Render(compiled.Plan)

	digest, err := queryir.Digest(compiled.Plan)
	if err != nil {
		return fmt.Errorf("failed to digest plan: %w", err)
	}
	result.Digest = digest

	if h.store == nil {
		return nil
	}

	rec, err := store.NewPlanRecord(scenario.Name, session.ID(), session.Rules(), compiled.Plan)
	if err != nil {
		return err
	}
	inserted, err := h.store.SavePlan(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	h.logger.Info("plan recorded",
		"scenario", scenario.Name,
		"digest", rec.Digest,
		"inserted", inserted,
	)
	return nil
}

func scenarioDocument(scenario *Scenario) (*compiler.Document, error) {
	if scenario.Document != "" {
		doc, err := compiler.LoadDocument(scenario.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to load document: %w", err)
		}
		return doc, nil
	}
	if scenario.Plan == nil {
		return nil, fmt.Errorf("scenario %q has neither document nor plan", scenario.Name)
	}
	return &compiler.Document{Name: scenario.Name, Plan: *scenario.Plan}, nil
}

func scenarioRules(scenario *Scenario, doc *compiler.Document) ([]ir.Rule, error) {
	if scenario.Rules != nil {
		return ir.ParseRules(scenario.Rules)
	}
	return doc.ParsedRules()
}

func expectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}
