package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/unnest/internal/ir"
)

// Document is a declarative plan: a name, the rules to build it with and
// the plan tree itself. Columns are referred to by name; the compiler
// allocates ids for them.
//
// The same structure loads from CUE (json tags) and YAML (yaml tags):
//
//	name: "filter_join"
//	rules: ["hoist", "decorrelate"]
//	plan: join: {
//		left: scan: {table: "a", cols: ["a", "b"]}
//		right: scan: {table: "x", cols: ["x", "y"]}
//		on: [{eq: [{col: "a"}, {int: 100}]}]
//	}
type Document struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Rules       []string `json:"rules,omitempty" yaml:"rules,omitempty"`
	Plan        PlanDef  `json:"plan" yaml:"plan"`
}

// PlanDef is one plan node. Exactly one field must be set.
type PlanDef struct {
	Scan    *ScanDef    `json:"scan,omitempty" yaml:"scan,omitempty"`
	Select  *SelectDef  `json:"select,omitempty" yaml:"select,omitempty"`
	Join    *JoinDef    `json:"join,omitempty" yaml:"join,omitempty"`
	Project *ProjectDef `json:"project,omitempty" yaml:"project,omitempty"`
	Map     *MapDef     `json:"map,omitempty" yaml:"map,omitempty"`
	FlatMap *FlatMapDef `json:"flatmap,omitempty" yaml:"flatmap,omitempty"`
}

// ScanDef declares a base table and names its columns.
type ScanDef struct {
	Table string   `json:"table" yaml:"table"`
	Cols  []string `json:"cols" yaml:"cols"`
}

// SelectDef filters Input by the conjunction of Where.
type SelectDef struct {
	Input PlanDef   `json:"input" yaml:"input"`
	Where []ExprDef `json:"where" yaml:"where"`
}

// JoinDef joins Left and Right on the conjunction of On.
type JoinDef struct {
	Left  PlanDef   `json:"left" yaml:"left"`
	Right PlanDef   `json:"right" yaml:"right"`
	On    []ExprDef `json:"on,omitempty" yaml:"on,omitempty"`
}

// ProjectDef keeps the named columns of Input.
type ProjectDef struct {
	Input PlanDef  `json:"input" yaml:"input"`
	Cols  []string `json:"cols" yaml:"cols"`
}

// MapDef adds computed columns to Input.
type MapDef struct {
	Input  PlanDef     `json:"input" yaml:"input"`
	Assign []AssignDef `json:"assign" yaml:"assign"`
}

// AssignDef declares column Col as the value of Expr.
type AssignDef struct {
	Col  string  `json:"col" yaml:"col"`
	Expr ExprDef `json:"expr" yaml:"expr"`
}

// FlatMapDef is an explicit dependent join.
type FlatMapDef struct {
	Outer PlanDef `json:"outer" yaml:"outer"`
	Inner PlanDef `json:"inner" yaml:"inner"`
}

// ExprDef is one scalar expression. Exactly one field must be set; Eq and
// Plus take exactly two operands.
type ExprDef struct {
	Col      *string   `json:"col,omitempty" yaml:"col,omitempty"`
	Int      *int64    `json:"int,omitempty" yaml:"int,omitempty"`
	Eq       []ExprDef `json:"eq,omitempty" yaml:"eq,omitempty"`
	Plus     []ExprDef `json:"plus,omitempty" yaml:"plus,omitempty"`
	Subquery *PlanDef  `json:"subquery,omitempty" yaml:"subquery,omitempty"`
}

// ParsedRules converts the document's rule names.
func (d *Document) ParsedRules() ([]ir.Rule, error) {
	rules, err := ir.ParseRules(d.Rules)
	if err != nil {
		return nil, &CompileError{Field: "rules", Message: err.Error()}
	}
	return rules, nil
}

// LoadDocument reads a plan document, choosing the format by extension:
// .cue for CUE, .yaml or .yml for YAML.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(data, path)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, &CompileError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported document extension %q (want .cue, .yaml or .yml)", filepath.Ext(path)),
		}
	}
}

// ParseCUE evaluates CUE source into a Document.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}
	return &doc, nil
}

// ParseYAML decodes YAML into a Document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	return &doc, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: "cue", Message: err.Error()}
}
