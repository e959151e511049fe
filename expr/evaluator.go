// Package expr evaluates BPMN FormalExpression guard conditions. It
// wraps github.com/expr-lang/expr.
package expr

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// DefaultLanguage is the language tag treated as "this process's
// default expression language" when a FormalExpression's own Language
// field is empty.
const DefaultLanguage = "expr"

// Evaluator evaluates a guard expression against a variable environment
// and reports whether the sequence flow it gates should be taken.
type Evaluator interface {
	Eval(language, source string, vars map[string]any) (bool, error)
}

// Default is the expr-lang-backed Evaluator used unless a scheduler is
// constructed with process.WithEvaluator.
type Default struct{}

// NewDefault constructs the expr-lang-backed Evaluator.
func NewDefault() Default { return Default{} }

// Eval compiles and runs source against vars. Only the "expr" language
// tag (and the empty tag, treated as "expr") is supported; any other
// tag is reported as an unsupported-language error exactly like an
// unrecognized FormalExpression::Language would be in the original.
func (Default) Eval(language, source string, vars map[string]any) (bool, error) {
	if language != "" && language != DefaultLanguage {
		return false, fmt.Errorf("expr: unsupported expression language %q", language)
	}
	program, err := expr.Compile(source, expr.Env(vars), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("expr: compile: %w", err)
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("expr: run: %w", err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expr: expression %q did not evaluate to a bool", source)
	}
	return result, nil
}
