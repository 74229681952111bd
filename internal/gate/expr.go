package gate

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"golang.org/x/sync/errgroup"
)

// DefaultExpression routes first-run users to onboarding, then users without
// a token to auth.
const DefaultExpression = `!onboarded ? "onboarding" : (token == "" ? "auth" : "home")`

// Facts are the variables visible to an entry expression.
type Facts map[string]any

// FactSource contributes facts. Sources run concurrently; when two sources
// set the same fact, the later source in the list wins.
type FactSource func(ctx context.Context) (Facts, error)

// StaticFacts returns a source that always yields facts.
func StaticFacts(facts Facts) FactSource {
	snapshot := maps.Clone(facts)
	return func(context.Context) (Facts, error) {
		return snapshot, nil
	}
}

// ExprResolver evaluates an expr-lang program against gathered facts. The
// program's result is read as an entry mode; non-string results read as the
// empty mode.
type ExprResolver struct {
	expression string
	program    *exprvm.Program
	sources    []FactSource
}

// Expr compiles expression. Undefined variables evaluate to nil.
func Expr(expression string, sources ...FactSource) (*ExprResolver, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("entry expression must not be empty")
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile entry expression: %w", err)
	}
	return &ExprResolver{expression: expression, program: program, sources: sources}, nil
}

// ParseResolver reads entry text the way the --entry flags do: empty means no
// override, a mode name pins that mode, and anything else compiles as an
// expression over sources.
func ParseResolver(entry string, sources ...FactSource) (Resolver, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, nil
	}
	if mode, err := ParseEntryMode(entry); err == nil {
		return Const(mode), nil
	}
	r, err := Expr(entry, sources...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Expression returns the source text.
func (r *ExprResolver) Expression() string {
	return r.expression
}

func (r *ExprResolver) String() string {
	return "expr(" + r.expression + ")"
}

// Resolve implements Resolver.
func (r *ExprResolver) Resolve(ctx context.Context) (EntryMode, error) {
	facts, err := gatherFacts(ctx, r.sources)
	if err != nil {
		return "", err
	}
	env := map[string]any{"now": time.Now()}
	for k, v := range facts {
		env[k] = v
	}
	out, err := exprlang.Run(r.program, env)
	if err != nil {
		return "", fmt.Errorf("evaluate entry expression %q: %w", r.expression, err)
	}
	return ModeOf(out), nil
}

func gatherFacts(ctx context.Context, sources []FactSource) (Facts, error) {
	results := make([]Facts, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		if src == nil {
			continue
		}
		g.Go(func() error {
			facts, err := src(ctx)
			if err != nil {
				return fmt.Errorf("gather facts: %w", err)
			}
			results[i] = facts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Facts{}
	for _, facts := range results {
		for k, v := range facts {
			merged[k] = v
		}
	}
	return merged, nil
}
