// Package policy decides with Rego whether a tool requested by the writer may run.
//
// Policies live in package "tool" and define a boolean "allow" rule evaluated against
//
//	{"tool": "<name>", "args": {"key": "value"}, "topic": "<research topic>"}
//
// An undefined or non-boolean result denies.
package policy

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/model"
	"github.com/m-mizutani/scholar/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

const allowQuery = "data.tool.allow"

// Gate evaluates the tool policy. A nil *Gate allows every tool.
type Gate struct {
	allow *rego.PreparedEvalQuery
}

type printHook struct {
	ctx context.Context
}

func (h *printHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// New loads policies from policyDir. An empty policyDir or a directory without .rego files yields a nil Gate.
func New(ctx context.Context, policyDir string) (*Gate, error) {
	if policyDir == "" {
		return nil, nil
	}

	modules, err := loadModules(policyDir)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, nil
	}

	return NewFromModules(ctx, modules...)
}

// NewFromSource builds a Gate from a single policy source
func NewFromSource(ctx context.Context, name, source string) (*Gate, error) {
	return NewFromModules(ctx, rego.Module(name, source))
}

// NewFromModules builds a Gate from prepared rego module options
func NewFromModules(ctx context.Context, modules ...func(*rego.Rego)) (*Gate, error) {
	allow, err := prepareQuery(ctx, modules, allowQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare tool policy")
	}
	return &Gate{allow: allow}, nil
}

// Allow reports whether directive may be executed for topic
func (g *Gate) Allow(ctx context.Context, topic string, directive *model.Directive) (bool, error) {
	if g == nil || g.allow == nil {
		return true, nil
	}
	if directive == nil {
		return false, goerr.New("directive is nil")
	}

	args := make(map[string]any, len(directive.Args))
	for k, v := range directive.Args {
		args[k] = v
	}

	input := map[string]any{
		"tool":  directive.Tool,
		"args":  args,
		"topic": topic,
	}

	rs, err := g.allow.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&printHook{ctx: ctx}))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate tool policy", goerr.V("tool", directive.Tool))
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		logging.From(ctx).Warn("tool policy returned non-boolean, denying",
			"tool", directive.Tool, "value", rs[0].Expressions[0].Value)
		return false, nil
	}

	return allowed, nil
}
