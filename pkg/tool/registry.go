package tool

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

var ErrToolNotFound = goerr.New("tool not found")

// Registry manages the tools available to the writer
type Registry struct {
	tools    map[string]Tool
	allTools []Tool
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	r := &Registry{
		tools:    make(map[string]Tool),
		allTools: tools,
	}

	for _, t := range tools {
		r.tools[t.Name()] = t
	}

	return r
}

// Names returns tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.allTools))
	for _, t := range r.allTools {
		names = append(names, t.Name())
	}
	return names
}

// Has reports whether a tool is registered under name
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Prompts returns all tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.allTools {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.allTools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Execute runs the named tool
func (r *Registry) Execute(ctx context.Context, name string, in *Input) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", goerr.Wrap(ErrToolNotFound, "tool not found", goerr.V("name", name))
	}

	return t.Execute(ctx, in)
}
