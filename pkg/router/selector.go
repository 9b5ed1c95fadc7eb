package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/llmjson"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tools"
)

// Selector asks the model which registered tool fits an utterance.
type Selector struct {
	cfg      Config
	registry *tools.Registry
	prompt   string
}

// NewSelector creates a selector over registry.
func NewSelector(cfg Config, registry *tools.Registry) *Selector {
	return &Selector{
		cfg:      cfg.withDefaults("selector"),
		registry: registry,
		prompt:   selectPrompt(registry),
	}
}

func selectPrompt(registry *tools.Registry) string {
	var b strings.Builder
	b.WriteString("You are a precise AI that selects tools.\nAvailable tools:\n")
	for _, s := range registry.Specs() {
		args := "none"
		if names := argNames(s); len(names) > 0 {
			args = strings.Join(names, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s Arguments: %s.\n", s.Name, s.Description, args)
	}
	b.WriteString(`Respond ONLY with a JSON object of the form {"tool": "<tool name>", "arguments": {"<argument>": "<value>"}}.` + "\n")
	b.WriteString(`If no tool fits, respond {"tool": null, "arguments": {}}.`)
	return b.String()
}

func argNames(s tools.Spec) []string {
	var names, optional []string
	for _, name := range s.Required() {
		names = append(names, name+" (required)")
	}
	for name, required := range s.Args {
		if !required {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	return append(names, optional...)
}

// Select returns the chosen invocation, or false when no registered tool
// was chosen. Arguments may be incomplete; see Resolver.
func (s *Selector) Select(ctx context.Context, utterance string) (tools.Invocation, bool) {
	text, err := s.cfg.ask(ctx, s.prompt, utterance)
	if err != nil {
		s.cfg.Logger.Warn("tool selection failed", "error", err)
		return tools.Invocation{}, false
	}

	inv, ok := s.Parse(text)
	s.cfg.Logger.Debug("tool selected", "ok", ok, "invocation", inv, "raw", text)
	return inv, ok
}

// Parse turns a selector reply into an invocation.
//
// A reply that parses as a JSON object is trusted: its "tool" must name a
// registered tool. A reply that does not parse is scanned for a registered
// name, in registration order, and yields that tool with no arguments.
func (s *Selector) Parse(text string) (tools.Invocation, bool) {
	obj, err := llmjson.Object(text)
	if err != nil {
		return s.scan(text)
	}

	name, _ := obj["tool"].(string)
	spec, ok := s.registry.Lookup(name)
	if !ok {
		return tools.Invocation{}, false
	}

	args, _ := obj["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}
	return tools.Invocation{Tool: spec.Name, Arguments: args}, true
}

func (s *Selector) scan(text string) (tools.Invocation, bool) {
	lower := strings.ToLower(text)
	for _, name := range s.registry.Names() {
		if strings.Contains(lower, name) {
			return tools.Invocation{Tool: name, Arguments: map[string]any{}}, true
		}
	}
	return tools.Invocation{}, false
}
