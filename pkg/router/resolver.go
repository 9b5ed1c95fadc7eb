package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/llmjson"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tools"
)

// Resolver fills in required tool arguments the selector left out.
type Resolver struct {
	cfg Config
}

// NewResolver creates a resolver.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults("resolver")}
}

// Resolve returns complete arguments for spec.
//
// When nothing required is missing, partial is returned unchanged and the
// backend is not called. Otherwise the model is asked for the missing names
// once; any failure, or a value still missing afterwards, is ErrBadArguments.
func (r *Resolver) Resolve(ctx context.Context, spec tools.Spec, partial map[string]any, utterance string) (map[string]any, error) {
	missing := spec.Missing(partial)
	if len(missing) == 0 {
		return partial, nil
	}
	if strings.TrimSpace(utterance) == "" {
		return nil, fmt.Errorf("%w: %s needs %s", ErrBadArguments, spec.Name, strings.Join(missing, ", "))
	}

	text, err := r.cfg.ask(ctx, resolvePrompt(spec, missing), utterance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}

	obj, err := llmjson.Object(text)
	if err != nil {
		r.cfg.Logger.Warn("unparseable arguments", "tool", spec.Name, "raw", text)
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}

	args := make(map[string]any, len(partial)+len(missing))
	for k, v := range partial {
		args[k] = v
	}
	for name := range spec.Args {
		if v, ok := obj[name]; ok && isUnset(args[name]) {
			args[name] = v
		}
	}

	if still := spec.Missing(args); len(still) > 0 {
		return nil, fmt.Errorf("%w: %s still needs %s", ErrBadArguments, spec.Name, strings.Join(still, ", "))
	}

	r.cfg.Logger.Debug("arguments resolved", "tool", spec.Name, "args", args)
	return args, nil
}

func isUnset(v any) bool {
	s, isString := v.(string)
	return v == nil || (isString && strings.TrimSpace(s) == "")
}

func resolvePrompt(spec tools.Spec, missing []string) string {
	example := make([]string, len(missing))
	for i, name := range missing {
		example[i] = fmt.Sprintf("%q: \"...\"", name)
	}
	return fmt.Sprintf(`You are a precise AI that provides function arguments.
The function is %s: %s
Provide values for: %s.
For example, for the request "hotdog photos" and search_web, respond {"query": "hotdog photos"}.
Respond ONLY with strictly valid JSON of the form {%s} and nothing else.`,
		spec.Name, spec.Description, strings.Join(missing, ", "), strings.Join(example, ", "))
}
