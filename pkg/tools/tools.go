// Package tools holds the closed set of local tools the assistant can run
// and the executor that turns a tool invocation into speakable text.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownTool is returned when an invocation names a tool that is not registered.
	ErrUnknownTool = errors.New("tools: unknown tool")

	// ErrDuplicateTool is returned when two specs share a name.
	ErrDuplicateTool = errors.New("tools: duplicate tool name")

	// ErrInvalidSpec is returned for specs without a name or function.
	ErrInvalidSpec = errors.New("tools: invalid tool spec")
)

// Func is a tool implementation. The result may be nil, a string, a byte
// slice or an io.Reader; see Payload.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Spec describes one tool.
type Spec struct {
	// Name is the identifier models must answer with (e.g. "search_web").
	Name string

	// Description is shown to the selector model.
	Description string

	// Args maps each argument name to whether it is required.
	Args map[string]bool

	// Describe marks tools whose result is an image to be described by a
	// vision model instead of being spoken directly.
	Describe bool

	// Func runs the tool.
	Func Func
}

// Required returns the required argument names, sorted.
func (s Spec) Required() []string {
	var names []string
	for name, required := range s.Args {
		if required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Missing returns the required arguments that args does not provide.
// An argument is missing when its key is absent, its value is nil, or its
// value is a blank string.
func (s Spec) Missing(args map[string]any) []string {
	var missing []string
	for _, name := range s.Required() {
		if isBlank(args[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// Invocation is a request to run a tool.
type Invocation struct {
	Tool      string
	Arguments map[string]any
}

func (inv Invocation) String() string {
	return fmt.Sprintf("%s(%v)", inv.Tool, inv.Arguments)
}

// Registry is an ordered, read-only set of tools.
// It is safe for concurrent use once built.
type Registry struct {
	specs  []Spec
	byName map[string]int
}

// NewRegistry builds a registry. Order of specs is kept.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		specs:  make([]Spec, 0, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		name := canonical(s.Name)
		if name == "" || s.Func == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, s.Name)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		s.Name = name
		r.byName[name] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// Lookup returns the spec registered under name. Matching ignores case and
// surrounding whitespace.
func (r *Registry) Lookup(name string) (Spec, bool) {
	i, ok := r.byName[canonical(name)]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

// Specs returns a copy of the registered specs in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.specs)
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
