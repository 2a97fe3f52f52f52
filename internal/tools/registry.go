package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"clausewise/internal/logging"
)

// Registry holds the available tools and executes them by name. It is
// safe for concurrent use, although a single review session drives it
// from one goroutine.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering a name twice replaces the earlier
// tool: last registration wins.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		logging.Debugf(logging.CategoryTools, "replacing tool: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	logging.Debugf(logging.CategoryTools, "registered tool: %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on a definition error. For
// static registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil when nothing is registered under it.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// All returns every registered tool, sorted by name for stable prompts.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name. A missing name yields ErrToolNotFound
// wrapped with the registered names so the caller can tell the model what
// is actually available. Argument-schema violations and executor panics
// come back as errors, never as a crash.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *Result {
	start := time.Now()

	tool := r.Get(name)
	if tool == nil {
		available := strings.Join(r.Names(), ", ")
		if available == "" {
			available = "none"
		}
		return &Result{
			ToolName:   name,
			Err:        fmt.Errorf("%w: %q (available tools: %s)", ErrToolNotFound, name, available),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	if err := validateArgs(tool, args); err != nil {
		return &Result{
			ToolName:   name,
			Err:        err,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	logging.Debugf(logging.CategoryTools, "executing tool: %s", name)
	output, err := runTool(ctx, tool, args)
	duration := time.Since(start)
	logging.Debugf(logging.CategoryTools, "tool %s completed in %v (success=%v)", name, duration, err == nil)

	return &Result{
		ToolName:   name,
		Output:     output,
		Err:        err,
		DurationMs: duration.Milliseconds(),
	}
}

// runTool invokes the executor, converting a panic into an error so a
// misbehaving tool can never take down the dispatch loop.
func runTool(ctx context.Context, tool *Tool, args map[string]any) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, rec)
		}
	}()
	return tool.Execute(ctx, args)
}

// validateArgs checks the arguments against the tool's declared schema.
func validateArgs(tool *Tool, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(tool.Schema.Document()),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidArgs, strings.Join(msgs, "; "))
	}
	return nil
}
