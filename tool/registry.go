package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

// Registry holds the tools available to an orchestrator. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	specs  map[string]*Spec
	logger logging.Logger
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Logger receives tool dispatch events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{specs: make(map[string]*Spec), logger: opts.Logger}
}

// Register adds a tool spec. Registering an already used name fails with
// DuplicateToolError and leaves the registry unchanged.
func (r *Registry) Register(spec *Spec) error {
	if spec == nil {
		return &SpecError{Name: "", Message: "spec must not be nil"}
	}
	if strings.TrimSpace(spec.Name) == "" {
		return &SpecError{Name: spec.Name, Message: "name must not be empty"}
	}
	if spec.Handler == nil {
		return &SpecError{Name: spec.Name, Message: "handler must not be nil"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}
	r.specs[spec.Name] = spec
	return nil
}

// MustRegister registers a spec and panics on failure. Intended for built-in
// tool wiring at construction time.
func (r *Registry) MustRegister(spec *Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[name]
	return ok
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions to expose to a model, sorted by
// name for deterministic request payloads.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]model.ToolDefinition, 0, len(r.specs))
	for _, spec := range r.specs {
		defs = append(defs, model.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke runs the named tool with the given arguments. It never returns a Go
// error: unknown tools, invalid arguments and handler panics all surface as
// error results so the turn can continue.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result Result) {
	r.mu.RLock()
	spec, ok := r.specs[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("tool.call.unknown", "tool", name)
		return Errf(CodeUnknownTool, "tool '%s' is not registered", name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if spec.Parameters != nil {
		if err := util.ValidateParameters(args, spec.Parameters); err != nil {
			r.logger.Warn("tool.call.invalid_args", "tool", name, "error", err)
			return Errf(CodeInvalidArguments, "%s", err.Error())
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool.call.panic", "tool", name, "panic", fmt.Sprintf("%v", rec))
			result = Errf(CodeExecutionError, "tool '%s' panicked: %v", name, rec)
		}
	}()

	r.logger.Debug("tool.call.start", "tool", name)
	result = spec.Handler(ctx, args)
	if result.OK {
		r.logger.Debug("tool.call.done", "tool", name)
	} else {
		r.logger.Warn("tool.call.failed", "tool", name, "code", string(result.Code), "message", result.Message)
	}
	return result
}
