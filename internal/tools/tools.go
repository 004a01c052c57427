// Package tools implements §4.J: command & tool dispatch. Each tool is a
// canonical-signature function that validates its parameters against a
// compiled JSON Schema before touching any service, obtains its domain
// service from the registry, and never throws across the tool boundary —
// every exit is a plain, possibly ❌/✅/⚠️-prefixed string. Grounded on the
// teacher's internal/engine/structured.go schema-compile-then-validate
// pattern (jsonschema.NewCompiler/AddResource/Compile), generalized from
// validating LLM structured output to validating tool parameter envelopes.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kickai/kickai/internal/registry"
)

// Params is the canonical parameter envelope every tool receives:
// telegram_id, team_id, chat_type plus command-specific extension keys.
type Params map[string]interface{}

func (p Params) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

func (p Params) StringSlice(key string) ([]string, bool) {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		out = append(out, s)
	}
	return out, true
}

// Handler is a tool's business logic, invoked only after parameter
// validation has passed and the required service has been located.
type Handler func(ctx context.Context, reg *registry.Registry, params Params) string

// Definition pairs a tool's compiled parameter schema with its handler.
type Definition struct {
	Name        string
	ServiceName string // the registry entry this tool depends on, "" if none
	schema      *jsonschema.Schema
	handler     Handler
}

// compileSchema compiles a JSON Schema literal at registration time so a
// malformed schema fails at startup, not on the first call.
func compileSchema(name string, schemaJSON string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("tool %s: unmarshal schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("tool %s: add schema resource: %w", name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", name, err)
	}
	return schema, nil
}

// NewDefinition compiles schemaJSON and pairs it with handler. Panics only
// on a malformed schema literal — a programmer error caught at registry
// construction, never at request time.
func NewDefinition(name, serviceName, schemaJSON string, handler Handler) Definition {
	schema, err := compileSchema(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return Definition{Name: name, ServiceName: serviceName, schema: schema, handler: handler}
}

// baseParamsSchema is embedded into every tool's schema: the three
// canonical parameters §4.J requires of every tool.
const baseParamsSchema = `{
  "type": "object",
  "required": ["telegram_id", "team_id", "chat_type"],
  "properties": {
    "telegram_id": {"type": "integer", "exclusiveMinimum": 0},
    "team_id": {"type": "string", "minLength": 1},
    "chat_type": {"type": "string", "minLength": 1}
  }
}`

// Registry is the command/tool dispatch table, keyed by tool name.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry builds an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a tool definition. Re-registering a name overwrites it.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
}

// Count returns the number of registered tools, used by the startup
// validator's registries phase (§4.G).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	return out
}

// Has reports whether a tool is registered — used by the startup
// validator's post-init smoke test ("look up the /help command").
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Dispatch validates params against the tool's schema, fails with a
// ❌-prefixed string naming the missing input on mismatch, otherwise
// invokes the handler. The handler itself is responsible for looking the
// service up in reg and reporting "service unavailable" (§4.J step 2);
// Dispatch never throws across the boundary, matching step 4's contract.
func (r *Registry) Dispatch(ctx context.Context, reg *registry.Registry, name string, params Params) (result string) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("❌ unknown command: %s", name)
	}

	if err := validateParams(def, params); err != nil {
		return "❌ " + err.Error()
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = fmt.Sprintf("❌ %s failed unexpectedly: %v", name, rec)
		}
	}()
	return def.handler(ctx, reg, params)
}

var baseSchema = func() *jsonschema.Schema {
	s, err := compileSchema("base", baseParamsSchema)
	if err != nil {
		panic(err)
	}
	return s
}()

func validateParams(def Definition, params Params) error {
	asJSON, err := json.Marshal(map[string]interface{}(params))
	if err != nil {
		return fmt.Errorf("%s: invalid parameter encoding", def.Name)
	}
	var decoded interface{}
	if err := json.Unmarshal(asJSON, &decoded); err != nil {
		return fmt.Errorf("%s: invalid parameter encoding", def.Name)
	}

	if err := baseSchema.Validate(decoded); err != nil {
		return fmt.Errorf("%s: missing or invalid required parameter (%v)", def.Name, simplifyValidationError(err))
	}
	if def.schema != nil {
		if err := def.schema.Validate(decoded); err != nil {
			return fmt.Errorf("%s: invalid parameters (%v)", def.Name, simplifyValidationError(err))
		}
	}
	return nil
}

func simplifyValidationError(err error) string {
	if verr, ok := err.(*jsonschema.ValidationError); ok && len(verr.Causes) > 0 {
		return simplifyValidationError(verr.Causes[0])
	}
	return err.Error()
}

// ServiceUnavailable is the canonical reply when a tool's required service
// cannot be located, §4.J step 2.
func ServiceUnavailable(serviceName string) string {
	return fmt.Sprintf("❌ service unavailable: %s", serviceName)
}
