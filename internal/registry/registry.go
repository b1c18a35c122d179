package registry

import (
	"fmt"
	"math"
	"strings"
)

// Type enumerates the parameter types operations may declare.
type Type string

const (
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
	TypeString Type = "string"
	TypeTuple  Type = "tuple"
	TypeList   Type = "list"
)

// ParameterDef describes a single operation parameter.
type ParameterDef struct {
	Name     string
	Type     Type
	Required bool
	Default  any
	Min      *float64
	Max      *float64
	Choices  []string
}

// OperationDef describes a named edit operation. Params preserve declaration
// order.
type OperationDef struct {
	Name     string
	Category string
	Params   []ParameterDef
}

// Param returns the parameter definition with the given name.
func (d OperationDef) Param(name string) (ParameterDef, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDef{}, false
}

// Result reports the outcome of validating an operation's parameters.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Registry is the process-wide read-only operation catalog.
type Registry struct {
	ops   map[string]OperationDef
	order []string
}

// New builds a registry from the fixed catalog.
func New() *Registry {
	defs := catalog()
	r := &Registry{
		ops:   make(map[string]OperationDef, len(defs)),
		order: make([]string, 0, len(defs)),
	}
	for _, def := range defs {
		r.ops[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	return r
}

// Has reports whether an operation is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.ops[name]
	return ok
}

// Get returns the definition for an operation.
func (r *Registry) Get(name string) (OperationDef, bool) {
	def, ok := r.ops[name]
	return def, ok
}

// Names returns operation names in catalog order.
func (r *Registry) Names() []string {
	cp := make([]string, len(r.order))
	copy(cp, r.order)
	return cp
}

// Validate checks params against an operation's schema. Unknown parameters
// and clampable range violations are warnings; unknown operations, missing
// required parameters, and type mismatches are errors.
func (r *Registry) Validate(name string, params map[string]any) Result {
	res := Result{Valid: true}

	def, ok := r.ops[name]
	if !ok {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("unknown operation %q", name))
		return res
	}

	for supplied := range params {
		if _, declared := def.Param(supplied); !declared {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: parameter %q is not declared and will be ignored unless the backend accepts it", name, supplied))
		}
	}

	for _, pd := range def.Params {
		value, present := params[pd.Name]
		if !present {
			if pd.Required {
				res.Valid = false
				res.Errors = append(res.Errors, fmt.Sprintf("%s: required parameter %q is missing", name, pd.Name))
			}
			continue
		}

		if err := checkType(pd, value); err != nil {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		if warn := checkRange(pd, value); warn != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", name, warn))
		}

		if warn := checkChoices(pd, value); warn != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", name, warn))
		}
	}

	return res
}

func checkType(pd ParameterDef, value any) error {
	switch pd.Type {
	case TypeInt:
		switch v := value.(type) {
		case int, int64:
			return nil
		case float64:
			if v != math.Trunc(v) {
				return fmt.Errorf("parameter %q must be an integer, got %v", pd.Name, v)
			}
			return nil
		case float32:
			if float64(v) != math.Trunc(float64(v)) {
				return fmt.Errorf("parameter %q must be an integer, got %v", pd.Name, v)
			}
			return nil
		}
	case TypeFloat:
		// Ints widen to float.
		switch value.(type) {
		case int, int64, float32, float64:
			return nil
		}
	case TypeBool:
		if _, ok := value.(bool); ok {
			return nil
		}
	case TypeString:
		if _, ok := value.(string); ok {
			return nil
		}
	case TypeTuple, TypeList:
		// Lists widen to tuple-like sequences.
		if _, ok := value.([]any); ok {
			return nil
		}
	}
	return fmt.Errorf("parameter %q must be of type %s, got %T", pd.Name, pd.Type, value)
}

func checkRange(pd ParameterDef, value any) string {
	if pd.Min == nil && pd.Max == nil {
		return ""
	}
	num, ok := asFloat(value)
	if !ok {
		return ""
	}
	if pd.Min != nil && num < *pd.Min {
		return fmt.Sprintf("parameter %q value %v is below minimum %v and will be clamped", pd.Name, num, *pd.Min)
	}
	if pd.Max != nil && num > *pd.Max {
		return fmt.Sprintf("parameter %q value %v is above maximum %v and will be clamped", pd.Name, num, *pd.Max)
	}
	return ""
}

func checkChoices(pd ParameterDef, value any) string {
	if len(pd.Choices) == 0 {
		return ""
	}
	str, ok := value.(string)
	if !ok {
		return ""
	}
	for _, choice := range pd.Choices {
		if strings.EqualFold(choice, str) {
			return ""
		}
	}
	fallback := fallbackChoice(pd)
	return fmt.Sprintf("parameter %q value %q is not a known choice; falling back to %q", pd.Name, str, fallback)
}

// FallbackChoice returns the value a non-matching choice parameter resolves
// to: the declared default when present, otherwise the first choice.
func FallbackChoice(pd ParameterDef) string {
	return fallbackChoice(pd)
}

func fallbackChoice(pd ParameterDef) string {
	if s, ok := pd.Default.(string); ok && s != "" {
		return s
	}
	if len(pd.Choices) > 0 {
		return pd.Choices[0]
	}
	return ""
}

// MatchChoice resolves a value against a parameter's choices
// case-insensitively, returning the canonical choice.
func MatchChoice(pd ParameterDef, value string) (string, bool) {
	for _, choice := range pd.Choices {
		if strings.EqualFold(choice, value) {
			return choice, true
		}
	}
	return "", false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func floatPtr(v float64) *float64 { return &v }
