package params

import (
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/registry"
)

// Signature describes the parameter set a backend method accepts.
type Signature struct {
	Required []string
	Optional []string
	// CatchAll marks methods that accept arbitrary extra parameters.
	CatchAll bool
}

// Accepts reports whether the signature takes a parameter of this name.
func (s Signature) Accepts(name string) bool {
	if s.CatchAll {
		return true
	}
	for _, p := range s.Required {
		if p == name {
			return true
		}
	}
	for _, p := range s.Optional {
		if p == name {
			return true
		}
	}
	return false
}

// Map is a normalized parameter set keyed by parameter name.
type Map map[string]Value

// Normalize adapts raw preset parameters to a backend method signature.
// The returned map always satisfies the signature's required set; every
// adjustment is reported in warnings.
func Normalize(def registry.OperationDef, raw map[string]any, sig Signature) (Map, []string) {
	var warnings []string
	fixed := make(Map, len(raw))

	for name, rawValue := range raw {
		value := FromAny(rawValue)

		if !sig.Accepts(name) {
			warnings = append(warnings, fmt.Sprintf("%s: dropping parameter %q; backend does not accept it", def.Name, name))
			continue
		}

		pd, declared := def.Param(name)
		if !declared {
			// Catch-all passthrough for forward compatibility.
			fixed[name] = value
			continue
		}

		coerced, ok := coerce(value, pd.Type)
		if !ok {
			fallback := defaultFor(pd)
			warnings = append(warnings, fmt.Sprintf("%s: parameter %q value %v is not coercible to %s; using %v", def.Name, name, value, pd.Type, fallback))
			fixed[name] = fallback
			continue
		}
		if !coerced.Equal(value) {
			warnings = append(warnings, fmt.Sprintf("%s: coerced parameter %q from %s to %s", def.Name, name, value.Kind(), coerced.Kind()))
		}

		if clamped, note := clamp(coerced, pd); note != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", def.Name, note))
			coerced = clamped
		}

		if resolved, note := resolveChoice(coerced, pd); note != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", def.Name, note))
			coerced = resolved
		} else if resolved.IsValid() {
			coerced = resolved
		}

		if isColorParam(name) {
			if s, ok := coerced.Str(); ok {
				if canonical := canonicalColor(s); canonical != s {
					warnings = append(warnings, fmt.Sprintf("%s: resolved color %q to %q", def.Name, s, canonical))
					coerced = String(canonical)
				}
			}
		}

		fixed[name] = coerced
	}

	for _, required := range sig.Required {
		if _, present := fixed[required]; present {
			continue
		}
		value := synthesize(def, required)
		warnings = append(warnings, fmt.Sprintf("%s: backend requires parameter %q; guessing %v", def.Name, required, value))
		fixed[required] = value
	}

	return fixed, warnings
}

func coerce(v Value, t registry.Type) (Value, bool) {
	switch t {
	case registry.TypeInt:
		if i, ok := v.Int(); ok {
			return Int(i), true
		}
		if s, ok := v.Str(); ok {
			if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return Int(i), true
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && f == float64(int64(f)) {
				return Int(int64(f)), true
			}
		}
	case registry.TypeFloat:
		if f, ok := v.Float(); ok {
			return Float(f), true
		}
		if s, ok := v.Str(); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return Float(f), true
			}
		}
	case registry.TypeBool:
		if b, ok := v.Bool(); ok {
			return Bool(b), true
		}
		if s, ok := v.Str(); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "yes", "1", "on":
				return Bool(true), true
			case "false", "no", "0", "off":
				return Bool(false), true
			}
		}
		if i, ok := v.Int(); ok {
			return Bool(i != 0), true
		}
	case registry.TypeString:
		switch v.Kind() {
		case KindString:
			return v, true
		case KindInt, KindFloat, KindBool:
			return String(v.String()), true
		}
	case registry.TypeTuple:
		if items, ok := v.Items(); ok {
			return Tuple(items...), true
		}
	case registry.TypeList:
		if items, ok := v.Items(); ok {
			return List(items...), true
		}
	}
	return Value{}, false
}

func clamp(v Value, pd registry.ParameterDef) (Value, string) {
	if pd.Min == nil && pd.Max == nil {
		return v, ""
	}
	num, ok := v.Float()
	if !ok {
		return v, ""
	}
	clamped := num
	if pd.Min != nil && clamped < *pd.Min {
		clamped = *pd.Min
	}
	if pd.Max != nil && clamped > *pd.Max {
		clamped = *pd.Max
	}
	if clamped == num {
		return v, ""
	}
	note := fmt.Sprintf("clamped parameter %q from %v to %v", pd.Name, num, clamped)
	if v.Kind() == KindInt {
		return Int(int64(clamped)), note
	}
	return Float(clamped), note
}

func resolveChoice(v Value, pd registry.ParameterDef) (Value, string) {
	if len(pd.Choices) == 0 {
		return Value{}, ""
	}
	s, ok := v.Str()
	if !ok {
		return Value{}, ""
	}
	if canonical, matched := registry.MatchChoice(pd, s); matched {
		if canonical == s {
			return v, ""
		}
		return String(canonical), ""
	}
	fallback := registry.FallbackChoice(pd)
	return String(fallback), fmt.Sprintf("parameter %q value %q is not a known choice; using %q", pd.Name, s, fallback)
}

func defaultFor(pd registry.ParameterDef) Value {
	if pd.Default != nil {
		return FromAny(pd.Default)
	}
	return heuristicFor(pd.Name)
}

func synthesize(def registry.OperationDef, name string) Value {
	if pd, ok := def.Param(name); ok && pd.Default != nil {
		return FromAny(pd.Default)
	}
	return heuristicFor(name)
}

// heuristicFor guesses a workable value from the parameter name alone. The
// table intentionally favors neutral values over aborting the job.
func heuristicFor(name string) Value {
	lowered := strings.ToLower(name)
	switch {
	case strings.Contains(lowered, "volume"):
		return Float(1.0)
	case strings.Contains(lowered, "width"):
		return Int(1920)
	case strings.Contains(lowered, "height"):
		return Int(1080)
	case strings.Contains(lowered, "colour"), strings.Contains(lowered, "color"):
		return String("black")
	case strings.Contains(lowered, "path"), strings.Contains(lowered, "file"):
		return String("")
	case strings.Contains(lowered, "speed"), strings.Contains(lowered, "factor"):
		return Float(1.0)
	case strings.Contains(lowered, "duration"):
		return Float(1.0)
	case strings.Contains(lowered, "angle"), strings.Contains(lowered, "rotation"):
		return Int(90)
	case strings.Contains(lowered, "opacity"), strings.Contains(lowered, "alpha"):
		return Float(1.0)
	case strings.Contains(lowered, "size"):
		return Int(48)
	case strings.Contains(lowered, "position"):
		return String("center")
	default:
		return String("")
	}
}

func isColorParam(name string) bool {
	lowered := strings.ToLower(name)
	return strings.Contains(lowered, "color") || strings.Contains(lowered, "colour")
}

// colorAliases maps common synonyms to the canonical tokens the transcoder
// understands.
var colorAliases = map[string]string{
	"grey":      "gray",
	"lightgrey": "lightgray",
	"darkgrey":  "darkgray",
	"off-white": "white",
	"offwhite":  "white",
	"navy blue": "navy",
}

func canonicalColor(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if canonical, ok := colorAliases[lowered]; ok {
		return canonical
	}
	return lowered
}
