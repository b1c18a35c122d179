// Package params provides the tagged parameter value type and the
// normalization step that adapts preset parameters to a backend method
// signature.
//
// Normalization is deliberately permissive: out-of-range numbers are clamped
// rather than rejected, unknown choices fall back to declared defaults, and
// missing required values are synthesized from defaults or a name-based
// heuristic table. Rejecting a whole batch job costs more than a slightly
// wrong parameter, so every guess is reported as a warning instead of an
// error.
package params
