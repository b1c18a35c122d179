// Package preset defines the versioned preset document and its namespaced
// on-disk store.
//
// Presets are JSON documents, one file per preset, stored under a namespace
// directory (system, user, imported). The system namespace is seeded from
// built-in templates and is read-only through the store API. Schema evolution
// is additive: 1.0 documents load cleanly with 2.0 fields filled from
// defaults, and loading never rewrites the file.
package preset
