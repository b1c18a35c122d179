// Package registry holds the declarative catalog of edit operations and
// their parameter schemas.
//
// The catalog is fixed at process start and is not user-extensible; every
// preset operation is validated against it before any file I/O happens.
// Unknown parameters produce warnings rather than errors so presets written
// against a newer catalog still load.
package registry
