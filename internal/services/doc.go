// Package services defines the shared error taxonomy for pipeline components.
//
// Errors are tagged with sentinel markers via Wrap so callers can classify
// failures with errors.Is without string matching: validation problems are
// surfaced before any file I/O, external tool failures abort a single job,
// lock errors are retryable, and quota errors are raised only while a batch
// is being constructed.
package services
