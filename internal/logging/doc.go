// Package logging builds the slog loggers used across clipforge.
//
// Two output formats are supported: a human-oriented console format used on
// terminals and a JSON format for log files and machine consumption. Helpers
// mirror the slog attribute constructors so call sites stay terse, and
// component loggers attach a standardized "component" attribute.
package logging
