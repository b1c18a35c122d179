// Package engine applies one preset to one media file with all-or-nothing
// semantics. In-place edits go through a temp sibling and an atomic swap so
// a failed run never leaves a partially written source behind.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/backend"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/params"
	"clipforge/internal/preset"
	"clipforge/internal/registry"
	"clipforge/internal/services"
)

// Progress is invoked before each operation with a human-readable label.
type Progress func(step, total int, label string)

// Engine drives preset application against a media backend.
type Engine struct {
	backend  backend.Backend
	registry *registry.Registry
	logger   *slog.Logger
}

func New(b backend.Backend, reg *registry.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		backend:  b,
		registry: reg,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
}

var titleCaser = cases.Title(language.English)

// StepLabel renders an operation name for progress display.
func StepLabel(operation string) string {
	return titleCaser.String(strings.ReplaceAll(operation, "_", " "))
}

// Apply runs every operation of the preset in order and exports the result
// to destination. The first operation failure aborts the whole application.
// A zero-operation preset is a plain convert.
func (e *Engine) Apply(ctx context.Context, p *preset.Preset, source, destination, quality string, progress Progress) error {
	if err := p.Validate(e.registry); err != nil {
		return err
	}

	inPlace := source == destination
	exportTarget := destination
	if inPlace {
		tmp, err := fileutil.TempSibling(destination)
		if err != nil {
			return services.Wrap(services.ErrTransient, "engine", "apply", "create temp file", err)
		}
		exportTarget = tmp
	}
	cleanup := func() {
		if inPlace {
			_ = os.Remove(exportTarget)
		}
	}

	handle, err := e.backend.Open(ctx, source)
	if err != nil {
		cleanup()
		return err
	}
	defer func() { _ = e.backend.Close(handle) }()

	total := len(p.Operations)
	for i, op := range p.Operations {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		if progress != nil {
			progress(i+1, total, StepLabel(op.Name))
		}

		def, ok := e.registry.Get(op.Name)
		if !ok {
			cleanup()
			return services.Wrap(services.ErrValidation, "engine", "apply",
				fmt.Sprintf("unknown operation %q", op.Name), nil)
		}
		sig, ok := e.backend.Signature(op.Name)
		if !ok {
			cleanup()
			return services.Wrap(services.ErrValidation, "engine", "apply",
				fmt.Sprintf("backend does not implement %q", op.Name), nil)
		}

		fixed, warnings := params.Normalize(def, op.Params, sig)
		for _, warning := range warnings {
			e.logger.Warn("parameter adjusted",
				logging.String("operation", op.Name),
				logging.String("detail", warning))
		}

		if err := e.backend.Apply(ctx, handle, op.Name, fixed); err != nil {
			cleanup()
			return fmt.Errorf("operation %d/%d (%s): %w", i+1, total, op.Name, err)
		}
	}

	if _, err := e.backend.Export(ctx, handle, exportTarget, quality); err != nil {
		cleanup()
		return err
	}

	if inPlace {
		if err := fileutil.ReplaceFile(exportTarget, destination); err != nil {
			return services.Wrap(services.ErrTransient, "engine", "apply", "swap edited file into place", err)
		}
	}

	e.logger.Info("preset applied",
		logging.String("preset", p.Name),
		logging.String("source", source),
		logging.String("destination", destination),
		logging.Int("operations", total))
	return nil
}
