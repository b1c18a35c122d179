package preset

import (
	"fmt"
	"strings"
	"time"

	"clipforge/internal/registry"
	"clipforge/internal/services"
)

// Schema versions the store understands.
const (
	SchemaV1 = "1.0"
	SchemaV2 = "2.0"
)

// Defaults filled in when loading a 1.0 document or an incomplete 2.0 one.
const (
	DefaultAuthor   = "User"
	DefaultCategory = "Custom"
)

// Operation is one step of a preset. Params hold the raw, loosely typed
// parameter map as authored; normalization happens at dispatch time.
type Operation struct {
	Name   string         `json:"operation_name"`
	Params map[string]any `json:"params,omitempty"`
}

// ExportSettings describe how the final transcode is encoded.
type ExportSettings struct {
	Quality      string `json:"quality"`
	Format       string `json:"format"`
	Resolution   string `json:"resolution,omitempty"`
	FPS          int    `json:"fps,omitempty"`
	VideoCodec   string `json:"video_codec,omitempty"`
	AudioCodec   string `json:"audio_codec,omitempty"`
	VideoBitrate string `json:"video_bitrate,omitempty"`
	AudioBitrate string `json:"audio_bitrate,omitempty"`
}

// DefaultExportSettings returns the settings assumed for documents that
// predate the export_settings field.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		Quality:    "high",
		Format:     "mp4",
		VideoCodec: "libx264",
		AudioCodec: "aac",
	}
}

// Preset is a named, ordered sequence of operations plus export settings.
// Operation order is execution order. Zero operations is a valid preset and
// means copy/convert only.
type Preset struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Author         string         `json:"author,omitempty"`
	Category       string         `json:"category,omitempty"`
	SchemaVersion  string         `json:"schema_version"`
	Operations     []Operation    `json:"operations"`
	ExportSettings ExportSettings `json:"export_settings"`
	CreatedAt      time.Time      `json:"created_at,omitempty"`
	ModifiedAt     time.Time      `json:"modified_at,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// upgrade fills fields that older schema versions omit. It mutates the preset
// in place and leaves SchemaVersion untouched so loading stays
// backward-readable without becoming backward-writing.
func (p *Preset) upgrade() {
	if strings.TrimSpace(p.SchemaVersion) == "" {
		p.SchemaVersion = SchemaV1
	}
	if strings.TrimSpace(p.Author) == "" {
		p.Author = DefaultAuthor
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
	if p.ExportSettings == (ExportSettings{}) {
		p.ExportSettings = DefaultExportSettings()
	}
}

// Validate checks structural fields and every operation against the registry.
func (p *Preset) Validate(reg *registry.Registry) error {
	if strings.TrimSpace(p.Name) == "" {
		return services.Wrap(services.ErrValidation, "preset", "validate", "preset name is required", nil)
	}
	switch p.SchemaVersion {
	case SchemaV1, SchemaV2:
	default:
		return services.Wrap(services.ErrValidation, "preset", "validate",
			fmt.Sprintf("unsupported schema version %q", p.SchemaVersion), nil)
	}
	for i, op := range p.Operations {
		result := reg.Validate(op.Name, op.Params)
		if !result.Valid {
			return services.Wrap(services.ErrValidation, "preset", "validate",
				fmt.Sprintf("operation %d (%s): %s", i+1, op.Name, strings.Join(result.Errors, "; ")), nil)
		}
	}
	return nil
}

// Clone returns a deep copy so cached documents cannot be mutated by callers.
func (p *Preset) Clone() *Preset {
	out := *p
	out.Operations = make([]Operation, len(p.Operations))
	for i, op := range p.Operations {
		cloned := Operation{Name: op.Name}
		if op.Params != nil {
			cloned.Params = make(map[string]any, len(op.Params))
			for k, v := range op.Params {
				cloned.Params[k] = v
			}
		}
		out.Operations[i] = cloned
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	return &out
}

// Summary is the listing view of a stored preset.
type Summary struct {
	Name           string    `json:"name"`
	Namespace      string    `json:"namespace"`
	Description    string    `json:"description,omitempty"`
	Author         string    `json:"author,omitempty"`
	Category       string    `json:"category,omitempty"`
	OperationCount int       `json:"operation_count"`
	ModifiedAt     time.Time `json:"modified_at,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
}
