package preset

// SystemTemplates returns the built-in presets seeded into the system
// namespace. Names and operation payloads are stable across releases so
// seeding stays idempotent.
func SystemTemplates() []*Preset {
	return []*Preset{
		{
			Name:          "Vertical Short",
			Description:   "Convert landscape footage to 9:16 vertical format for short-form platforms",
			Author:        "ClipForge",
			Category:      "Format",
			SchemaVersion: SchemaV2,
			Operations: []Operation{
				{Name: "crop", Params: map[string]any{"preset": "9:16"}},
				{Name: "resize", Params: map[string]any{"width": 1080, "height": 1920}},
			},
			ExportSettings: ExportSettings{
				Quality:    "high",
				Format:     "mp4",
				Resolution: "1080x1920",
				VideoCodec: "libx264",
				AudioCodec: "aac",
			},
			Tags: []string{"vertical", "shorts"},
		},
		{
			Name:          "Mirror Zoom",
			Description:   "Mirror the frame horizontally and punch in slightly",
			Author:        "ClipForge",
			Category:      "Transform",
			SchemaVersion: SchemaV2,
			Operations: []Operation{
				{Name: "flip", Params: map[string]any{"direction": "horizontal"}},
				{Name: "crop", Params: map[string]any{"preset": "custom", "x": 96, "y": 54, "width": 1728, "height": 972}},
				{Name: "resize", Params: map[string]any{"width": 1920, "height": 1080}},
			},
			ExportSettings: DefaultExportSettings(),
			Tags:           []string{"transform"},
		},
		{
			Name:          "Voice Cleanup",
			Description:   "Lift speech volume and soften the clip edges",
			Author:        "ClipForge",
			Category:      "Audio",
			SchemaVersion: SchemaV2,
			Operations: []Operation{
				{Name: "adjust_volume", Params: map[string]any{"volume": 1.2}},
				{Name: "fade_in", Params: map[string]any{"duration": 0.3}},
				{Name: "fade_out", Params: map[string]any{"duration": 0.3}},
			},
			ExportSettings: DefaultExportSettings(),
			Tags:           []string{"audio", "voice"},
		},
	}
}
