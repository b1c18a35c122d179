package registry

// Operation categories used for grouping in listings.
const (
	CategoryTimeline  = "timeline"
	CategoryTransform = "transform"
	CategoryAudio     = "audio"
	CategoryOverlay   = "overlay"
	CategoryEffects   = "effects"
)

// OpDualVideoMerge is referenced by the batch orchestrator when injecting a
// job's secondary video path.
const OpDualVideoMerge = "dual_video_merge"

func catalog() []OperationDef {
	return []OperationDef{
		{
			Name:     "trim",
			Category: CategoryTimeline,
			Params: []ParameterDef{
				{Name: "start", Type: TypeFloat, Default: 0.0, Min: floatPtr(0)},
				{Name: "end", Type: TypeFloat, Required: true, Min: floatPtr(0)},
			},
		},
		{
			Name:     "crop",
			Category: CategoryTransform,
			Params: []ParameterDef{
				{Name: "preset", Type: TypeString, Default: "9:16", Choices: []string{"9:16", "1:1", "4:5", "16:9", "custom"}},
				{Name: "x", Type: TypeInt, Default: 0, Min: floatPtr(0)},
				{Name: "y", Type: TypeInt, Default: 0, Min: floatPtr(0)},
				{Name: "width", Type: TypeInt, Default: 0, Min: floatPtr(0), Max: floatPtr(7680)},
				{Name: "height", Type: TypeInt, Default: 0, Min: floatPtr(0), Max: floatPtr(4320)},
			},
		},
		{
			Name:     "resize",
			Category: CategoryTransform,
			Params: []ParameterDef{
				{Name: "width", Type: TypeInt, Required: true, Min: floatPtr(16), Max: floatPtr(7680)},
				{Name: "height", Type: TypeInt, Required: true, Min: floatPtr(16), Max: floatPtr(4320)},
			},
		},
		{
			Name:     "rotate",
			Category: CategoryTransform,
			Params: []ParameterDef{
				{Name: "angle", Type: TypeInt, Default: 90, Min: floatPtr(-360), Max: floatPtr(360)},
			},
		},
		{
			Name:     "flip",
			Category: CategoryTransform,
			Params: []ParameterDef{
				{Name: "direction", Type: TypeString, Default: "horizontal", Choices: []string{"horizontal", "vertical"}},
			},
		},
		{
			Name:     "change_speed",
			Category: CategoryTimeline,
			Params: []ParameterDef{
				{Name: "factor", Type: TypeFloat, Default: 1.0, Min: floatPtr(0.25), Max: floatPtr(4.0)},
			},
		},
		{
			Name:     OpDualVideoMerge,
			Category: CategoryTransform,
			Params: []ParameterDef{
				{Name: "secondary_video_path", Type: TypeString, Default: ""},
				{Name: "layout", Type: TypeString, Default: "top_bottom", Choices: []string{"top_bottom", "side_by_side"}},
			},
		},
		{
			Name:     "adjust_volume",
			Category: CategoryAudio,
			Params: []ParameterDef{
				{Name: "volume", Type: TypeFloat, Default: 1.0, Min: floatPtr(0), Max: floatPtr(10)},
			},
		},
		{
			Name:     "remove_audio",
			Category: CategoryAudio,
		},
		{
			Name:     "replace_audio",
			Category: CategoryAudio,
			Params: []ParameterDef{
				{Name: "audio_path", Type: TypeString, Required: true},
				{Name: "keep_original", Type: TypeBool, Default: false},
			},
		},
		{
			Name:     "mix_audio",
			Category: CategoryAudio,
			Params: []ParameterDef{
				{Name: "audio_path", Type: TypeString, Required: true},
				{Name: "mix_volume", Type: TypeFloat, Default: 0.5, Min: floatPtr(0), Max: floatPtr(1)},
			},
		},
		{
			Name:     "add_text",
			Category: CategoryOverlay,
			Params: []ParameterDef{
				{Name: "text", Type: TypeString, Required: true},
				{Name: "font_size", Type: TypeInt, Default: 48, Min: floatPtr(8), Max: floatPtr(200)},
				{Name: "color", Type: TypeString, Default: "white"},
				{Name: "position", Type: TypeString, Default: "bottom", Choices: []string{"top", "center", "bottom"}},
			},
		},
		{
			Name:     "add_watermark",
			Category: CategoryOverlay,
			Params: []ParameterDef{
				{Name: "image_path", Type: TypeString, Required: true},
				{Name: "position", Type: TypeString, Default: "bottom_right", Choices: []string{"top_left", "top_right", "bottom_left", "bottom_right", "center"}},
				{Name: "opacity", Type: TypeFloat, Default: 0.8, Min: floatPtr(0), Max: floatPtr(1)},
			},
		},
		{
			Name:     "fade_in",
			Category: CategoryEffects,
			Params: []ParameterDef{
				{Name: "duration", Type: TypeFloat, Default: 1.0, Min: floatPtr(0), Max: floatPtr(30)},
			},
		},
		{
			Name:     "fade_out",
			Category: CategoryEffects,
			Params: []ParameterDef{
				{Name: "duration", Type: TypeFloat, Default: 1.0, Min: floatPtr(0), Max: floatPtr(30)},
			},
		},
		{
			Name:     "apply_filter",
			Category: CategoryEffects,
			Params: []ParameterDef{
				{Name: "name", Type: TypeString, Default: "grayscale", Choices: []string{"grayscale", "sepia", "vignette", "sharpen", "blur"}},
				{Name: "intensity", Type: TypeFloat, Default: 1.0, Min: floatPtr(0), Max: floatPtr(2)},
			},
		},
	}
}
