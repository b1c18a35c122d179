package ffmpeg

import (
	"errors"
	"fmt"

	"clipforge/internal/params"
)

// operation binds a method signature to the builder that records the
// operation on a session.
type operation struct {
	sig   params.Signature
	build func(s *session, p params.Map) error
}

// operations is the dispatch table keyed by registry operation name.
var operations = map[string]operation{
	"trim": {
		sig: params.Signature{Required: []string{"end"}, Optional: []string{"start"}},
		build: func(s *session, p params.Map) error {
			end, ok := p["end"].Float()
			if !ok {
				return errors.New("end must be numeric")
			}
			start, _ := p["start"].Float()
			if end <= start {
				return fmt.Errorf("end %v must be after start %v", end, start)
			}
			s.trimStart = start
			s.trimEnd = end
			s.hasTrim = true
			return nil
		},
	},
	"crop": {
		sig: params.Signature{Optional: []string{"preset", "x", "y", "width", "height"}},
		build: func(s *session, p params.Map) error {
			fragment, err := cropFragment(p, s.info)
			if err != nil {
				return err
			}
			s.video = append(s.video, fragment)
			return nil
		},
	},
	"resize": {
		sig: params.Signature{Required: []string{"width", "height"}},
		build: func(s *session, p params.Map) error {
			w, okW := p["width"].Int()
			h, okH := p["height"].Int()
			if !okW || !okH || w <= 0 || h <= 0 {
				return errors.New("width and height must be positive integers")
			}
			s.video = append(s.video, scaleFragment(int(w), int(h)))
			return nil
		},
	},
	"rotate": {
		sig: params.Signature{Optional: []string{"angle"}},
		build: func(s *session, p params.Map) error {
			angle, ok := p["angle"].Int()
			if !ok {
				angle = 90
			}
			s.video = append(s.video, rotateFragment(int(angle)))
			return nil
		},
	},
	"flip": {
		sig: params.Signature{Optional: []string{"direction"}},
		build: func(s *session, p params.Map) error {
			direction, _ := p["direction"].Str()
			s.video = append(s.video, flipFragment(direction))
			return nil
		},
	},
	"change_speed": {
		sig: params.Signature{Optional: []string{"factor"}},
		build: func(s *session, p params.Map) error {
			factor, ok := p["factor"].Float()
			if !ok || factor <= 0 {
				return errors.New("factor must be a positive number")
			}
			video, audio := speedFragments(factor)
			s.video = append(s.video, video)
			s.audio = append(s.audio, audio...)
			return nil
		},
	},
	"dual_video_merge": {
		sig: params.Signature{Required: []string{"secondary_video_path"}, Optional: []string{"layout"}},
		build: func(s *session, p params.Map) error {
			secondary, _ := p["secondary_video_path"].Str()
			if secondary == "" {
				return errors.New("secondary_video_path is required")
			}
			layout, _ := p["layout"].Str()
			index := s.addInput(secondary)
			s.stack = &stackSpec{inputIndex: index, vertical: layout != "side_by_side"}
			return nil
		},
	},
	"adjust_volume": {
		sig: params.Signature{Required: []string{"volume"}},
		build: func(s *session, p params.Map) error {
			volume, ok := p["volume"].Float()
			if !ok || volume < 0 {
				return errors.New("volume must be a non-negative number")
			}
			s.audio = append(s.audio, volumeFragment(volume))
			return nil
		},
	},
	"remove_audio": {
		sig: params.Signature{},
		build: func(s *session, p params.Map) error {
			s.dropAudio = true
			return nil
		},
	},
	"replace_audio": {
		sig: params.Signature{Required: []string{"audio_path"}, Optional: []string{"keep_original"}},
		build: func(s *session, p params.Map) error {
			path, _ := p["audio_path"].Str()
			if path == "" {
				return errors.New("audio_path is required")
			}
			keep, _ := p["keep_original"].Bool()
			index := s.addInput(path)
			s.mix = &mixSpec{inputIndex: index, keepOriginal: keep, volume: 1.0}
			return nil
		},
	},
	"mix_audio": {
		sig: params.Signature{Required: []string{"audio_path"}, Optional: []string{"mix_volume"}},
		build: func(s *session, p params.Map) error {
			path, _ := p["audio_path"].Str()
			if path == "" {
				return errors.New("audio_path is required")
			}
			volume, ok := p["mix_volume"].Float()
			if !ok {
				volume = 0.5
			}
			index := s.addInput(path)
			s.mix = &mixSpec{inputIndex: index, keepOriginal: true, volume: volume}
			return nil
		},
	},
	"add_text": {
		sig: params.Signature{Required: []string{"text"}, Optional: []string{"font_size", "color", "position"}},
		build: func(s *session, p params.Map) error {
			text, _ := p["text"].Str()
			if text == "" {
				return errors.New("text is required")
			}
			size, ok := p["font_size"].Int()
			if !ok {
				size = 48
			}
			color, _ := p["color"].Str()
			if color == "" {
				color = "white"
			}
			position, _ := p["position"].Str()
			s.video = append(s.video, drawtextFragment(text, int(size), color, position))
			return nil
		},
	},
	"add_watermark": {
		sig: params.Signature{Required: []string{"image_path"}, Optional: []string{"position", "opacity"}},
		build: func(s *session, p params.Map) error {
			path, _ := p["image_path"].Str()
			if path == "" {
				return errors.New("image_path is required")
			}
			position, _ := p["position"].Str()
			opacity, ok := p["opacity"].Float()
			if !ok {
				opacity = 0.8
			}
			index := s.addInput(path)
			s.overlays = append(s.overlays, overlaySpec{
				inputIndex: index,
				position:   overlayPosition(position),
				opacity:    opacity,
			})
			return nil
		},
	},
	"fade_in": {
		sig: params.Signature{Required: []string{"duration"}},
		build: func(s *session, p params.Map) error {
			duration, ok := p["duration"].Float()
			if !ok || duration < 0 {
				return errors.New("duration must be a non-negative number")
			}
			video, audio := fadeFragments(true, duration, s.info.Duration)
			s.video = append(s.video, video)
			s.audio = append(s.audio, audio)
			return nil
		},
	},
	"fade_out": {
		sig: params.Signature{Required: []string{"duration"}},
		build: func(s *session, p params.Map) error {
			duration, ok := p["duration"].Float()
			if !ok || duration < 0 {
				return errors.New("duration must be a non-negative number")
			}
			video, audio := fadeFragments(false, duration, s.info.Duration)
			s.video = append(s.video, video)
			s.audio = append(s.audio, audio)
			return nil
		},
	},
	"apply_filter": {
		sig: params.Signature{Required: []string{"name"}, Optional: []string{"intensity"}},
		build: func(s *session, p params.Map) error {
			name, _ := p["name"].Str()
			intensity, ok := p["intensity"].Float()
			if !ok {
				intensity = 1.0
			}
			fragment, err := effectFragment(name, intensity)
			if err != nil {
				return err
			}
			s.video = append(s.video, fragment)
			return nil
		},
	},
}
