package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"clipforge/internal/backend"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// qualityCRF maps the quality names to x264 CRF values.
var qualityCRF = map[string]int{
	"low":    28,
	"medium": 23,
	"high":   18,
}

func crfFor(quality string) int {
	if crf, ok := qualityCRF[quality]; ok {
		return crf
	}
	return qualityCRF["medium"]
}

// Export assembles the accumulated operations into one ffmpeg invocation and
// writes the destination file.
func (c *Client) Export(ctx context.Context, h backend.Handle, destination, quality string) (int64, error) {
	s, ok := h.(*session)
	if !ok {
		return 0, fmt.Errorf("foreign handle %T", h)
	}

	args := buildExportArgs(s, destination, quality)
	if err := c.transcode(ctx, args, "export"); err != nil {
		return 0, err
	}

	fi, err := os.Stat(destination)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffmpeg", "export",
			fmt.Sprintf("transcode produced no output at %s", destination), err)
	}
	c.logger.Debug("export complete",
		logging.String("destination", destination),
		logging.Int64("bytes", fi.Size()))
	return fi.Size(), nil
}

// transcode runs ffmpeg and classifies the failure mode: timeout, rejected
// filter arguments, or a generic external-tool error.
func (c *Client) transcode(ctx context.Context, args []string, operation string) error {
	full := append(c.globalArgs(), args...)
	_, stderr, err := c.run(ctx, c.binary, full)
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrTimeout) {
		return err
	}
	if isFilterStderr(stderr) {
		return &backend.FilterError{Operation: operation, Stderr: stderr, Err: err}
	}
	return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, firstStderrLine(stderr), err)
}

func firstStderrLine(stderr string) string {
	line := strings.TrimSpace(stderr)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if line == "" {
		return "transcode failed"
	}
	return line
}

// buildExportArgs turns a session into an argument list. Kept free of
// side effects so the assembly is testable without running ffmpeg.
func buildExportArgs(s *session, destination, quality string) []string {
	args := []string{"-i", s.source}
	for _, input := range s.inputs {
		args = append(args, "-i", input)
	}

	if s.hasTrim {
		args = append(args, "-ss", trimFloat(s.trimStart), "-to", trimFloat(s.trimEnd))
	}

	needComplex := s.stack != nil || len(s.overlays) > 0 || s.mix != nil
	if needComplex {
		graph, videoLabel, audioLabel := buildFilterComplex(s)
		args = append(args, "-filter_complex", graph, "-map", videoLabel)
		switch {
		case s.dropAudio:
			args = append(args, "-an")
		case audioLabel != "":
			args = append(args, "-map", audioLabel)
		default:
			args = append(args, "-map", "0:a?")
		}
	} else {
		if len(s.video) > 0 {
			args = append(args, "-vf", strings.Join(s.video, ","))
		}
		switch {
		case s.dropAudio:
			args = append(args, "-an")
		case len(s.audio) > 0:
			args = append(args, "-af", strings.Join(s.audio, ","))
		}
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", strconv.Itoa(crfFor(quality)),
		"-pix_fmt", "yuv420p",
	)
	if !s.dropAudio {
		args = append(args, "-c:a", "aac")
	}
	return append(args, destination)
}

// buildFilterComplex assembles the graph for sessions that need multiple
// inputs. Returns the graph plus the output video and audio labels; an empty
// audio label means the caller should map source audio directly.
func buildFilterComplex(s *session) (string, string, string) {
	var stages []string
	current := "[0:v]"

	if len(s.video) > 0 {
		stages = append(stages, current+strings.Join(s.video, ",")+"[main]")
		current = "[main]"
	}

	if s.stack != nil {
		mode := "vstack"
		scale := fmt.Sprintf("scale=%d:-2", even(s.info.Width))
		if !s.stack.vertical {
			mode = "hstack"
			scale = fmt.Sprintf("scale=-2:%d", even(s.info.Height))
		}
		stages = append(stages, fmt.Sprintf("[%d:v]%s[sec]", s.stack.inputIndex, scale))
		stages = append(stages, fmt.Sprintf("%s[sec]%s=inputs=2[stacked]", current, mode))
		current = "[stacked]"
	}

	for i, overlay := range s.overlays {
		wm := fmt.Sprintf("[wm%d]", i)
		out := fmt.Sprintf("[ov%d]", i)
		stages = append(stages, fmt.Sprintf("[%d:v]format=rgba,colorchannelmixer=aa=%s%s",
			overlay.inputIndex, trimFloat(overlay.opacity), wm))
		stages = append(stages, fmt.Sprintf("%s%soverlay=%s%s", current, wm, overlay.position, out))
		current = out
	}

	videoLabel := "[vout]"
	if current == "[0:v]" {
		stages = append(stages, "[0:v]null[vout]")
	} else {
		stages = append(stages, current+"null[vout]")
	}

	audioLabel := ""
	if s.mix != nil && !s.dropAudio {
		chain := strings.Join(s.audio, ",")
		if s.mix.keepOriginal {
			stages = append(stages, fmt.Sprintf("[%d:a]volume=%s[mixin]",
				s.mix.inputIndex, trimFloat(s.mix.volume)))
			if chain != "" {
				stages = append(stages, "[0:a][mixin]amix=inputs=2:duration=first[premix]")
				stages = append(stages, "[premix]"+chain+"[aout]")
			} else {
				stages = append(stages, "[0:a][mixin]amix=inputs=2:duration=first[aout]")
			}
		} else {
			if chain != "" {
				stages = append(stages, fmt.Sprintf("[%d:a]%s[aout]", s.mix.inputIndex, chain))
			} else {
				stages = append(stages, fmt.Sprintf("[%d:a]anull[aout]", s.mix.inputIndex))
			}
		}
		audioLabel = "[aout]"
	} else if len(s.audio) > 0 && !s.dropAudio {
		stages = append(stages, "[0:a]"+strings.Join(s.audio, ",")+"[aout]")
		audioLabel = "[aout]"
	}

	return strings.Join(stages, ";"), videoLabel, audioLabel
}

// defaultEditVideo is the fallback visual treatment: the frame blurred as a
// background with a 110% zoomed copy of itself centered on top.
const defaultEditVideo = "[0:v]split=2[bg][fg];" +
	"[bg]gblur=sigma=20[bg2];" +
	"[fg]scale=iw*1.1:ih*1.1,crop=iw/1.1:ih/1.1[fg2];" +
	"[bg2][fg2]overlay=(W-w)/2:(H-h)/2[vout]"

// defaultEditAudio is the voice-isolation chain applied when the source has
// an audio stream.
var defaultEditAudio = strings.Join([]string{
	"highpass=f=80",
	"lowpass=f=12000",
	"afftdn=nf=-25",
	"adeclick",
	"speechnorm=e=6.25:r=0.00001",
	"loudnorm=I=-16:TP=-1.5:LRA=11",
}, ",")

// DefaultEdit runs the fixed fallback pipeline on the whole file.
func (c *Client) DefaultEdit(ctx context.Context, source, destination, quality string, withAudio bool) error {
	args := []string{"-i", source, "-filter_complex", defaultEditVideo, "-map", "[vout]"}
	if withAudio {
		args = append(args, "-map", "0:a", "-af", defaultEditAudio, "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", strconv.Itoa(crfFor(quality)),
		"-pix_fmt", "yuv420p",
		destination,
	)
	return c.transcode(ctx, args, "default_edit")
}
