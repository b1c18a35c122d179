package ffmpeg

import (
	"fmt"
	"strings"

	"clipforge/internal/backend"
	"clipforge/internal/params"
)

// cropRatios maps the named crop presets to width:height aspect ratios.
var cropRatios = map[string][2]int{
	"9:16": {9, 16},
	"1:1":  {1, 1},
	"4:5":  {4, 5},
	"16:9": {16, 9},
}

// cropFragment builds a centered crop for a named ratio, or an explicit
// rectangle for the custom preset. Dimensions are computed from the probed
// frame and rounded down to even values for codec compatibility.
func cropFragment(p params.Map, info backend.MediaInfo) (string, error) {
	preset, _ := p["preset"].Str()
	if preset == "" {
		preset = "9:16"
	}

	if preset == "custom" {
		w, okW := p["width"].Int()
		h, okH := p["height"].Int()
		if !okW || !okH || w <= 0 || h <= 0 {
			return "", fmt.Errorf("custom crop needs positive width and height")
		}
		x, _ := p["x"].Int()
		y, _ := p["y"].Int()
		return fmt.Sprintf("crop=%d:%d:%d:%d", even(int(w)), even(int(h)), x, y), nil
	}

	ratio, ok := cropRatios[preset]
	if !ok {
		return "", fmt.Errorf("unknown crop preset %q", preset)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return "", fmt.Errorf("source dimensions unknown; cannot crop to %s", preset)
	}

	w, h := fitRatio(info.Width, info.Height, ratio[0], ratio[1])
	return fmt.Sprintf("crop=%d:%d:(iw-%d)/2:(ih-%d)/2", w, h, w, h), nil
}

// fitRatio returns the largest rw:rh rectangle that fits inside W x H,
// rounded down to even dimensions.
func fitRatio(width, height, rw, rh int) (int, int) {
	w := height * rw / rh
	h := height
	if w > width {
		w = width
		h = width * rh / rw
	}
	return even(w), even(h)
}

func even(v int) int { return v &^ 1 }

func scaleFragment(width, height int) string {
	return fmt.Sprintf("scale=%d:%d", width, height)
}

func rotateFragment(angle int) string {
	angle = ((angle % 360) + 360) % 360
	switch angle {
	case 0:
		return "null"
	case 90:
		return "transpose=1"
	case 180:
		return "transpose=1,transpose=1"
	case 270:
		return "transpose=2"
	default:
		return fmt.Sprintf("rotate=%d*PI/180", angle)
	}
}

func flipFragment(direction string) string {
	if direction == "vertical" {
		return "vflip"
	}
	return "hflip"
}

// speedFragments returns the video setpts fragment and the atempo chain.
// atempo only accepts factors in [0.5, 2], so larger changes chain stages.
func speedFragments(factor float64) (string, []string) {
	video := fmt.Sprintf("setpts=PTS/%s", trimFloat(factor))

	var audio []string
	remaining := factor
	for remaining > 2.0 {
		audio = append(audio, "atempo=2.0")
		remaining /= 2.0
	}
	for remaining < 0.5 {
		audio = append(audio, "atempo=0.5")
		remaining /= 0.5
	}
	audio = append(audio, fmt.Sprintf("atempo=%s", trimFloat(remaining)))
	return video, audio
}

func volumeFragment(volume float64) string {
	return fmt.Sprintf("volume=%s", trimFloat(volume))
}

// drawtextFragment escapes the text for ffmpeg filter syntax and anchors it
// horizontally centered at the requested vertical position.
func drawtextFragment(text string, fontSize int, color, position string) string {
	var y string
	switch position {
	case "top":
		y = "h*0.05"
	case "center":
		y = "(h-text_h)/2"
	default:
		y = "h-text_h-h*0.05"
	}
	return fmt.Sprintf("drawtext=text='%s':fontsize=%d:fontcolor=%s:x=(w-text_w)/2:y=%s",
		escapeText(text), fontSize, color, y)
}

func escapeText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func overlayPosition(position string) string {
	switch position {
	case "top_left":
		return "10:10"
	case "top_right":
		return "W-w-10:10"
	case "bottom_left":
		return "10:H-h-10"
	case "center":
		return "(W-w)/2:(H-h)/2"
	default:
		return "W-w-10:H-h-10"
	}
}

// fadeFragments builds matching video and audio fades. Fade-out is anchored
// to the end of the clip using the probed duration.
func fadeFragments(in bool, duration, total float64) (string, string) {
	if in {
		return fmt.Sprintf("fade=t=in:st=0:d=%s", trimFloat(duration)),
			fmt.Sprintf("afade=t=in:st=0:d=%s", trimFloat(duration))
	}
	start := total - duration
	if start < 0 {
		start = 0
	}
	return fmt.Sprintf("fade=t=out:st=%s:d=%s", trimFloat(start), trimFloat(duration)),
		fmt.Sprintf("afade=t=out:st=%s:d=%s", trimFloat(start), trimFloat(duration))
}

func effectFragment(name string, intensity float64) (string, error) {
	switch name {
	case "grayscale":
		return "hue=s=0", nil
	case "sepia":
		return "colorchannelmixer=.393:.769:.189:0:.349:.686:.168:0:.272:.534:.131", nil
	case "vignette":
		return fmt.Sprintf("vignette=angle=PI/4*%s", trimFloat(intensity)), nil
	case "sharpen":
		return fmt.Sprintf("unsharp=5:5:%s", trimFloat(intensity)), nil
	case "blur":
		return fmt.Sprintf("gblur=sigma=%s", trimFloat(intensity*2)), nil
	default:
		return "", fmt.Errorf("unknown filter %q", name)
	}
}

// trimFloat renders a float without trailing zeros so filter strings stay
// readable in logs.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
