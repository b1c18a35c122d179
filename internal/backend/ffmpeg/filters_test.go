package ffmpeg

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"clipforge/internal/backend"
	"clipforge/internal/params"
)

// cropDims pulls the numeric dimensions out of a crop=w:h:... fragment.
func cropDims(t *testing.T, fragment string) (int, int) {
	t.Helper()
	parts := strings.Split(strings.TrimPrefix(fragment, "crop="), ":")
	if len(parts) < 2 {
		t.Fatalf("unparseable crop fragment %q", fragment)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		t.Fatalf("crop width in %q: %v", fragment, err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("crop height in %q: %v", fragment, err)
	}
	return w, h
}

func TestCropFragmentNamedRatio(t *testing.T) {
	info := backend.MediaInfo{Width: 1920, Height: 1080}
	fragment, err := cropFragment(params.Map{"preset": params.String("9:16")}, info)
	if err != nil {
		t.Fatalf("cropFragment: %v", err)
	}

	w, h := cropDims(t, fragment)
	if w > 1920 || h > 1080 {
		t.Errorf("crop %dx%d exceeds source frame", w, h)
	}
	got := float64(w) / float64(h)
	want := 9.0 / 16.0
	if math.Abs(got-want) > 0.02 {
		t.Errorf("crop ratio = %.4f, want ~%.4f (fragment %q)", got, want, fragment)
	}
	if w%2 != 0 || h%2 != 0 {
		t.Errorf("crop %dx%d must be even", w, h)
	}
}

func TestCropFragmentCustom(t *testing.T) {
	p := params.Map{
		"preset": params.String("custom"),
		"x":      params.Int(10),
		"y":      params.Int(20),
		"width":  params.Int(640),
		"height": params.Int(360),
	}
	fragment, err := cropFragment(p, backend.MediaInfo{Width: 1920, Height: 1080})
	if err != nil {
		t.Fatalf("cropFragment: %v", err)
	}
	if fragment != "crop=640:360:10:20" {
		t.Errorf("fragment = %q", fragment)
	}
}

func TestCropFragmentNeedsDimensions(t *testing.T) {
	if _, err := cropFragment(params.Map{"preset": params.String("1:1")}, backend.MediaInfo{}); err == nil {
		t.Error("expected error when source dimensions are unknown")
	}
}

func TestRotateFragment(t *testing.T) {
	cases := map[int]string{
		90:   "transpose=1",
		-90:  "transpose=2",
		270:  "transpose=2",
		180:  "transpose=1,transpose=1",
		450:  "transpose=1",
		0:    "null",
		45:   "rotate=45*PI/180",
		-360: "null",
	}
	for angle, want := range cases {
		if got := rotateFragment(angle); got != want {
			t.Errorf("rotateFragment(%d) = %q, want %q", angle, got, want)
		}
	}
}

func TestSpeedFragmentsChainsAtempo(t *testing.T) {
	video, audio := speedFragments(4.0)
	if video != "setpts=PTS/4" {
		t.Errorf("video fragment = %q", video)
	}
	if len(audio) != 3 || audio[0] != "atempo=2.0" || audio[1] != "atempo=2.0" || audio[2] != "atempo=1" {
		t.Errorf("audio chain = %v", audio)
	}

	_, slow := speedFragments(0.25)
	if len(slow) != 2 || slow[0] != "atempo=0.5" || slow[1] != "atempo=0.5" {
		t.Errorf("slow audio chain = %v", slow)
	}

	_, plain := speedFragments(1.5)
	if len(plain) != 1 || plain[0] != "atempo=1.5" {
		t.Errorf("plain audio chain = %v", plain)
	}
}

func TestFadeFragmentsAnchorsOutToEnd(t *testing.T) {
	video, audio := fadeFragments(false, 2.0, 10.0)
	if video != "fade=t=out:st=8:d=2" {
		t.Errorf("video = %q", video)
	}
	if audio != "afade=t=out:st=8:d=2" {
		t.Errorf("audio = %q", audio)
	}

	// Duration longer than the clip clamps the start to zero.
	video, _ = fadeFragments(false, 30.0, 10.0)
	if !strings.Contains(video, "st=0") {
		t.Errorf("over-long fade should start at 0, got %q", video)
	}
}

func TestDrawtextFragmentEscapes(t *testing.T) {
	fragment := drawtextFragment("it's 100%: done", 48, "white", "bottom")
	if strings.Contains(fragment, "it's") {
		t.Errorf("single quote not escaped: %q", fragment)
	}
	if !strings.Contains(fragment, `\'`) || !strings.Contains(fragment, `\%`) {
		t.Errorf("expected escaped quote and percent: %q", fragment)
	}
}

func TestEffectFragmentUnknown(t *testing.T) {
	if _, err := effectFragment("posterize", 1.0); err == nil {
		t.Error("unknown effect should error")
	}
}
