package ffmpeg

import (
	"strings"
	"testing"

	"clipforge/internal/backend"
)

func joinArgs(args []string) string { return strings.Join(args, " ") }

func TestBuildExportArgsSimpleChain(t *testing.T) {
	s := &session{
		source: "/in.mp4",
		video:  []string{"hflip", "scale=1280:720"},
		audio:  []string{"volume=1.5"},
	}
	line := joinArgs(buildExportArgs(s, "/out.mp4", "high"))

	if !strings.Contains(line, "-vf hflip,scale=1280:720") {
		t.Errorf("video chain missing: %s", line)
	}
	if !strings.Contains(line, "-af volume=1.5") {
		t.Errorf("audio chain missing: %s", line)
	}
	if !strings.Contains(line, "-crf 18") {
		t.Errorf("high quality should map to crf 18: %s", line)
	}
	if !strings.HasSuffix(line, "/out.mp4") {
		t.Errorf("destination must be last: %s", line)
	}
}

func TestBuildExportArgsTrimAndNoAudio(t *testing.T) {
	s := &session{source: "/in.mp4", hasTrim: true, trimStart: 1.5, trimEnd: 9, dropAudio: true}
	line := joinArgs(buildExportArgs(s, "/out.mp4", "low"))

	if !strings.Contains(line, "-ss 1.5 -to 9") {
		t.Errorf("trim flags missing: %s", line)
	}
	if !strings.Contains(line, "-an") {
		t.Errorf("-an missing for dropped audio: %s", line)
	}
	if strings.Contains(line, "-c:a") {
		t.Errorf("audio codec set despite -an: %s", line)
	}
}

func TestBuildExportArgsDualMerge(t *testing.T) {
	s := &session{source: "/a.mp4", info: backend.MediaInfo{Width: 1920, Height: 1080}}
	index := s.addInput("/b.mp4")
	s.stack = &stackSpec{inputIndex: index, vertical: true}

	args := buildExportArgs(s, "/out.mp4", "medium")
	line := joinArgs(args)

	if !strings.Contains(line, "-i /a.mp4 -i /b.mp4") {
		t.Errorf("both inputs expected: %s", line)
	}
	if !strings.Contains(line, "vstack=inputs=2") {
		t.Errorf("vstack missing: %s", line)
	}
	if !strings.Contains(line, "-map [vout]") {
		t.Errorf("video map missing: %s", line)
	}
	if !strings.Contains(line, "-map 0:a?") {
		t.Errorf("optional source audio map missing: %s", line)
	}
}

func TestBuildFilterComplexWatermark(t *testing.T) {
	s := &session{source: "/a.mp4"}
	index := s.addInput("/logo.png")
	s.overlays = append(s.overlays, overlaySpec{inputIndex: index, position: "W-w-10:H-h-10", opacity: 0.5})

	graph, videoLabel, audioLabel := buildFilterComplex(s)
	if !strings.Contains(graph, "colorchannelmixer=aa=0.5") {
		t.Errorf("opacity stage missing: %s", graph)
	}
	if !strings.Contains(graph, "overlay=W-w-10:H-h-10") {
		t.Errorf("overlay stage missing: %s", graph)
	}
	if videoLabel != "[vout]" {
		t.Errorf("video label = %q", videoLabel)
	}
	if audioLabel != "" {
		t.Errorf("watermark should not touch audio, got label %q", audioLabel)
	}
}

func TestBuildFilterComplexReplaceAudio(t *testing.T) {
	s := &session{source: "/a.mp4"}
	index := s.addInput("/voice.wav")
	s.mix = &mixSpec{inputIndex: index, keepOriginal: false, volume: 1.0}

	graph, _, audioLabel := buildFilterComplex(s)
	if audioLabel != "[aout]" {
		t.Errorf("audio label = %q", audioLabel)
	}
	if !strings.Contains(graph, "[1:a]anull[aout]") {
		t.Errorf("replacement audio should come from input 1: %s", graph)
	}
	if strings.Contains(graph, "amix") {
		t.Errorf("plain replacement must not mix: %s", graph)
	}
}

func TestBuildFilterComplexMixKeepsOriginal(t *testing.T) {
	s := &session{source: "/a.mp4"}
	index := s.addInput("/music.mp3")
	s.mix = &mixSpec{inputIndex: index, keepOriginal: true, volume: 0.3}

	graph, _, audioLabel := buildFilterComplex(s)
	if audioLabel != "[aout]" {
		t.Errorf("audio label = %q", audioLabel)
	}
	if !strings.Contains(graph, "volume=0.3") || !strings.Contains(graph, "amix=inputs=2") {
		t.Errorf("mix stages missing: %s", graph)
	}
}

func TestIsFilterStderr(t *testing.T) {
	if !isFilterStderr("[Parsed_gblur_1] Error reinitializing filters!") {
		t.Error("filter stderr not recognized")
	}
	if isFilterStderr("/in.mp4: No such file or directory") {
		t.Error("I/O stderr misclassified as filter failure")
	}
}

func TestDefaultEditChains(t *testing.T) {
	if !strings.Contains(defaultEditVideo, "scale=iw*1.1:ih*1.1") {
		t.Errorf("zoom stage missing: %s", defaultEditVideo)
	}
	if !strings.Contains(defaultEditVideo, "gblur") {
		t.Errorf("blur background missing: %s", defaultEditVideo)
	}
	if got := len(strings.Split(defaultEditAudio, ",")); got != 6 {
		t.Errorf("voice chain has %d stages, want 6", got)
	}
}
