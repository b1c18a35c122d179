// Package ffmpeg implements the media backend by shelling out to ffmpeg and
// ffprobe. Operations accumulate filter-graph fragments on the session and a
// single transcode runs at export time.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"clipforge/internal/backend"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/params"
	"clipforge/internal/services"
)

var commandContext = exec.CommandContext

// Client shells out to ffmpeg/ffprobe.
type Client struct {
	binary      string
	probeBinary string
	timeout     time.Duration
	extraArgs   []string
	logger      *slog.Logger
}

// New builds a client from configuration. ExtraArgs are split with shell
// quoting rules once at construction.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	extra, err := shlex.Split(cfg.FFmpeg.ExtraArgs)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ffmpeg", "new",
			fmt.Sprintf("parse extra_args %q", cfg.FFmpeg.ExtraArgs), err)
	}
	return &Client{
		binary:      cfg.FFmpeg.Binary,
		probeBinary: cfg.FFmpeg.FFprobeBinary,
		timeout:     time.Duration(cfg.FFmpeg.TimeoutSeconds) * time.Second,
		extraArgs:   extra,
		logger:      logging.NewComponentLogger(logger, "ffmpeg"),
	}, nil
}

// session is the editable handle. Filter fragments accumulate here and are
// assembled into one invocation at Export.
type session struct {
	source string
	info   backend.MediaInfo

	inputs   []string // extra -i paths; index i maps to input i+1
	video    []string // main video filter chain
	audio    []string // main audio filter chain
	overlays []overlaySpec
	stack    *stackSpec
	mix      *mixSpec

	dropAudio bool
	trimStart float64
	trimEnd   float64
	hasTrim   bool
}

func (s *session) Source() string { return s.source }

// addInput registers an extra input file and returns its stream index.
func (s *session) addInput(path string) int {
	s.inputs = append(s.inputs, path)
	return len(s.inputs)
}

type overlaySpec struct {
	inputIndex int
	position   string // overlay x:y expression
	opacity    float64
}

type stackSpec struct {
	inputIndex int
	vertical   bool
}

type mixSpec struct {
	inputIndex int
	// keepOriginal mixes the new track with the source audio instead of
	// replacing it.
	keepOriginal bool
	volume       float64
}

// Open probes the source and starts an edit session.
func (c *Client) Open(ctx context.Context, path string) (backend.Handle, error) {
	info, err := c.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &session{source: path, info: info, trimEnd: -1}, nil
}

// Close discards the session. Nothing is on disk before Export, so there is
// nothing to clean up.
func (c *Client) Close(h backend.Handle) error {
	if _, ok := h.(*session); !ok {
		return fmt.Errorf("foreign handle %T", h)
	}
	return nil
}

// Signature reports the parameters the named operation accepts.
func (c *Client) Signature(operation string) (params.Signature, bool) {
	op, ok := operations[operation]
	if !ok {
		return params.Signature{}, false
	}
	return op.sig, true
}

// Apply records one operation on the session.
func (c *Client) Apply(ctx context.Context, h backend.Handle, operation string, p params.Map) error {
	s, ok := h.(*session)
	if !ok {
		return fmt.Errorf("foreign handle %T", h)
	}
	op, known := operations[operation]
	if !known {
		return services.Wrap(services.ErrValidation, "ffmpeg", "apply",
			fmt.Sprintf("unknown operation %q", operation), nil)
	}
	if err := op.build(s, p); err != nil {
		return services.Wrap(services.ErrValidation, "ffmpeg", "apply",
			fmt.Sprintf("operation %q", operation), err)
	}
	c.logger.Debug("recorded operation",
		logging.String("operation", operation),
		logging.String("source", s.source))
	return nil
}

// probeOutput mirrors the ffprobe -print_format json layout.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a media file with ffprobe.
func (c *Client) Probe(ctx context.Context, path string) (backend.MediaInfo, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	}
	stdout, _, err := c.run(ctx, c.probeBinary, args)
	if err != nil {
		return backend.MediaInfo{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "probe",
			fmt.Sprintf("probe %s", path), err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(stdout, &parsed); err != nil {
		return backend.MediaInfo{}, services.Wrap(services.ErrExternalTool, "ffmpeg", "probe",
			"parse ffprobe output", err)
	}

	info := backend.MediaInfo{Format: parsed.Format.FormatName}
	for _, stream := range parsed.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = stream.Width
				info.Height = stream.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	return info, nil
}

// RunFilterGraph invokes ffmpeg with raw arguments.
func (c *Client) RunFilterGraph(ctx context.Context, args []string) (int, string, error) {
	full := append(c.globalArgs(), args...)
	_, stderr, err := c.run(ctx, c.binary, full)
	return exitCode(err), stderr, err
}

func (c *Client) globalArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	return append(args, c.extraArgs...)
}

// run executes a command under the configured timeout, returning stdout and
// captured stderr. Timeout expiry maps to ErrTimeout.
func (c *Client) run(ctx context.Context, binary string, args []string) ([]byte, string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = nil
	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return stdout.Bytes(), stderr.String(), services.Wrap(services.ErrTimeout, "ffmpeg", "run",
				fmt.Sprintf("%s exceeded %s", binary, c.timeout), err)
		}
		return stdout.Bytes(), stderr.String(), err
	}
	return stdout.Bytes(), stderr.String(), nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return -1
}

// filterArgMarkers are stderr fragments that indicate the filter graph
// itself was rejected rather than an I/O failure.
var filterArgMarkers = []string{
	"No such filter",
	"Error reinitializing filters",
	"Error initializing filter",
	"Error parsing filterchain",
	"Invalid argument",
	"Option not found",
}

func isFilterStderr(stderr string) bool {
	for _, marker := range filterArgMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

var _ backend.Backend = (*Client)(nil)
