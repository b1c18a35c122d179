// Package preflight provides readiness checks run before a batch starts.
// A failed check aborts the run up front instead of failing jobs one by one
// against a full disk or a missing transcoder.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"clipforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Seams for tests; gopsutil reads real kernel counters otherwise.
var (
	diskUsage     = disk.Usage
	virtualMemory = mem.VirtualMemory
	lookPath      = exec.LookPath
)

// RunAll executes every applicable check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckBinary("ffmpeg", cfg.FFmpeg.Binary),
		CheckBinary("ffprobe", cfg.FFmpeg.FFprobeBinary),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeDisk(cfg.Paths.OutputDir, cfg.Preflight.MinFreeDiskGiB),
	}
	if cfg.Preflight.MaxMemoryPercent > 0 {
		results = append(results, CheckMemory(cfg.Preflight.MaxMemoryPercent))
	}
	return results
}

// AllPassed reports whether every check in results passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Failures summarizes the failed checks for an error message.
func Failures(results []Result) string {
	out := ""
	for _, r := range results {
		if r.Passed {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += fmt.Sprintf("%s: %s", r.Name, r.Detail)
	}
	return out
}

// CheckBinary verifies the transcoder binary resolves on PATH or exists at
// the configured location.
func CheckBinary(name, binary string) Result {
	if binary == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	if filepath.IsAbs(binary) {
		if _, err := os.Stat(binary); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("not found at %s", binary)}
		}
		return Result{Name: name, Passed: true, Detail: binary}
	}
	resolved, err := lookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckDirectoryAccess verifies the directory exists (creating it if needed)
// and is writable.
func CheckDirectoryAccess(name, dir string) Result {
	if dir == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot create (%v)", err)}
	}
	probe := filepath.Join(dir, ".clipforge-write-check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("not writable (%v)", err)}
	}
	_ = os.Remove(probe)
	return Result{Name: name, Passed: true, Detail: "writable"}
}

// CheckFreeDisk verifies the output volume has at least minGiB free.
func CheckFreeDisk(path string, minGiB int) Result {
	const name = "Free disk"
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "threshold disabled"}
	}
	usage, err := diskUsage(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot stat volume (%v)", err)}
	}
	freeGiB := float64(usage.Free) / (1 << 30)
	detail := fmt.Sprintf("%.1f GiB free (need %d)", freeGiB, minGiB)
	if freeGiB < float64(minGiB) {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckMemory verifies system memory usage is below the configured ceiling.
func CheckMemory(maxPercent float64) Result {
	const name = "Memory"
	vm, err := virtualMemory()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot read memory stats (%v)", err)}
	}
	detail := fmt.Sprintf("%.1f%% used (ceiling %.1f%%)", vm.UsedPercent, maxPercent)
	if vm.UsedPercent > maxPercent {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
