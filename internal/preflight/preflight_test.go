package preflight

import (
	"errors"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

func TestCheckFreeDiskBelowThreshold(t *testing.T) {
	orig := diskUsage
	defer func() { diskUsage = orig }()
	diskUsage = func(path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 1 << 30}, nil // 1 GiB
	}

	result := CheckFreeDisk("/out", 2)
	if result.Passed {
		t.Errorf("1 GiB free should fail a 2 GiB threshold: %+v", result)
	}
	if !strings.Contains(result.Detail, "1.0 GiB free") {
		t.Errorf("detail = %q", result.Detail)
	}
}

func TestCheckFreeDiskDisabled(t *testing.T) {
	if result := CheckFreeDisk("/out", 0); !result.Passed {
		t.Errorf("zero threshold should pass: %+v", result)
	}
}

func TestCheckMemoryCeiling(t *testing.T) {
	orig := virtualMemory
	defer func() { virtualMemory = orig }()
	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 97.5}, nil
	}

	if result := CheckMemory(95); result.Passed {
		t.Errorf("97.5%% used should fail a 95%% ceiling: %+v", result)
	}
	if result := CheckMemory(99); !result.Passed {
		t.Errorf("97.5%% used should pass a 99%% ceiling: %+v", result)
	}
}

func TestCheckBinaryMissing(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()
	lookPath = func(file string) (string, error) {
		return "", errors.New("not found")
	}

	if result := CheckBinary("ffmpeg", "ffmpeg"); result.Passed {
		t.Errorf("missing binary should fail: %+v", result)
	}
}

func TestCheckDirectoryAccessCreates(t *testing.T) {
	dir := t.TempDir() + "/nested/output"
	result := CheckDirectoryAccess("Output directory", dir)
	if !result.Passed {
		t.Errorf("writable directory should pass: %+v", result)
	}
}

func TestFailuresSummarizes(t *testing.T) {
	results := []Result{
		{Name: "A", Passed: true},
		{Name: "B", Detail: "broken"},
		{Name: "C", Detail: "also broken"},
	}
	if AllPassed(results) {
		t.Error("AllPassed should be false")
	}
	summary := Failures(results)
	if !strings.Contains(summary, "B: broken") || !strings.Contains(summary, "C: also broken") {
		t.Errorf("summary = %q", summary)
	}
}
