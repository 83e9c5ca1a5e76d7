package devuid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const sampleOutput = `Open On-Chip Debugger 0.12.0
Info : STLINK V3J7M2 (API v3) VID:PID 0483:374E
Info : [stm32wlx.cpu0] Cortex-M4 r0p1 processor detected
target halted due to debug-request, current mode: Thread
0x1fff7580: 4d91ec53 e5dda7d7 00000000
`

func TestParseUID(t *testing.T) {
	uid, err := ParseUID(sampleOutput, "0x1FFF7580")
	if err != nil {
		t.Fatalf("parse uid failed: %v", err)
	}
	if uid != "E5DDA7D74D91EC53" {
		t.Fatalf("uid want E5DDA7D74D91EC53 got %s", uid)
	}
}

func TestParseUIDSkipsShortLines(t *testing.T) {
	output := "Info : 0x1FFF7580\n0x1FFF7580: 0x0080e115 0x00000010 0x00000000\r\n"
	uid, err := ParseUID(output, "0x1fff7580")
	if err != nil {
		t.Fatalf("parse uid failed: %v", err)
	}
	if uid != "000000100080E115" {
		t.Fatalf("uid want 000000100080E115 got %s", uid)
	}
}

func TestParseUIDErrors(t *testing.T) {
	if _, err := ParseUID("Info : nothing here\n", "0x1FFF7580"); !errors.Is(err, ErrUIDNotFound) {
		t.Fatalf("missing line should return ErrUIDNotFound, got %v", err)
	}
	if _, err := ParseUID("0x1fff7580: 12 34 56\n", "0x1FFF7580"); !errors.Is(err, ErrInvalidUID) {
		t.Fatalf("short uid should return ErrInvalidUID, got %v", err)
	}
}

func TestArgs(t *testing.T) {
	c := NewOpenOCDCollector(Options{})
	got := strings.Join(c.Args(), " ")
	want := "-f interface/stlink.cfg -f target/stm32wlx.cfg -c init -c reset halt -c mdw 0x1FFF7580 3 -c exit"
	if got != want {
		t.Fatalf("args mismatch\nwant %s\ngot  %s", want, got)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "openocd")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script failed: %v", err)
	}
	return path
}

func TestFetchUIDFromStderr(t *testing.T) {
	script := writeScript(t, `echo "0x1fff7580: 4d91ec53 e5dda7d7 00000000" 1>&2`)
	uid, err := NewOpenOCDCollector(Options{Binary: script}).FetchUID(context.Background())
	if err != nil {
		t.Fatalf("fetch uid failed: %v", err)
	}
	if uid != "E5DDA7D74D91EC53" {
		t.Fatalf("uid want E5DDA7D74D91EC53 got %s", uid)
	}
}

func TestFetchUIDNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "Error: open failed" 1>&2; exit 1`)
	_, err := NewOpenOCDCollector(Options{Binary: script}).FetchUID(context.Background())
	if !errors.Is(err, ErrProbeFailed) {
		t.Fatalf("non-zero exit should return ErrProbeFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "open failed") {
		t.Fatalf("stderr should be attached, got %v", err)
	}
}

func TestFetchUIDTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)
	_, err := NewOpenOCDCollector(Options{Binary: script, Timeout: 100 * time.Millisecond}).FetchUID(context.Background())
	if !errors.Is(err, ErrProbeTimeout) {
		t.Fatalf("slow probe should return ErrProbeTimeout, got %v", err)
	}
}

func TestFetchUIDMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "openocd")
	_, err := NewOpenOCDCollector(Options{Binary: missing}).FetchUID(context.Background())
	if !errors.Is(err, ErrProbeNotFound) {
		t.Fatalf("missing binary should return ErrProbeNotFound, got %v", err)
	}
}
