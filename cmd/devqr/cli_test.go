package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeCLIConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	content := fmt.Sprintf(`app:
  mode: release
  timezone: UTC
log:
  dir: %q
database:
  driver: sqlite
  dsn: %q
storage:
  qr_dir: %q
  export_path: %q
%s`,
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "qr_codes.db"),
		filepath.Join(dir, "qr_codes"),
		filepath.Join(dir, "qr_records.xlsx"),
		extra,
	)
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path, dir
}

func fieldValue(out, key string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == key {
			return fields[1]
		}
	}
	return ""
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLIGenerateListRemove(t *testing.T) {
	cfg, dir := writeCLIConfig(t, "")

	code, out, errOut := runCLI(t, "-config", cfg, "generate", "-serial", "A", "-vcode", "111111", "-devuid", "E5DDA7D74D91EC53")
	if code != 0 {
		t.Fatalf("generate A exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "https://olarm.com/o/flxr?a=A,E5DDA7D74D91EC53,111111") {
		t.Fatalf("generate output missing content: %s", out)
	}
	if code, _, errOut = runCLI(t, "-config", cfg, "generate", "-serial", "B", "-vcode", "2", "-devuid", "U", "-format", "json"); code != 0 {
		t.Fatalf("generate B exit %d: %s", code, errOut)
	}
	if code, _, errOut = runCLI(t, "-config", cfg, "remove", "1"); code != 0 {
		t.Fatalf("remove exit %d: %s", code, errOut)
	}
	if code, out, errOut = runCLI(t, "-config", cfg, "generate", "-serial", "C", "-vcode", "3", "-devuid", "U"); code != 0 {
		t.Fatalf("generate C exit %d: %s", code, errOut)
	}
	if got := fieldValue(out, "id"); got != "1" {
		t.Fatalf("C should reuse id 1, got %q: %s", got, out)
	}

	code, out, errOut = runCLI(t, "-config", cfg, "list")
	if code != 0 {
		t.Fatalf("list exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "2 record(s), next id 3") {
		t.Fatalf("unexpected list footer: %s", out)
	}

	if _, err := os.Stat(filepath.Join(dir, "qr_records.xlsx")); err != nil {
		t.Fatalf("export should exist: %v", err)
	}
}

func TestCLIErrorsAndUsage(t *testing.T) {
	cfg, _ := writeCLIConfig(t, "")

	if code, _, _ := runCLI(t); code != 2 {
		t.Fatalf("no command want exit 2 got %d", code)
	}
	if code, _, _ := runCLI(t, "-config", cfg, "bogus"); code != 2 {
		t.Fatalf("unknown command want exit 2 got %d", code)
	}
	if code, _, _ := runCLI(t, "-config", cfg, "remove"); code != 2 {
		t.Fatalf("remove without id want exit 2 got %d", code)
	}
	if code, _, _ := runCLI(t, "-config", cfg, "generate", "-nope"); code != 2 {
		t.Fatalf("unknown flag want exit 2 got %d", code)
	}
	code, _, errOut := runCLI(t, "-config", cfg, "remove", "7")
	if code != 1 || !strings.Contains(errOut, "record not found") {
		t.Fatalf("remove missing want exit 1 with not found, got %d %s", code, errOut)
	}
	code, _, errOut = runCLI(t, "-config", cfg, "generate", "-serial", "A")
	if code != 1 || !strings.Contains(errOut, "verification_code is required") {
		t.Fatalf("missing vcode want exit 1, got %d %s", code, errOut)
	}
	if code, _, _ := runCLI(t, "-config", filepath.Join(t.TempDir(), "missing.yml"), "list"); code != 1 {
		t.Fatalf("missing config want exit 1 got %d", code)
	}
}

func TestCLIFormats(t *testing.T) {
	code, out, _ := runCLI(t, "formats")
	if code != 0 {
		t.Fatalf("formats exit %d", code)
	}
	if !strings.Contains(out, "olarm (default)") || !strings.Contains(out, "labeled") {
		t.Fatalf("unexpected formats output: %s", out)
	}
}

func TestCLIUIDWithFakeProbe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	script := filepath.Join(t.TempDir(), "openocd")
	body := "#!/bin/sh\necho \"0x1fff7580: 4d91ec53 e5dda7d7 00000000\" 1>&2\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script failed: %v", err)
	}
	cfg, _ := writeCLIConfig(t, fmt.Sprintf("probe:\n  openocd_path: %q\n", script))

	code, out, errOut := runCLI(t, "-config", cfg, "uid")
	if code != 0 {
		t.Fatalf("uid exit %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "E5DDA7D74D91EC53" {
		t.Fatalf("unexpected uid: %q", out)
	}

	code, out, errOut = runCLI(t, "-config", cfg, "generate", "-serial", "A", "-vcode", "1", "-from-device", "-format", "pipe")
	if code != 0 {
		t.Fatalf("generate from device exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "A|1|E5DDA7D74D91EC53") {
		t.Fatalf("generate from device output: %s", out)
	}
}
