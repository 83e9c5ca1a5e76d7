package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devqr/internal/config"
	"github.com/devqr/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	dir := t.TempDir()
	cfg.Database.DSN = filepath.Join(dir, "data", "qr_codes.db")
	cfg.Storage.QRDir = filepath.Join(dir, "qr_codes")
	cfg.Storage.ExportPath = filepath.Join(dir, "qr_records.xlsx")
	cfg.App.Timezone = "UTC"
	return cfg
}

func TestOpenWiresRecordService(t *testing.T) {
	cfg := testConfig(t)
	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("open container failed: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	record, err := c.RecordService.Generate(service.GenerateInput{
		SerialNumber:     "SN1",
		VerificationCode: "123456",
		DevUID:           "E5DDA7D74D91EC53",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if record.ID != 1 || record.Format != "olarm" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if _, err := os.Stat(cfg.Storage.ExportPath); err != nil {
		t.Fatalf("export should be written: %v", err)
	}
	if _, err := os.Stat(cfg.Database.DSN); err != nil {
		t.Fatalf("database file should be created: %v", err)
	}
}

func TestOpenInvalidDefaultFormatFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.QR.DefaultFormat = "bogus"
	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("open container failed: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()
	if got := c.RecordService.DefaultFormat(); got != "olarm" {
		t.Fatalf("default format want olarm got %s", got)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"
	if _, err := Open(cfg); err == nil {
		t.Fatalf("unsupported driver should fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("open container failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
