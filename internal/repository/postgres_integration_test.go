//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/devqr/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	_ = db.Migrator().DropTable(&models.Record{})
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(&models.Record{})
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresRecordGapReuseAndSearch(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewRecordRepository(db)

	for _, serial := range []string{"Olarm-A", "olarm-B", "Other-C"} {
		record := &models.Record{
			SerialNumber:     serial,
			VerificationCode: "1",
			DevUID:           "U",
			QRFilename:       "qr_code_" + serial + ".png",
			CreatedAt:        time.Now(),
		}
		if err := repo.CreateWithNextID(record); err != nil {
			t.Fatalf("create %s failed: %v", serial, err)
		}
	}
	if _, err := repo.Delete(2); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	next, err := repo.NextID()
	if err != nil {
		t.Fatalf("next id failed: %v", err)
	}
	if next != 2 {
		t.Fatalf("next id want 2 got %d", next)
	}

	records, total, err := repo.List(RecordListFilter{Search: "OLARM"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].SerialNumber != "Olarm-A" {
		t.Fatalf("ilike search mismatch: total=%d records=%+v", total, records)
	}
}
