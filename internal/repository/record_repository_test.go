package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/devqr/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRecordRepositoryTest(t *testing.T) (*GormRecordRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:record_repository_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&models.Record{}); err != nil {
		t.Fatalf("migrate record failed: %v", err)
	}
	return NewRecordRepository(db), db
}

func createRecord(t *testing.T, repo *GormRecordRepository, serial string) *models.Record {
	t.Helper()
	record := &models.Record{
		SerialNumber:     serial,
		VerificationCode: "123456",
		DevUID:           "E5DDA7D74D91EC53",
		QRFilename:       "qr_code_" + serial + ".png",
		CreatedAt:        time.Now(),
	}
	if err := repo.CreateWithNextID(record); err != nil {
		t.Fatalf("create record %s failed: %v", serial, err)
	}
	return record
}

func TestSmallestFreeID(t *testing.T) {
	cases := []struct {
		ids  []uint
		want uint
	}{
		{nil, 1},
		{[]uint{1, 2, 3}, 4},
		{[]uint{2, 3}, 1},
		{[]uint{1, 3, 4}, 2},
		{[]uint{1, 2, 5, 6}, 3},
	}
	for _, tc := range cases {
		if got := smallestFreeID(tc.ids); got != tc.want {
			t.Fatalf("smallestFreeID(%v) want %d got %d", tc.ids, tc.want, got)
		}
	}
}

func TestCreateWithNextIDReusesGaps(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)

	a := createRecord(t, repo, "A")
	b := createRecord(t, repo, "B")
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids want 1,2 got %d,%d", a.ID, b.ID)
	}

	affected, err := repo.Delete(1)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("delete affected want 1 got %d", affected)
	}

	c := createRecord(t, repo, "C")
	if c.ID != 1 {
		t.Fatalf("freed id should be reused, got %d", c.ID)
	}

	records, err := repo.ListAll()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(records) != 2 || records[0].SerialNumber != "C" || records[1].SerialNumber != "B" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestCreateWithNextIDPrefersSmallestGap(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)
	for _, serial := range []string{"A", "B", "C", "D", "E"} {
		createRecord(t, repo, serial)
	}
	for _, id := range []uint{4, 2} {
		if _, err := repo.Delete(id); err != nil {
			t.Fatalf("delete %d failed: %v", id, err)
		}
	}
	next, err := repo.NextID()
	if err != nil {
		t.Fatalf("next id failed: %v", err)
	}
	if next != 2 {
		t.Fatalf("next id want 2 got %d", next)
	}
	if got := createRecord(t, repo, "F").ID; got != 2 {
		t.Fatalf("first insert want 2 got %d", got)
	}
	if got := createRecord(t, repo, "G").ID; got != 4 {
		t.Fatalf("second insert want 4 got %d", got)
	}
	if got := createRecord(t, repo, "H").ID; got != 6 {
		t.Fatalf("third insert want 6 got %d", got)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)
	record, err := repo.GetByID(42)
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if record != nil {
		t.Fatalf("missing record should be nil")
	}
}

func TestDeleteMissingAffectsNothing(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)
	createRecord(t, repo, "A")
	affected, err := repo.Delete(9)
	if err != nil {
		t.Fatalf("delete missing failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("delete missing affected want 0 got %d", affected)
	}
	total, err := repo.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("count want 1 got %d", total)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)
	for _, serial := range []string{"OLA-001", "OLA-002", "XYZ-003"} {
		createRecord(t, repo, serial)
	}

	records, total, err := repo.List(RecordListFilter{Search: "ola"})
	if err != nil {
		t.Fatalf("list search failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("search want 2 got total=%d len=%d", total, len(records))
	}

	records, total, err = repo.List(RecordListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list page failed: %v", err)
	}
	if total != 3 || len(records) != 1 || records[0].ID != 3 {
		t.Fatalf("page 2 should hold id 3, got total=%d records=%+v", total, records)
	}

	records, _, err = repo.List(RecordListFilter{Page: 0, PageSize: 0})
	if err != nil {
		t.Fatalf("list unpaged failed: %v", err)
	}
	if len(records) != 3 || records[0].ID != 1 || records[2].ID != 3 {
		t.Fatalf("unpaged list should hold all records by id, got %+v", records)
	}
}

func TestQRFilenameExists(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)
	record := createRecord(t, repo, "A")
	exists, err := repo.QRFilenameExists(record.QRFilename)
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if !exists {
		t.Fatalf("filename should exist")
	}
	exists, err = repo.QRFilenameExists("other.png")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if exists {
		t.Fatalf("unknown filename should not exist")
	}
}

func TestWithTxRollsBackWithTransaction(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	createRecord(t, repo, "A")

	if repo.WithTx(nil) != RecordRepository(repo) {
		t.Fatalf("nil tx should return the same repository")
	}

	errRollback := errors.New("rollback")
	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		if _, err := txRepo.Delete(1); err != nil {
			return err
		}
		total, err := txRepo.Count()
		if err != nil {
			return err
		}
		if total != 0 {
			t.Fatalf("tx repository should see its own delete, got %d", total)
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("transaction should return rollback error, got %v", err)
	}

	total, err := repo.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("rolled back delete should keep the record, got %d", total)
	}
}

func TestListSearchTreatsWildcardsLiterally(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)
	for _, serial := range []string{"SN_1", "SNX1", "RATE100%"} {
		createRecord(t, repo, serial)
	}

	records, total, err := repo.List(RecordListFilter{Search: "SN_1"})
	if err != nil {
		t.Fatalf("list search failed: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].SerialNumber != "SN_1" {
		t.Fatalf("underscore should match literally, got total=%d records=%+v", total, records)
	}

	records, total, err = repo.List(RecordListFilter{Search: "%"})
	if err != nil {
		t.Fatalf("list search failed: %v", err)
	}
	if total != 1 || records[0].SerialNumber != "RATE100%" {
		t.Fatalf("percent should match literally, got total=%d records=%+v", total, records)
	}
}
