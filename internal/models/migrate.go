package models

import (
	"fmt"
	"strings"

	"github.com/devqr/internal/constants"
	devlog "github.com/devqr/internal/logger"

	"gorm.io/gorm"
)

const legacyRecordTable = constants.RecordTableName + "_legacy"

// AutoMigrate 自动迁移记录表
// 旧版 SQLite 库若使用 AUTOINCREMENT 建表，先重建并按创建时间重新编号。
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is nil")
	}
	renumbered, err := migrateLegacyAutoIncrement(db)
	if err != nil {
		return fmt.Errorf("migrate legacy record table failed: %w", err)
	}
	if renumbered > 0 {
		devlog.Infow("legacy_record_table_renumbered", "records", renumbered)
	}
	return db.AutoMigrate(&Record{})
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// migrateLegacyAutoIncrement 返回重新编号的记录数；非 sqlite 或无需迁移时返回 0
func migrateLegacyAutoIncrement(db *gorm.DB) (int, error) {
	if dialectName(db) != "sqlite" {
		return 0, nil
	}

	var tableSQL string
	if err := db.Raw(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?",
		constants.RecordTableName,
	).Scan(&tableSQL).Error; err != nil {
		return 0, err
	}
	if !strings.Contains(strings.ToUpper(tableSQL), "AUTOINCREMENT") {
		return 0, nil
	}

	var migrated int
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().RenameTable(constants.RecordTableName, legacyRecordTable); err != nil {
			return err
		}
		if err := tx.Migrator().CreateTable(&Record{}); err != nil {
			return err
		}

		var records []Record
		if err := tx.Table(legacyRecordTable).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
			return err
		}
		for i := range records {
			records[i].ID = uint(i + 1)
		}
		if len(records) > 0 {
			if err := tx.CreateInBatches(&records, 100).Error; err != nil {
				return err
			}
		}
		if err := tx.Migrator().DropTable(legacyRecordTable); err != nil {
			return err
		}
		migrated = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return migrated, nil
}
