package repository

import (
	"errors"
	"strings"

	"github.com/devqr/internal/models"

	"gorm.io/gorm"
)

// RecordRepository 二维码记录数据访问接口
type RecordRepository interface {
	NextID() (uint, error)
	CreateWithNextID(record *models.Record) error
	GetByID(id uint) (*models.Record, error)
	List(filter RecordListFilter) ([]models.Record, int64, error)
	ListAll() ([]models.Record, error)
	Count() (int64, error)
	Delete(id uint) (int64, error)
	QRFilenameExists(name string) (bool, error)
	WithTx(tx *gorm.DB) RecordRepository
}

// GormRecordRepository GORM 实现
type GormRecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建记录仓库
func NewRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRecordRepository) WithTx(tx *gorm.DB) RecordRepository {
	if tx == nil {
		return r
	}
	return &GormRecordRepository{db: tx}
}

// NextID 返回当前最小的未占用正整数编号
func (r *GormRecordRepository) NextID() (uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Record{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	return smallestFreeID(ids), nil
}

// CreateWithNextID 在同一事务内分配编号并写入记录
func (r *GormRecordRepository) CreateWithNextID(record *models.Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		nextID, err := r.WithTx(tx).NextID()
		if err != nil {
			return err
		}
		record.ID = nextID
		return tx.Create(record).Error
	})
}

// GetByID 根据 ID 获取记录，不存在时返回 nil
func (r *GormRecordRepository) GetByID(id uint) (*models.Record, error) {
	var record models.Record
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// List 记录列表（按 ID 升序）
func (r *GormRecordRepository) List(filter RecordListFilter) ([]models.Record, int64, error) {
	var records []models.Record
	query := r.db.Model(&models.Record{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"serial_number", "dev_uid", "device_name"})
		query = query.Where(condition, repeatLikeArgs(containsPattern(search), argCount)...)
	}
	if serial := strings.TrimSpace(filter.SerialNumber); serial != "" {
		query = query.Where("serial_number = ?", serial)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := paginateByID(query, filter.Page, filter.PageSize).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAll 全部记录（按 ID 升序）
func (r *GormRecordRepository) ListAll() ([]models.Record, error) {
	var records []models.Record
	if err := paginateByID(r.db, 0, 0).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Count 记录总数
func (r *GormRecordRepository) Count() (int64, error) {
	var total int64
	if err := r.db.Model(&models.Record{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Delete 删除记录，返回影响行数
func (r *GormRecordRepository) Delete(id uint) (int64, error) {
	result := r.db.Delete(&models.Record{}, id)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// QRFilenameExists 判断图片文件名是否已被记录占用
func (r *GormRecordRepository) QRFilenameExists(name string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Record{}).Where("qr_filename = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// smallestFreeID ids 需为升序；返回不在其中的最小正整数
func smallestFreeID(ids []uint) uint {
	next := uint(1)
	for _, id := range ids {
		if id < next {
			continue
		}
		if id != next {
			break
		}
		next++
	}
	return next
}
