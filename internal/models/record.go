package models

import (
	"time"

	"github.com/devqr/internal/constants"
)

// Record 设备二维码记录
// ID 由仓储按“最小未占用正整数”分配，不使用数据库自增。
type Record struct {
	ID               uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`                                     // 记录编号（空缺复用）
	SerialNumber     string    `gorm:"type:varchar(120);not null;index" json:"serial_number"`                        // 设备序列号
	VerificationCode string    `gorm:"type:varchar(120);not null" json:"verification_code"`                          // 校验码
	DevUID           string    `gorm:"column:dev_uid;type:varchar(64);not null;index" json:"dev_uid"`                // 设备 UID
	DeviceName       string    `gorm:"type:varchar(120)" json:"device_name"`                                         // 设备名称（可选）
	Format           string    `gorm:"type:varchar(20)" json:"format"`                                               // 编码格式
	Content          string    `gorm:"type:text" json:"content"`                                                     // 二维码内容
	QRFilename       string    `gorm:"column:qr_filename;type:varchar(500);not null;uniqueIndex" json:"qr_filename"` // 二维码图片路径
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                                      // 创建时间
}

// TableName 指定表名
func (Record) TableName() string {
	return constants.RecordTableName
}
