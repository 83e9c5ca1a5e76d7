package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/devqr/internal/devuid"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/models"
	"github.com/devqr/internal/qrformat"
	"github.com/devqr/internal/qrimage"
	"github.com/devqr/internal/repository"
)

const maxFilenameAttempts = 1000

// Exporter 表格镜像
type Exporter interface {
	Sync(records []models.Record) error
	Path() string
}

// Renderer 二维码图片渲染
type Renderer interface {
	Render(content, path string) error
}

// RecordOptions 记录服务参数
type RecordOptions struct {
	QRDir         string
	DefaultFormat qrformat.Format
	Location      *time.Location
	Now           func() time.Time
}

// RecordService 二维码记录业务服务
type RecordService struct {
	repo     repository.RecordRepository
	exporter Exporter
	renderer Renderer
	qrDir    string
	format   qrformat.Format
	location *time.Location
	now      func() time.Time

	// mu 串行化“变更 + 同步”，保证单写者
	mu sync.Mutex
}

// NewRecordService 创建记录服务
func NewRecordService(repo repository.RecordRepository, exporter Exporter, renderer Renderer, opts RecordOptions) *RecordService {
	if !opts.DefaultFormat.Valid() {
		opts.DefaultFormat = qrformat.DefaultFormat
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RecordService{
		repo:     repo,
		exporter: exporter,
		renderer: renderer,
		qrDir:    opts.QRDir,
		format:   opts.DefaultFormat,
		location: opts.Location,
		now:      opts.Now,
	}
}

// GenerateInput 生成记录输入
type GenerateInput struct {
	SerialNumber     string `json:"serial_number"`
	VerificationCode string `json:"verification_code"`
	DevUID           string `json:"dev_uid"`
	DeviceName       string `json:"device_name"`
	Format           string `json:"format"`
}

func (in GenerateInput) normalized() GenerateInput {
	return GenerateInput{
		SerialNumber:     strings.TrimSpace(in.SerialNumber),
		VerificationCode: strings.TrimSpace(in.VerificationCode),
		DevUID:           strings.TrimSpace(in.DevUID),
		DeviceName:       strings.TrimSpace(in.DeviceName),
		Format:           strings.TrimSpace(in.Format),
	}
}

func validateIdentity(in GenerateInput) error {
	if in.SerialNumber == "" {
		return fmt.Errorf("%w: serial_number is required", ErrValidation)
	}
	if in.VerificationCode == "" {
		return fmt.Errorf("%w: verification_code is required", ErrValidation)
	}
	return nil
}

func validateInput(in GenerateInput) error {
	if err := validateIdentity(in); err != nil {
		return err
	}
	if in.DevUID == "" {
		return fmt.Errorf("%w: dev_uid is required", ErrValidation)
	}
	return nil
}

// DefaultFormat 未指定格式时使用的格式
func (s *RecordService) DefaultFormat() qrformat.Format {
	return s.format
}

// QRDir 二维码图片目录
func (s *RecordService) QRDir() string {
	return s.qrDir
}

// ExportPath 表格文件路径
func (s *RecordService) ExportPath() string {
	if s.exporter == nil {
		return ""
	}
	return s.exporter.Path()
}

// QRPath 记录对应的图片路径
func (s *RecordService) QRPath(record *models.Record) string {
	if record == nil {
		return ""
	}
	return filepath.Join(s.qrDir, record.QRFilename)
}

func (s *RecordService) resolveFormat(raw string) (qrformat.Format, error) {
	if raw == "" {
		return s.format, nil
	}
	return qrformat.Parse(raw)
}

// Generate 校验 → 编码 → 渲染图片 → 入库 → 同步表格
// 同步失败时返回已提交的记录与 ErrExport
func (s *RecordService) Generate(input GenerateInput) (*models.Record, error) {
	in := input.normalized()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	format, err := s.resolveFormat(in.Format)
	if err != nil {
		return nil, err
	}
	content, err := qrformat.Encode(in.SerialNumber, in.VerificationCode, in.DevUID, format)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().In(s.location).Truncate(time.Second)
	filename, err := s.allocateFilename(in.SerialNumber, createdAt)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.qrDir, filename)
	if err := s.renderer.Render(content, path); err != nil {
		return nil, fmt.Errorf("%w: render qr image: %v", ErrStorage, err)
	}

	record := &models.Record{
		SerialNumber:     in.SerialNumber,
		VerificationCode: in.VerificationCode,
		DevUID:           in.DevUID,
		DeviceName:       in.DeviceName,
		Format:           string(format),
		Content:          content,
		QRFilename:       filename,
		CreatedAt:        createdAt,
	}
	if err := s.repo.CreateWithNextID(record); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warnw("record_qr_cleanup_failed", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("%w: insert record: %v", ErrStorage, err)
	}
	logger.Infow("record_created",
		"record_id", record.ID,
		"serial_number", record.SerialNumber,
		"format", record.Format,
		"qr_filename", record.QRFilename,
	)

	if err := s.syncLocked(); err != nil {
		return record, err
	}
	return record, nil
}

// GenerateFromDevice dev_uid 为空时从采集器读取后生成
func (s *RecordService) GenerateFromDevice(ctx context.Context, input GenerateInput, collector devuid.Collector) (*models.Record, error) {
	in := input.normalized()
	if in.DevUID == "" {
		if err := validateIdentity(in); err != nil {
			return nil, err
		}
		if collector == nil {
			return nil, ErrProbeUnavailable
		}
		uid, err := collector.FetchUID(ctx)
		if err != nil {
			return nil, err
		}
		in.DevUID = uid
	}
	return s.Generate(in)
}

// allocateFilename 生成未被占用的文件名，重名时追加 _2、_3…
func (s *RecordService) allocateFilename(serial string, at time.Time) (string, error) {
	base := qrimage.FileName(serial, at)
	for n := 1; n <= maxFilenameAttempts; n++ {
		name := qrimage.WithSuffix(base, n)
		exists, err := s.repo.QRFilenameExists(name)
		if err != nil {
			return "", fmt.Errorf("%w: check qr filename: %v", ErrStorage, err)
		}
		if exists {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.qrDir, name)); err == nil {
			continue
		}
		return name, nil
	}
	return "", fmt.Errorf("%w: no free qr filename for %s", ErrStorage, base)
}

// List 分页查询记录
func (s *RecordService) List(filter repository.RecordListFilter) ([]models.Record, int64, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.SerialNumber = strings.TrimSpace(filter.SerialNumber)
	records, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list records: %v", ErrStorage, err)
	}
	return records, total, nil
}

// ListAll 全部记录（ID 升序）
func (s *RecordService) ListAll() ([]models.Record, error) {
	records, err := s.repo.ListAll()
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", ErrStorage, err)
	}
	return records, nil
}

// Get 根据 ID 获取记录
func (s *RecordService) Get(id uint) (*models.Record, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrValidation)
	}
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: get record: %v", ErrStorage, err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// NextID 下一条记录将获得的编号
func (s *RecordService) NextID() (uint, error) {
	id, err := s.repo.NextID()
	if err != nil {
		return 0, fmt.Errorf("%w: next id: %v", ErrStorage, err)
	}
	return id, nil
}

// Remove 删除记录及其图片，随后同步表格
func (s *RecordService) Remove(id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: id must be positive", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.GetByID(id)
	if err != nil {
		return fmt.Errorf("%w: get record: %v", ErrStorage, err)
	}
	if record == nil {
		return ErrNotFound
	}
	affected, err := s.repo.Delete(id)
	if err != nil {
		return fmt.Errorf("%w: delete record: %v", ErrStorage, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	path := s.QRPath(record)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warnw("record_qr_file_missing", "record_id", id, "path", path)
		} else {
			logger.Warnw("record_qr_file_remove_failed", "record_id", id, "path", path, "error", err)
		}
	}
	logger.Infow("record_removed", "record_id", id, "serial_number", record.SerialNumber)

	return s.syncLocked()
}

// Export 按需同步表格，返回表格路径
func (s *RecordService) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.syncLocked(); err != nil {
		return "", err
	}
	return s.ExportPath(), nil
}

func (s *RecordService) syncLocked() error {
	if s.exporter == nil {
		return nil
	}
	records, err := s.repo.ListAll()
	if err != nil {
		logger.Errorw("export_sync_failed", "stage", "list", "error", err)
		return fmt.Errorf("%w: list records: %v", ErrExport, err)
	}
	if err := s.exporter.Sync(records); err != nil {
		logger.Errorw("export_sync_failed", "stage", "write", "path", s.exporter.Path(), "error", err)
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}
