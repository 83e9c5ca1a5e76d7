package export

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // 注册 PNG 解码器，用于读取图片尺寸
	"os"
	"path/filepath"
	"time"

	"github.com/devqr/internal/constants"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/models"

	"github.com/xuri/excelize/v2"
)

// Header 表头（列顺序固定）
var Header = []string{
	"ID",
	"Serial Number",
	"Verification Code",
	"DevUID",
	"Device Name",
	"Created At",
	"QR Code",
}

var columnWidths = []float64{8, 22, 20, 22, 20, 21, 16}

// Synchronizer 表格镜像同步器
type Synchronizer struct {
	path     string
	qrDir    string
	location *time.Location
}

// NewSynchronizer 创建同步器
func NewSynchronizer(path, qrDir string, location *time.Location) *Synchronizer {
	if location == nil {
		location = time.Local
	}
	return &Synchronizer{path: path, qrDir: qrDir, location: location}
}

// Path 表格文件路径
func (s *Synchronizer) Path() string {
	return s.path
}

// Sync 依据完整记录集重写表格
func (s *Synchronizer) Sync(records []models.Record) error {
	if s.path == "" {
		return errors.New("export path is empty")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir failed: %w", err)
	}

	f, err := s.build(records)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	tmp, err := os.CreateTemp(dir, constants.ExportTempFileGlob)
	if err != nil {
		return fmt.Errorf("create export temp file failed: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write workbook failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close export temp file failed: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace workbook failed: %w", err)
	}
	logger.Debugw("export_synced", "path", s.path, "records", len(records))
	return nil
}

func (s *Synchronizer) build(records []models.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := constants.ExportSheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet failed: %w", err)
	}
	if err := s.writeHeader(f, sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i := range records {
		if err := s.writeRow(f, sheet, i+2, &records[i]); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := f.SetDocProps(s.docProps(records)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("set doc props failed: %w", err)
	}
	return f, nil
}

func (s *Synchronizer) writeHeader(f *excelize.File, sheet string) error {
	header := make([]interface{}, len(Header))
	for i, title := range Header {
		header[i] = title
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{constants.ExportHeaderFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style failed: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style failed: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set column width failed: %w", err)
		}
	}
	return nil
}

func (s *Synchronizer) writeRow(f *excelize.File, sheet string, row int, record *models.Record) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := []interface{}{
		record.ID,
		record.SerialNumber,
		record.VerificationCode,
		record.DevUID,
		record.DeviceName,
		record.CreatedAt.In(s.location).Format(constants.ExportTimeLayout),
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("write row %d failed: %w", row, err)
	}
	if err := f.SetRowHeight(sheet, row, constants.ExportImageRowPt); err != nil {
		return fmt.Errorf("set row height failed: %w", err)
	}

	cell, err := excelize.CoordinatesToCellName(len(Header), row)
	if err != nil {
		return err
	}
	imagePath := filepath.Join(s.qrDir, record.QRFilename)
	scale, err := imageScale(imagePath)
	if err != nil {
		logger.Warnw("export_qr_image_missing", "record_id", record.ID, "path", imagePath, "error", err)
		return f.SetCellValue(sheet, cell, constants.QRMissingFileText)
	}
	if err := f.AddPicture(sheet, cell, imagePath, &excelize.GraphicOptions{
		ScaleX:      scale,
		ScaleY:      scale,
		OffsetX:     4,
		OffsetY:     4,
		Positioning: "oneCell",
	}); err != nil {
		logger.Warnw("export_qr_image_embed_failed", "record_id", record.ID, "path", imagePath, "error", err)
		return f.SetCellValue(sheet, cell, constants.QRMissingFileText)
	}
	return nil
}

// docProps 使用最新记录时间，保证相同记录集的输出一致
func (s *Synchronizer) docProps(records []models.Record) *excelize.DocProperties {
	props := &excelize.DocProperties{
		Creator:        constants.ExportCreator,
		LastModifiedBy: constants.ExportCreator,
		Title:          constants.ExportSheetName,
	}
	var newest time.Time
	for i := range records {
		if records[i].CreatedAt.After(newest) {
			newest = records[i].CreatedAt
		}
	}
	if !newest.IsZero() {
		stamp := newest.UTC().Format(time.RFC3339)
		props.Created = stamp
		props.Modified = stamp
	}
	return props
}

func imageScale(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = file.Close()
	}()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, err
	}
	if cfg.Width <= 0 {
		return 0, fmt.Errorf("invalid image width %d", cfg.Width)
	}
	return float64(constants.ExportImageSizePx) / float64(cfg.Width), nil
}
