package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devqr/internal/http/handlers/shared"
	"github.com/devqr/internal/http/response"
	"github.com/devqr/internal/models"
	"github.com/devqr/internal/qrformat"
	"github.com/devqr/internal/repository"
	"github.com/devqr/internal/service"

	"github.com/gin-gonic/gin"
)

// GenerateRecordRequest 生成记录请求
type GenerateRecordRequest struct {
	service.GenerateInput
	// FromDevice dev_uid 为空时从已连接设备读取
	FromDevice bool `json:"from_device"`
}

// GetFormats 支持的二维码格式
func (h *Handler) GetFormats(c *gin.Context) {
	response.Success(c, gin.H{
		"default": h.RecordService.DefaultFormat(),
		"formats": qrformat.Formats(),
	})
}

// ListRecords 记录列表
func (h *Handler) ListRecords(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	filter := repository.RecordListFilter{
		Page:         page,
		PageSize:     pageSize,
		Search:       c.Query("search"),
		SerialNumber: c.Query("serial_number"),
	}
	loc := h.Config.App.Location()
	from, _, ok := parseTimeQuery(c, "created_from", loc)
	if !ok {
		return
	}
	filter.CreatedFrom = from
	to, dateOnly, ok := parseTimeQuery(c, "created_to", loc)
	if !ok {
		return
	}
	if to != nil && dateOnly {
		// 仅给出日期时包含当天全部记录
		nextDay := to.AddDate(0, 0, 1)
		filter.CreatedBefore = &nextDay
	} else {
		filter.CreatedTo = to
	}

	records, total, err := h.RecordService.List(filter)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}

// GetRecord 记录详情
func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid record id")
		return
	}
	record, err := h.RecordService.Get(id)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	response.Success(c, record)
}

// GetRecordQR 返回记录的二维码 PNG
func (h *Handler) GetRecordQR(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid record id")
		return
	}
	record, err := h.RecordService.Get(id)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	path := h.RecordService.QRPath(record)
	if _, err := os.Stat(path); err != nil {
		shared.RequestLog(c).Warnw("record_qr_file_missing", "record_id", id, "path", path)
		response.NotFound(c, "qr file not found")
		return
	}
	c.File(path)
}

// CreateRecord 生成记录
func (h *Handler) CreateRecord(c *gin.Context) {
	var req GenerateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	var (
		record *models.Record
		err    error
	)
	if req.FromDevice {
		record, err = h.RecordService.GenerateFromDevice(c.Request.Context(), req.GenerateInput, h.UIDCollector)
	} else {
		record, err = h.RecordService.Generate(req.GenerateInput)
	}
	if err != nil {
		if errors.Is(err, service.ErrExport) && record != nil {
			shared.RespondAppError(c, response.WrapError(response.CodeInternal, "record saved but export failed", err).
				WithData(gin.H{"record": record}))
			return
		}
		respondRecordError(c, err)
		return
	}
	response.Success(c, record)
}

// DeleteRecord 删除记录
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid record id")
		return
	}
	if err := h.RecordService.Remove(id); err != nil {
		if errors.Is(err, service.ErrExport) {
			shared.RespondAppError(c, response.WrapError(response.CodeInternal, "record removed but export failed", err).
				WithData(gin.H{"id": id}))
			return
		}
		respondRecordError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// Export 立即同步表格
func (h *Handler) Export(c *gin.Context) {
	path, err := h.RecordService.Export()
	if err != nil {
		respondRecordError(c, err)
		return
	}
	response.Success(c, gin.H{"path": path})
}

// DownloadExport 下载表格文件
func (h *Handler) DownloadExport(c *gin.Context) {
	path := h.RecordService.ExportPath()
	if _, err := os.Stat(path); err != nil {
		response.NotFound(c, "export file not found")
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// GetDeviceUID 从已连接设备读取 UID
func (h *Handler) GetDeviceUID(c *gin.Context) {
	if h.UIDCollector == nil {
		respondProbeError(c, service.ErrProbeUnavailable)
		return
	}
	uid, err := h.UIDCollector.FetchUID(c.Request.Context())
	if err != nil {
		respondProbeError(c, err)
		return
	}
	response.Success(c, gin.H{"dev_uid": uid})
}

// parseTimeQuery 支持 RFC3339 与 YYYY-MM-DD，空值返回 nil；dateOnly 表示只给出了日期
func parseTimeQuery(c *gin.Context, key string, loc *time.Location) (value *time.Time, dateOnly bool, ok bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, false, true
	}
	if parsed, err := time.ParseInLocation(time.RFC3339, raw, loc); err == nil {
		return &parsed, false, true
	}
	if parsed, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return &parsed, true, true
	}
	response.BadRequest(c, "invalid "+key)
	return nil, false, false
}
