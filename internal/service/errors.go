package service

import (
	"errors"

	"github.com/devqr/internal/qrformat"
)

var (
	// ErrInvalidFormat 未知的二维码格式
	ErrInvalidFormat = qrformat.ErrInvalidFormat
	// ErrValidation 必填字段为空或参数非法
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrStorage 数据库或二维码文件写入失败
	ErrStorage = errors.New("storage failure")
	// ErrExport 表格同步失败，已提交的变更不回滚
	ErrExport = errors.New("export failure")
	// ErrProbeUnavailable 未配置设备 UID 采集器
	ErrProbeUnavailable = errors.New("device uid collector unavailable")
)
