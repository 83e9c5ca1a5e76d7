package provider

import (
	"fmt"
	"strings"

	"github.com/devqr/internal/config"
	"github.com/devqr/internal/constants"
	"github.com/devqr/internal/devuid"
	"github.com/devqr/internal/export"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/models"
	"github.com/devqr/internal/qrformat"
	"github.com/devqr/internal/qrimage"
	"github.com/devqr/internal/repository"
	"github.com/devqr/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器，生命周期为 Open → 使用 → Close
type Container struct {
	Config *config.Config
	DB     *gorm.DB

	// Repositories
	RecordRepo repository.RecordRepository

	// Services
	Exporter      *export.Synchronizer
	Renderer      *qrimage.Renderer
	UIDCollector  devuid.Collector
	RecordService *service.RecordService
}

// Open 打开数据库、执行迁移并组装服务
func Open(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	debug := cfg.App.Mode == constants.ModeDebug
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, debug)
	if err != nil {
		logger.Errorw("provider_open_db_failed", "driver", cfg.Database.Driver, "error", err)
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		_ = models.CloseDB(db)
		logger.Errorw("provider_migrate_failed", "error", err)
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}

	c := &Container{
		Config: cfg,
		DB:     db,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c, nil
}

func (c *Container) initRepositories() {
	c.RecordRepo = repository.NewRecordRepository(c.DB)
}

func (c *Container) initServices() {
	cfg := c.Config
	location := cfg.App.Location()

	format, err := qrformat.Parse(cfg.QR.DefaultFormat)
	if err != nil {
		logger.Warnw("provider_default_format_invalid", "format", cfg.QR.DefaultFormat, "error", err)
		format = qrformat.DefaultFormat
	}

	c.Exporter = export.NewSynchronizer(cfg.Storage.ExportPath, cfg.Storage.QRDir, location)
	c.Renderer = qrimage.NewRenderer(cfg.QR.SizePx)
	c.UIDCollector = devuid.NewOpenOCDCollector(devuid.Options{
		Binary:       strings.TrimSpace(cfg.Probe.OpenOCDPath),
		InterfaceCfg: cfg.Probe.InterfaceCfg,
		TargetCfg:    cfg.Probe.TargetCfg,
		UIDAddress:   cfg.Probe.UIDAddress,
		Timeout:      cfg.Probe.Timeout(),
		WorkDir:      cfg.Probe.WorkDir,
	})
	c.RecordService = service.NewRecordService(c.RecordRepo, c.Exporter, c.Renderer, service.RecordOptions{
		QRDir:         cfg.Storage.QRDir,
		DefaultFormat: format,
		Location:      location,
	})
}

// Close 释放数据库连接
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	err := models.CloseDB(c.DB)
	c.DB = nil
	return err
}
