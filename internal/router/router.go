package router

import (
	"sort"
	"strings"

	"github.com/devqr/internal/config"
	"github.com/devqr/internal/http/handlers/api"
	"github.com/devqr/internal/http/response"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/provider"

	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.App.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()
	handler := api.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group(apiPrefix)
	{
		apiV1.GET("", func(ctx *gin.Context) {
			response.Success(ctx, buildRouteCatalog(r))
		})
		apiV1.GET("/formats", handler.GetFormats)

		// 记录管理
		records := apiV1.Group("/records")
		{
			records.GET("", handler.ListRecords)
			records.POST("", handler.CreateRecord)
			records.GET("/:id", handler.GetRecord)
			records.GET("/:id/qr", handler.GetRecordQR)
			records.DELETE("/:id", handler.DeleteRecord)
		}

		// 表格导出
		apiV1.POST("/export", handler.Export)
		apiV1.GET("/export/download", handler.DownloadExport)

		// 设备
		apiV1.GET("/device/uid", handler.GetDeviceUID)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type routeCatalogItem struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// buildRouteCatalog 列出 /api/v1 下的接口，按路径排序
func buildRouteCatalog(engine *gin.Engine) []routeCatalogItem {
	if engine == nil {
		return []routeCatalogItem{}
	}
	routes := engine.Routes()
	items := make([]routeCatalogItem, 0, len(routes))
	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, apiPrefix+"/") {
			continue
		}
		items = append(items, routeCatalogItem{Method: method, Path: item.Path})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Path == items[j].Path {
			return items[i].Method < items[j].Method
		}
		return items[i].Path < items[j].Path
	})
	return items
}
