package api

import "github.com/devqr/internal/provider"

// Handler 本地 HTTP 接口处理器
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
