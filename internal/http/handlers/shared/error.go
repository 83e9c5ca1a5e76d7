package shared

import (
	"errors"

	"github.com/devqr/internal/http/response"
	"github.com/devqr/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	RespondAppError(c, response.WrapError(code, msg, err))
}

// RespondAppError 写出 AppError；服务端错误记录日志。
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil && appErr.Internal() {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	appErr.Write(c)
}

// ErrorRule 业务错误到接口错误码的映射。
type ErrorRule struct {
	Target error
	Code   int
	// Expose 为 true 时直接返回原始错误文本
	Expose bool
	Msg    string
}

// RespondMappedError 按规则映射错误；未命中时以 fallback 返回并记录日志。
func RespondMappedError(c *gin.Context, err error, rules []ErrorRule, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		msg := rule.Msg
		if rule.Expose || msg == "" {
			msg = err.Error()
		}
		if rule.Code >= response.CodeInternal {
			RespondError(c, rule.Code, msg, err)
			return
		}
		RequestLog(c).Infow("handler_rejected", "code", rule.Code, "error", err)
		response.Error(c, rule.Code, msg)
		return
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}
