package response

import "github.com/gin-gonic/gin"

// AppError 接口错误：业务码、对外消息、原始错误及可选的附带数据
type AppError struct {
	Code    int
	Message string
	Err     error
	// Data 部分成功时随错误返回的数据，例如已提交的记录
	Data gin.H
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithData 附带响应数据
func (e *AppError) WithData(data gin.H) *AppError {
	e.Data = data
	return e
}

// Internal 服务端错误需要记录日志
func (e *AppError) Internal() bool {
	return e.Code >= CodeInternal
}

// Write 写出错误响应；有附带数据时与 request_id 一并返回
func (e *AppError) Write(c *gin.Context) {
	if e.Data != nil {
		ErrorWithData(c, e.Code, e.Message, e.Data)
		return
	}
	Error(c, e.Code, e.Message)
}
