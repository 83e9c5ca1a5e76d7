package response

// 业务状态码，与 HTTP 语义保持一致
const (
	CodeOK               = 0
	CodeBadRequest       = 400
	CodeForbidden        = 403
	CodeNotFound         = 404
	CodeInternal         = 500
	CodeProbeUnavailable = 503
	CodeProbeTimeout     = 504
)
