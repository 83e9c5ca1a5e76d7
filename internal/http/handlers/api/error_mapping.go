package api

import (
	"github.com/devqr/internal/devuid"
	"github.com/devqr/internal/http/handlers/shared"
	"github.com/devqr/internal/http/response"
	"github.com/devqr/internal/service"

	"github.com/gin-gonic/gin"
)

var recordErrorRules = []shared.ErrorRule{
	{Target: service.ErrValidation, Code: response.CodeBadRequest, Expose: true},
	{Target: service.ErrInvalidFormat, Code: response.CodeBadRequest, Expose: true},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Msg: "record not found"},
	{Target: service.ErrStorage, Code: response.CodeInternal, Msg: "storage failure"},
	{Target: service.ErrExport, Code: response.CodeInternal, Msg: "export failure"},
}

var probeErrorRules = []shared.ErrorRule{
	{Target: service.ErrProbeUnavailable, Code: response.CodeProbeUnavailable, Msg: "device uid collector unavailable"},
	{Target: devuid.ErrProbeNotFound, Code: response.CodeProbeUnavailable, Msg: "openocd not found"},
	{Target: devuid.ErrProbeTimeout, Code: response.CodeProbeTimeout, Msg: "device connection timed out, check the ST-Link connection"},
	{Target: devuid.ErrProbeFailed, Code: response.CodeProbeUnavailable, Expose: true},
	{Target: devuid.ErrUIDNotFound, Code: response.CodeInternal, Expose: true},
	{Target: devuid.ErrInvalidUID, Code: response.CodeInternal, Expose: true},
}

func respondRecordError(c *gin.Context, err error) {
	rules := make([]shared.ErrorRule, 0, len(recordErrorRules)+len(probeErrorRules))
	rules = append(rules, recordErrorRules...)
	rules = append(rules, probeErrorRules...)
	shared.RespondMappedError(c, err, rules, response.CodeInternal, "internal error")
}

func respondProbeError(c *gin.Context, err error) {
	shared.RespondMappedError(c, err, probeErrorRules, response.CodeInternal, "read device uid failed")
}
