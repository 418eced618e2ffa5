package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sort-voting/internal/service"
	"sort-voting/pkg/response"
)

// ResultHandler 结果与导出 HTTP 处理器
type ResultHandler struct {
	resultSvc service.ResultService
	exportSvc service.ExportService
}

// NewResultHandler 创建 ResultHandler
func NewResultHandler(resultSvc service.ResultService, exportSvc service.ExportService) *ResultHandler {
	return &ResultHandler{resultSvc: resultSvc, exportSvc: exportSvc}
}

// GetResults 平均名次结果
// GET /api/v1/activities/:id/results
func (h *ResultHandler) GetResults(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	results, err := h.resultSvc.GetResults(c.Request.Context(), caller, id)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	response.OK(c, results)
}

// ExportResponses 导出答卷
// GET /api/v1/activities/:id/results/export
func (h *ResultHandler) ExportResponses(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportResponses(c.Request.Context(), caller, id)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ResultHandler) handleResultError(c *gin.Context, err error) {
	if handleAccessError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrResultsHidden):
		response.Forbidden(c, 15001, "该活动暂不公开结果")
	default:
		response.InternalError(c)
	}
}
