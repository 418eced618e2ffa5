package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sort-voting/internal/dto"
	"sort-voting/internal/service"
	pkgerrors "sort-voting/pkg/errors"
	"sort-voting/pkg/response"
)

// ActivityHandler 排序投票活动 HTTP 处理器
type ActivityHandler struct {
	activitySvc service.ActivityService
}

// NewActivityHandler 创建 ActivityHandler
func NewActivityHandler(activitySvc service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc}
}

// ListActivities 课程下的活动列表
// GET /api/v1/courses/:id/activities
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	courseID, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	page.Normalize()
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.activitySvc.List(c.Request.Context(), caller, courseID, &page)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OKPage(c, list, total, page.Page, page.PageSize)
}

// CreateActivity 创建活动
// POST /api/v1/courses/:id/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	courseID, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	activity, err := h.activitySvc.Create(c.Request.Context(), caller, courseID, &req)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.Created(c, activity)
}

// GetActivity 活动详情
// GET /api/v1/activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	activity, err := h.activitySvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, activity)
}

// UpdateActivity 更新活动及选项
// PUT /api/v1/activities/:id
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	activity, err := h.activitySvc.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, activity)
}

// DeleteActivity 删除活动
// DELETE /api/v1/activities/:id
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.activitySvc.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleActivityError 统一处理活动模块业务错误
func (h *ActivityHandler) handleActivityError(c *gin.Context, err error) {
	if handleAccessError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrOptionNotFound):
		response.NotFound(c, 13002, "选项不存在")
	case errors.Is(err, service.ErrTooFewOptions):
		response.BadRequest(c, 13003, "至少需要两个非空选项")
	case errors.Is(err, service.ErrTooManyOptions):
		response.BadRequest(c, 13004, "选项数量超出上限")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13005, "活动已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
