package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sort-voting/internal/dto"
	"sort-voting/internal/service"
	"sort-voting/pkg/response"
)

// EnrolmentHandler 选课模块 HTTP 处理器
type EnrolmentHandler struct {
	enrolmentSvc service.EnrolmentService
}

// NewEnrolmentHandler 创建 EnrolmentHandler
func NewEnrolmentHandler(enrolmentSvc service.EnrolmentService) *EnrolmentHandler {
	return &EnrolmentHandler{enrolmentSvc: enrolmentSvc}
}

// ListEnrolments 课程成员列表
// GET /api/v1/courses/:id/enrolments
func (h *EnrolmentHandler) ListEnrolments(c *gin.Context) {
	courseID, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.enrolmentSvc.List(c.Request.Context(), caller, courseID)
	if err != nil {
		h.handleEnrolmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Enrol 加入课程 / 更新课程内角色
// POST /api/v1/courses/:id/enrolments
func (h *EnrolmentHandler) Enrol(c *gin.Context) {
	courseID, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.EnrolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	e, err := h.enrolmentSvc.Enrol(c.Request.Context(), caller, courseID, &req)
	if err != nil {
		h.handleEnrolmentError(c, err)
		return
	}

	response.Created(c, e)
}

// RemoveEnrolment 移出课程
// DELETE /api/v1/courses/:id/enrolments/:userId
func (h *EnrolmentHandler) RemoveEnrolment(c *gin.Context) {
	courseID, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	userID, ok := MustParseID(c, "userId")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.enrolmentSvc.Remove(c.Request.Context(), caller, courseID, userID); err != nil {
		h.handleEnrolmentError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *EnrolmentHandler) handleEnrolmentError(c *gin.Context, err error) {
	if handleAccessError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12002, "用户不存在")
	case errors.Is(err, service.ErrEnrolmentNotFound):
		response.NotFound(c, 12003, "选课记录不存在")
	default:
		response.InternalError(c)
	}
}
