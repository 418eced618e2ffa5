package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sort-voting/internal/dto"
	"sort-voting/internal/service"
	"sort-voting/pkg/response"
)

// VoteHandler 投票模块 HTTP 处理器
type VoteHandler struct {
	voteSvc service.VoteService
}

// NewVoteHandler 创建 VoteHandler
func NewVoteHandler(voteSvc service.VoteService) *VoteHandler {
	return &VoteHandler{voteSvc: voteSvc}
}

// GetBallot 当前用户的选票
// GET /api/v1/activities/:id/ballot
func (h *VoteHandler) GetBallot(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	ballot, err := h.voteSvc.GetBallot(c.Request.Context(), caller, id)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, ballot)
}

// SubmitVote 提交排序
// POST /api/v1/activities/:id/votes
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.voteSvc.Submit(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteResponses 删除答卷
// DELETE /api/v1/activities/:id/responses
func (h *VoteHandler) DeleteResponses(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}
	var req dto.DeleteResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.voteSvc.DeleteResponses(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, result)
}

// handleVoteError 统一处理投票模块业务错误
func (h *VoteHandler) handleVoteError(c *gin.Context, err error) {
	if handleAccessError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrDuplicatePosition):
		response.UnprocessableEntity(c, 14001, "所有名次必须唯一")
	case errors.Is(err, service.ErrOptionMismatch):
		response.UnprocessableEntity(c, 14002, "提交的选项与活动选项不一致")
	case errors.Is(err, service.ErrInvalidPosition):
		response.UnprocessableEntity(c, 14003, "名次超出范围")
	case errors.Is(err, service.ErrVoteLocked):
		response.Conflict(c, 14004, "该活动不允许修改已提交的投票")
	default:
		response.InternalError(c)
	}
}
