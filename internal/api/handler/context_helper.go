package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"sort-voting/internal/service"
	"sort-voting/pkg/jwt"
	"sort-voting/pkg/response"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxClaims = "claims"
)

// MustGetCaller 从 Gin 上下文中提取调用者身份。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	id, ok := c.Get(CtxUserID)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	userID, ok := id.(int64)
	if !ok || userID <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	role, ok := c.Get(CtxRole)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	r, ok := role.(string)
	if !ok || r == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{UserID: userID, Role: r}, true
}

// GetClaims 当前 Access Token 的声明，未认证时返回 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// MustParseID 解析路径中的正整数 ID，失败时写入 400
func MustParseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "无效的 "+param)
		return 0, false
	}
	return id, true
}

// handleAccessError 处理各模块共用的权限错误，已处理返回 true
func handleAccessError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权操作")
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 10003, "未加入该课程")
	case errors.Is(err, service.ErrActivityNotFound):
		response.NotFound(c, 13001, "活动不存在")
	default:
		return false
	}
	return true
}
