package service

import (
	"go.uber.org/zap"

	"sort-voting/config"
	"sort-voting/internal/repository"
	"sort-voting/pkg/jwt"
	"sort-voting/pkg/redis"
)

// Caller 当前请求的调用者身份，由 JWT 中间件注入
type Caller struct {
	UserID int64
	Role   string // 全局角色: admin | user
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Enrolment  EnrolmentService
	Permission PermissionService
	Activity   ActivityService
	Vote       VoteService
	Result     ResultService
	Export     ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时结果缓存与 Token 黑名单降级为空实现
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		cache     ResultCache
		blacklist TokenBlacklist
	)
	if rdb != nil {
		cache = rdb
		blacklist = rdb
	}

	perm := NewPermissionService(repo, logger)
	results := newResultCacher(cache, cfg.Vote.ResultsCacheTTL, logger)

	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:       NewUserService(repo, logger),
		Enrolment:  NewEnrolmentService(repo, perm, logger),
		Permission: perm,
		Activity:   NewActivityService(cfg, repo, perm, results, logger),
		Vote:       NewVoteService(repo, perm, results, logger),
		Result:     NewResultService(repo, perm, results, logger),
		Export:     NewExportService(repo, perm, logger),
	}
}
