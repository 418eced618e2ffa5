package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sort-voting/internal/model"
	"sort-voting/internal/repository"
)

var (
	ErrNoPermission  = errors.New("无权操作")
	ErrNotEnrolled   = errors.New("未加入该课程")
	ErrResultsHidden = errors.New("该活动暂不公开结果")
)

// PermissionService 课程内权限判定
//   - 管理：课程教师或全局管理员
//   - 投票：课程学生
//   - 查看：任意课程成员或全局管理员
type PermissionService interface {
	CourseRole(ctx context.Context, caller Caller, courseID int64) (string, error)
	CanManage(ctx context.Context, caller Caller, courseID int64) error
	CanView(ctx context.Context, caller Caller, courseID int64) error
	CanVote(ctx context.Context, caller Caller, activity *model.Activity) error
	CanSeeResults(ctx context.Context, caller Caller, activity *model.Activity) error
}

type permissionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPermissionService 创建 PermissionService 实例
func NewPermissionService(repo *repository.Repository, logger *zap.Logger) PermissionService {
	return &permissionService{repo: repo, logger: logger}
}

// CourseRole 返回调用者在课程中的角色；未选课返回空字符串
func (s *permissionService) CourseRole(ctx context.Context, caller Caller, courseID int64) (string, error) {
	e, err := s.repo.Enrolment.Get(ctx, courseID, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return e.Role, nil
}

func (s *permissionService) CanManage(ctx context.Context, caller Caller, courseID int64) error {
	if caller.Role == model.RoleAdmin {
		return nil
	}
	role, err := s.CourseRole(ctx, caller, courseID)
	if err != nil {
		return err
	}
	if role != model.CourseRoleTeacher {
		return ErrNoPermission
	}
	return nil
}

func (s *permissionService) CanView(ctx context.Context, caller Caller, courseID int64) error {
	if caller.Role == model.RoleAdmin {
		return nil
	}
	role, err := s.CourseRole(ctx, caller, courseID)
	if err != nil {
		return err
	}
	if role == "" {
		return ErrNotEnrolled
	}
	return nil
}

func (s *permissionService) CanVote(ctx context.Context, caller Caller, activity *model.Activity) error {
	role, err := s.CourseRole(ctx, caller, activity.CourseID)
	if err != nil {
		return err
	}
	switch role {
	case model.CourseRoleStudent:
		return nil
	case "":
		return ErrNotEnrolled
	default:
		return ErrNoPermission
	}
}

// CanSeeResults 管理者始终可见；学生仅在开启结果公开且已投票后可见
func (s *permissionService) CanSeeResults(ctx context.Context, caller Caller, activity *model.Activity) error {
	if err := s.CanManage(ctx, caller, activity.CourseID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNoPermission) {
		return err
	}

	if err := s.CanView(ctx, caller, activity.CourseID); err != nil {
		return err
	}
	if !activity.ShowResults {
		return ErrResultsHidden
	}

	votes, err := s.repo.Vote.ListByActivityAndUser(ctx, activity.ID, caller.UserID)
	if err != nil {
		return err
	}
	if len(votes) == 0 {
		return ErrResultsHidden
	}
	return nil
}
