package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sort-voting/internal/dto"
	"sort-voting/internal/model"
	"sort-voting/internal/repository"
)

var (
	ErrEnrolmentNotFound = errors.New("选课记录不存在")
)

// EnrolmentService 选课业务接口
type EnrolmentService interface {
	Enrol(ctx context.Context, caller Caller, courseID int64, req *dto.EnrolRequest) (*dto.EnrolmentResponse, error)
	List(ctx context.Context, caller Caller, courseID int64) ([]dto.EnrolmentResponse, error)
	Remove(ctx context.Context, caller Caller, courseID, userID int64) error
}

type enrolmentService struct {
	repo   *repository.Repository
	perm   PermissionService
	logger *zap.Logger
}

// NewEnrolmentService 创建 EnrolmentService 实例
func NewEnrolmentService(repo *repository.Repository, perm PermissionService, logger *zap.Logger) EnrolmentService {
	return &enrolmentService{repo: repo, perm: perm, logger: logger}
}

func (s *enrolmentService) Enrol(ctx context.Context, caller Caller, courseID int64, req *dto.EnrolRequest) (*dto.EnrolmentResponse, error) {
	if err := s.perm.CanManage(ctx, caller, courseID); err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	e := &model.Enrolment{CourseID: courseID, UserID: req.UserID, Role: req.Role}
	if err := s.repo.Enrolment.Upsert(ctx, e); err != nil {
		s.logger.Error("选课失败", zap.Int64("course_id", courseID), zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, err
	}
	e.User = user

	s.logger.Info("用户已加入课程",
		zap.Int64("course_id", courseID),
		zap.Int64("user_id", req.UserID),
		zap.String("role", req.Role),
	)
	resp := toEnrolmentResponse(e)
	return &resp, nil
}

func (s *enrolmentService) List(ctx context.Context, caller Caller, courseID int64) ([]dto.EnrolmentResponse, error) {
	if err := s.perm.CanView(ctx, caller, courseID); err != nil {
		return nil, err
	}

	list, err := s.repo.Enrolment.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EnrolmentResponse, len(list))
	for i := range list {
		out[i] = toEnrolmentResponse(&list[i])
	}
	return out, nil
}

func (s *enrolmentService) Remove(ctx context.Context, caller Caller, courseID, userID int64) error {
	if err := s.perm.CanManage(ctx, caller, courseID); err != nil {
		return err
	}

	if err := s.repo.Enrolment.Delete(ctx, courseID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrolmentNotFound
		}
		return err
	}

	s.logger.Info("用户已移出课程", zap.Int64("course_id", courseID), zap.Int64("user_id", userID))
	return nil
}

func toEnrolmentResponse(e *model.Enrolment) dto.EnrolmentResponse {
	resp := dto.EnrolmentResponse{
		CourseID:  e.CourseID,
		UserID:    e.UserID,
		Role:      e.Role,
		CreatedAt: formatTime(e.CreatedAt),
	}
	if e.User != nil {
		u := toUserResponse(e.User)
		resp.User = &u
	}
	return resp
}
