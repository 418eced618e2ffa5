package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sort-voting/config"
	"sort-voting/internal/dto"
	"sort-voting/internal/model"
	"sort-voting/internal/repository"
	pkgerrors "sort-voting/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUsernameExists = errors.New("用户名已存在")
)

// UserService 用户业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	// EnsureBootstrapAdmin 启动时按配置创建初始管理员，已存在则跳过
	EnsureBootstrapAdmin(ctx context.Context, cfg *config.AdminConfig) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	username := strings.TrimSpace(req.Username)

	// 检查用户名唯一性
	if _, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	user := &model.User{
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发创建同名用户
		if pkgerrors.IsUniqueViolation(err, "uq_users_username") {
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户已创建", zap.Int64("user_id", user.ID), zap.String("username", username))
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) EnsureBootstrapAdmin(ctx context.Context, cfg *config.AdminConfig) error {
	if cfg == nil || cfg.Username == "" {
		return nil
	}
	if _, err := s.repo.User.GetByUsername(ctx, cfg.Username); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Username
	}
	_, err := s.Create(ctx, &dto.CreateUserRequest{
		Username: cfg.Username,
		Name:     name,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     model.RoleAdmin,
	})
	if errors.Is(err, ErrUsernameExists) {
		return nil
	}
	return err
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
	}
}
