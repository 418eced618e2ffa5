package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sort-voting/config"
	"sort-voting/internal/dto"
	"sort-voting/internal/model"
	"sort-voting/internal/repository"
	pkgerrors "sort-voting/pkg/errors"
)

// formatTime 对外输出的时间一律转为 UTC 的 RFC3339
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ── 活动模块业务错误 ──

var (
	ErrActivityNotFound = errors.New("活动不存在")
	ErrOptionNotFound   = errors.New("选项不存在")
	ErrTooFewOptions    = errors.New("至少需要两个非空选项")
	ErrTooManyOptions   = errors.New("选项数量超出上限")
)

// ActivityService 排序投票活动业务接口
type ActivityService interface {
	Create(ctx context.Context, caller Caller, courseID int64, req *dto.CreateActivityRequest) (*dto.ActivityResponse, error)
	GetByID(ctx context.Context, caller Caller, id int64) (*dto.ActivityResponse, error)
	List(ctx context.Context, caller Caller, courseID int64, page *dto.PaginationRequest) ([]dto.ActivityResponse, int64, error)
	Update(ctx context.Context, caller Caller, id int64, req *dto.UpdateActivityRequest) (*dto.ActivityResponse, error)
	Delete(ctx context.Context, caller Caller, id int64) error
}

type activityService struct {
	cfg     *config.Config
	repo    *repository.Repository
	perm    PermissionService
	results *resultCacher
	logger  *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(
	cfg *config.Config,
	repo *repository.Repository,
	perm PermissionService,
	results *resultCacher,
	logger *zap.Logger,
) ActivityService {
	return &activityService{cfg: cfg, repo: repo, perm: perm, results: results, logger: logger}
}

// getActivity 加载活动（含选项），不存在时返回 ErrActivityNotFound
func getActivity(ctx context.Context, repo *repository.Repository, id int64) (*model.Activity, error) {
	activity, err := repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return activity, nil
}

func (s *activityService) checkOptionCount(n int) error {
	if n < 2 {
		return ErrTooFewOptions
	}
	if n > s.cfg.Vote.MaxOptions {
		return ErrTooManyOptions
	}
	return nil
}

// ────────────────────── Create ──────────────────────

func (s *activityService) Create(ctx context.Context, caller Caller, courseID int64, req *dto.CreateActivityRequest) (*dto.ActivityResponse, error) {
	if err := s.perm.CanManage(ctx, caller, courseID); err != nil {
		return nil, err
	}

	var options []model.Option
	for _, text := range req.Options {
		if text = strings.TrimSpace(text); text != "" {
			options = append(options, model.Option{Text: text})
		}
	}
	if err := s.checkOptionCount(len(options)); err != nil {
		return nil, err
	}

	createdBy := caller.UserID
	activity := &model.Activity{
		CourseID:         courseID,
		Name:             strings.TrimSpace(req.Name),
		Intro:            req.Intro,
		AllowUpdate:      req.AllowUpdate,
		ShowResults:      req.ShowResults,
		CompletionSubmit: req.CompletionSubmit,
		CreatedBy:        &createdBy,
		Options:          options,
	}
	if err := s.repo.Activity.Create(ctx, activity); err != nil {
		s.logger.Error("创建活动失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("活动已创建",
		zap.Int64("activity_id", activity.ID),
		zap.Int64("course_id", courseID),
		zap.Int64("operator", caller.UserID),
	)
	return toActivityResponse(activity, 0), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *activityService) GetByID(ctx context.Context, caller Caller, id int64) (*dto.ActivityResponse, error) {
	activity, err := getActivity(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.perm.CanView(ctx, caller, activity.CourseID); err != nil {
		return nil, err
	}

	voters, err := s.repo.Vote.CountVoters(ctx, id)
	if err != nil {
		return nil, err
	}
	return toActivityResponse(activity, voters), nil
}

func (s *activityService) List(ctx context.Context, caller Caller, courseID int64, page *dto.PaginationRequest) ([]dto.ActivityResponse, int64, error) {
	if err := s.perm.CanView(ctx, caller, courseID); err != nil {
		return nil, 0, err
	}

	page.Normalize()
	activities, total, err := s.repo.Activity.ListByCourse(ctx, courseID, page.Offset(), page.PageSize)
	if err != nil {
		return nil, 0, err
	}

	list := make([]dto.ActivityResponse, len(activities))
	for i := range activities {
		voters, err := s.repo.Vote.CountVoters(ctx, activities[i].ID)
		if err != nil {
			return nil, 0, err
		}
		list[i] = *toActivityResponse(&activities[i], voters)
	}
	return list, total, nil
}

// ────────────────────── Update ──────────────────────

// buildOptionSync 对比现有选项与请求：ID=0 新增，空文本删除，文本变化则改名，未提及的保持不变
func buildOptionSync(existing []model.Option, inputs []dto.OptionInput) (repository.OptionSync, int, error) {
	var sync repository.OptionSync
	byID := make(map[int64]model.Option, len(existing))
	for _, o := range existing {
		byID[o.ID] = o
	}
	remaining := len(existing)

	for _, in := range inputs {
		text := strings.TrimSpace(in.Text)
		if in.ID == 0 {
			if text != "" {
				sync.Create = append(sync.Create, model.Option{Text: text})
				remaining++
			}
			continue
		}

		cur, ok := byID[in.ID]
		if !ok {
			return sync, 0, ErrOptionNotFound
		}
		delete(byID, in.ID)
		switch {
		case text == "":
			sync.Delete = append(sync.Delete, in.ID)
			remaining--
		case text != cur.Text:
			sync.Update = append(sync.Update, model.Option{ID: in.ID, Text: text})
		}
	}
	return sync, remaining, nil
}

func (s *activityService) Update(ctx context.Context, caller Caller, id int64, req *dto.UpdateActivityRequest) (*dto.ActivityResponse, error) {
	activity, err := getActivity(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.perm.CanManage(ctx, caller, activity.CourseID); err != nil {
		return nil, err
	}
	if req.Version != activity.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	sync, remaining, err := buildOptionSync(activity.Options, req.Options)
	if err != nil {
		return nil, err
	}
	if err := s.checkOptionCount(remaining); err != nil {
		return nil, err
	}

	if req.Name != nil {
		activity.Name = strings.TrimSpace(*req.Name)
	}
	if req.Intro != nil {
		activity.Intro = *req.Intro
	}
	if req.AllowUpdate != nil {
		activity.AllowUpdate = *req.AllowUpdate
	}
	if req.ShowResults != nil {
		activity.ShowResults = *req.ShowResults
	}
	if req.CompletionSubmit != nil {
		activity.CompletionSubmit = *req.CompletionSubmit
	}

	if err := s.repo.Activity.Update(ctx, activity, sync); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新活动失败", zap.Int64("activity_id", id), zap.Error(err))
		return nil, err
	}
	if !sync.Empty() {
		s.results.invalidate(ctx, id)
	}

	s.logger.Info("活动已更新",
		zap.Int64("activity_id", id),
		zap.Int("created_options", len(sync.Create)),
		zap.Int("updated_options", len(sync.Update)),
		zap.Int("deleted_options", len(sync.Delete)),
	)
	return s.GetByID(ctx, caller, id)
}

// ────────────────────── Delete ──────────────────────

func (s *activityService) Delete(ctx context.Context, caller Caller, id int64) error {
	activity, err := getActivity(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if err := s.perm.CanManage(ctx, caller, activity.CourseID); err != nil {
		return err
	}

	if err := s.repo.Activity.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		return err
	}
	s.results.invalidate(ctx, id)

	s.logger.Info("活动已删除", zap.Int64("activity_id", id), zap.Int64("operator", caller.UserID))
	return nil
}

func toActivityResponse(a *model.Activity, voters int64) *dto.ActivityResponse {
	options := make([]dto.OptionResponse, len(a.Options))
	for i, o := range a.Options {
		options[i] = dto.OptionResponse{ID: o.ID, Text: o.Text}
	}
	return &dto.ActivityResponse{
		ID:               a.ID,
		CourseID:         a.CourseID,
		Name:             a.Name,
		Intro:            a.Intro,
		AllowUpdate:      a.AllowUpdate,
		ShowResults:      a.ShowResults,
		CompletionSubmit: a.CompletionSubmit,
		Version:          a.Version,
		Options:          options,
		VoterCount:       voters,
		CreatedAt:        formatTime(a.CreatedAt),
		UpdatedAt:        formatTime(a.UpdatedAt),
	}
}
