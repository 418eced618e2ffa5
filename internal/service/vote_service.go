package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"sort-voting/internal/dto"
	"sort-voting/internal/model"
	"sort-voting/internal/repository"
	pkgerrors "sort-voting/pkg/errors"
)

// ── 投票模块业务错误 ──

var (
	ErrDuplicatePosition = pkgerrors.ErrDuplicatePosition
	ErrOptionMismatch    = errors.New("提交的选项与活动选项不一致")
	ErrInvalidPosition   = errors.New("名次超出范围")
	ErrVoteLocked        = pkgerrors.ErrVoteLocked
)

// VoteService 投票业务接口
type VoteService interface {
	// Submit 全量替换调用者在活动中的排序
	Submit(ctx context.Context, caller Caller, activityID int64, req *dto.SubmitVoteRequest) (*dto.SubmitVoteResponse, error)
	GetBallot(ctx context.Context, caller Caller, activityID int64) (*dto.BallotResponse, error)
	DeleteResponses(ctx context.Context, caller Caller, activityID int64, req *dto.DeleteResponsesRequest) (*dto.DeleteResponsesResponse, error)
}

type voteService struct {
	repo    *repository.Repository
	perm    PermissionService
	results *resultCacher
	logger  *zap.Logger
}

// NewVoteService 创建 VoteService 实例
func NewVoteService(repo *repository.Repository, perm PermissionService, results *resultCacher, logger *zap.Logger) VoteService {
	return &voteService{repo: repo, perm: perm, results: results, logger: logger}
}

// ValidatePositions 同一次提交中名次不可重复
func ValidatePositions(votes []dto.VoteItem) error {
	seen := make(map[int]struct{}, len(votes))
	for _, v := range votes {
		if _, ok := seen[v.Position]; ok {
			return ErrDuplicatePosition
		}
		seen[v.Position] = struct{}{}
	}
	return nil
}

// validateCoverage 提交必须恰好覆盖活动的全部选项，名次取值 1..n
func validateCoverage(votes []dto.VoteItem, options []model.Option) error {
	if len(votes) != len(options) {
		return ErrOptionMismatch
	}
	known := make(map[int64]bool, len(options))
	for _, o := range options {
		known[o.ID] = false
	}
	for _, v := range votes {
		used, ok := known[v.OptionID]
		if !ok || used {
			return ErrOptionMismatch
		}
		known[v.OptionID] = true
		if v.Position < 1 || v.Position > len(options) {
			return ErrInvalidPosition
		}
	}
	return nil
}

// isComplete 用户对当前每个选项都有投票
func isComplete(votes []model.Vote, options []model.Option) bool {
	if len(options) == 0 {
		return false
	}
	voted := make(map[int64]struct{}, len(votes))
	for _, v := range votes {
		voted[v.OptionID] = struct{}{}
	}
	for _, o := range options {
		if _, ok := voted[o.ID]; !ok {
			return false
		}
	}
	return true
}

// ────────────────────── Submit ──────────────────────

func (s *voteService) Submit(ctx context.Context, caller Caller, activityID int64, req *dto.SubmitVoteRequest) (*dto.SubmitVoteResponse, error) {
	// 1. 名次唯一（先于任何数据库访问）
	if err := ValidatePositions(req.Votes); err != nil {
		return nil, err
	}

	// 2. 加载活动并校验覆盖范围
	activity, err := getActivity(ctx, s.repo, activityID)
	if err != nil {
		return nil, err
	}
	if err := validateCoverage(req.Votes, activity.Options); err != nil {
		return nil, err
	}

	// 3. 权限：课程学生；不允许修改时已完成的投票被锁定
	if err := s.perm.CanVote(ctx, caller, activity); err != nil {
		return nil, err
	}
	if !activity.AllowUpdate {
		existing, err := s.repo.Vote.ListByActivityAndUser(ctx, activityID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if isComplete(existing, activity.Options) {
			return nil, ErrVoteLocked
		}
	}

	// 4. 事务内全量替换
	now := time.Now()
	votes := make([]model.Vote, len(req.Votes))
	for i, v := range req.Votes {
		votes[i] = model.Vote{
			ActivityID: activityID,
			UserID:     caller.UserID,
			OptionID:   v.OptionID,
			Position:   v.Position,
			UpdatedAt:  now,
		}
	}
	// 不允许修改时在锁内复查，防止同一用户的并发首次提交都通过上面的检查
	replace := s.repo.Vote.ReplaceUserVotes
	if !activity.AllowUpdate {
		replace = s.repo.Vote.ReplaceOpenUserVotes
	}
	if err := replace(ctx, activityID, caller.UserID, votes); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrDuplicatePosition):
			return nil, ErrDuplicatePosition
		case errors.Is(err, pkgerrors.ErrVoteLocked):
			return nil, ErrVoteLocked
		}
		return nil, fmt.Errorf("替换投票失败: %w", err)
	}

	s.results.invalidate(ctx, activityID)
	s.logger.Info("投票已更新",
		zap.Int64("activity_id", activityID),
		zap.Int64("user_id", caller.UserID),
		zap.Int("options", len(votes)),
	)

	return &dto.SubmitVoteResponse{Success: true, AllowFurtherUpdate: activity.AllowUpdate}, nil
}

// ────────────────────── GetBallot ──────────────────────

func (s *voteService) GetBallot(ctx context.Context, caller Caller, activityID int64) (*dto.BallotResponse, error) {
	activity, err := getActivity(ctx, s.repo, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.perm.CanView(ctx, caller, activity.CourseID); err != nil {
		return nil, err
	}

	votes, err := s.repo.Vote.ListByActivityAndUser(ctx, activityID, caller.UserID)
	if err != nil {
		return nil, err
	}
	positions := make(map[int64]int, len(votes))
	for _, v := range votes {
		positions[v.OptionID] = v.Position
	}

	options := make([]dto.BallotOption, len(activity.Options))
	for i, o := range activity.Options {
		pos, voted := positions[o.ID]
		options[i] = dto.BallotOption{OptionID: o.ID, Text: o.Text, Position: pos, Voted: voted}
	}
	// 已排序的按名次在前，未排序的按选项 id 在后
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Voted != b.Voted {
			return a.Voted
		}
		if a.Voted && a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.OptionID < b.OptionID
	})

	completed := isComplete(votes, activity.Options)
	canUpdate := false
	if err := s.perm.CanVote(ctx, caller, activity); err == nil {
		canUpdate = activity.AllowUpdate || !completed
	} else if !errors.Is(err, ErrNoPermission) && !errors.Is(err, ErrNotEnrolled) {
		return nil, err
	}

	return &dto.BallotResponse{
		ActivityID: activityID,
		Options:    options,
		Completed:  completed,
		CanUpdate:  canUpdate,
	}, nil
}

// ────────────────────── DeleteResponses ──────────────────────

// DeleteResponses 管理者可删除任意用户的投票；学生仅能在允许修改时删除自己的投票
func (s *voteService) DeleteResponses(ctx context.Context, caller Caller, activityID int64, req *dto.DeleteResponsesRequest) (*dto.DeleteResponsesResponse, error) {
	activity, err := getActivity(ctx, s.repo, activityID)
	if err != nil {
		return nil, err
	}

	if err := s.perm.CanManage(ctx, caller, activity.CourseID); err != nil {
		if !errors.Is(err, ErrNoPermission) {
			return nil, err
		}
		for _, id := range req.UserIDs {
			if id != caller.UserID {
				return nil, ErrNoPermission
			}
		}
		if err := s.perm.CanVote(ctx, caller, activity); err != nil {
			return nil, err
		}
		if !activity.AllowUpdate {
			return nil, ErrVoteLocked
		}
	}

	n, err := s.repo.Vote.DeleteByActivityAndUsers(ctx, activityID, req.UserIDs)
	if err != nil {
		return nil, err
	}

	s.results.invalidate(ctx, activityID)
	s.logger.Info("投票已删除",
		zap.Int64("activity_id", activityID),
		zap.Int64("operator", caller.UserID),
		zap.Int64s("user_ids", req.UserIDs),
		zap.Int64("rows", n),
	)

	return &dto.DeleteResponsesResponse{Deleted: n}, nil
}
