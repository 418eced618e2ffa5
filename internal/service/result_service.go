package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"sort-voting/internal/dto"
	"sort-voting/internal/repository"
)

// ResultService 结果统计业务接口
type ResultService interface {
	// GetResults 每个获得投票的选项的平均名次，升序；平均值相同按选项 id
	GetResults(ctx context.Context, caller Caller, activityID int64) (*dto.ResultsResponse, error)
}

type resultService struct {
	repo    *repository.Repository
	perm    PermissionService
	results *resultCacher
	logger  *zap.Logger
}

// NewResultService 创建 ResultService 实例
func NewResultService(repo *repository.Repository, perm PermissionService, results *resultCacher, logger *zap.Logger) ResultService {
	return &resultService{repo: repo, perm: perm, results: results, logger: logger}
}

func (s *resultService) GetResults(ctx context.Context, caller Caller, activityID int64) (*dto.ResultsResponse, error) {
	activity, err := getActivity(ctx, s.repo, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.perm.CanSeeResults(ctx, caller, activity); err != nil {
		return nil, err
	}

	cached, gen, usable := s.results.get(ctx, activityID)
	if cached != nil {
		return cached, nil
	}

	resp, err := computeResults(ctx, s.repo, activityID)
	if err != nil {
		return nil, err
	}
	if usable {
		s.results.set(ctx, resp, gen)
	}
	return resp, nil
}

// computeResults 纯读取：聚合平均名次并保留两位小数
func computeResults(ctx context.Context, repo *repository.Repository, activityID int64) (*dto.ResultsResponse, error) {
	rows, err := repo.Vote.AveragePositions(ctx, activityID)
	if err != nil {
		return nil, err
	}
	voters, err := repo.Vote.CountVoters(ctx, activityID)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Average = rows[i].Average.Round(2)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Average.Cmp(rows[j].Average); c != 0 {
			return c < 0
		}
		return rows[i].OptionID < rows[j].OptionID
	})

	results := make([]dto.OptionResult, len(rows))
	for i, r := range rows {
		results[i] = dto.OptionResult{
			OptionID:        r.OptionID,
			OptionText:      r.Text,
			AveragePosition: r.Average.InexactFloat64(),
			VoteCount:       r.VoteCount,
		}
	}

	return &dto.ResultsResponse{
		ActivityID: activityID,
		VoterCount: voters,
		Results:    results,
	}, nil
}
