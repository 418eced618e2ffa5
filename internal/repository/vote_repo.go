package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sort-voting/internal/model"
	pkgerrors "sort-voting/pkg/errors"
)

const positionIndex = "uq_sortvoting_answers_position"

// OptionAverage 单个选项的聚合结果（仅包含有投票的选项）
type OptionAverage struct {
	OptionID  int64
	Text      string
	Average   decimal.Decimal
	VoteCount int64
}

// VoteRepository 投票数据访问接口
type VoteRepository interface {
	// ReplaceUserVotes 在事务中全量替换用户在某活动下的投票：先删除旧数据，再批量插入新数据
	ReplaceUserVotes(ctx context.Context, activityID, userID int64, votes []model.Vote) error
	// ReplaceOpenUserVotes 同 ReplaceUserVotes，但在锁内发现用户已覆盖全部当前选项时返回 ErrVoteLocked
	ReplaceOpenUserVotes(ctx context.Context, activityID, userID int64, votes []model.Vote) error
	ListByActivityAndUser(ctx context.Context, activityID, userID int64) ([]model.Vote, error)
	ListByActivity(ctx context.Context, activityID int64) ([]model.Vote, error)
	CountVoters(ctx context.Context, activityID int64) (int64, error)
	DeleteByActivityAndUsers(ctx context.Context, activityID int64, userIDs []int64) (int64, error)
	// AveragePositions 按选项计算平均名次，按平均值升序、选项 id 升序
	AveragePositions(ctx context.Context, activityID int64) ([]OptionAverage, error)
}

type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepo 创建 VoteRepository 实例
func NewVoteRepo(db *gorm.DB) VoteRepository {
	return &voteRepo{db: db}
}

// voteLockKey 事务级咨询锁的键，同一 (活动, 用户) 的提交互斥
func voteLockKey(activityID, userID int64) string {
	return fmt.Sprintf("sortvoting:%d:%d", activityID, userID)
}

func (r *voteRepo) ReplaceUserVotes(ctx context.Context, activityID, userID int64, votes []model.Vote) error {
	return r.replace(ctx, activityID, userID, votes, false)
}

func (r *voteRepo) ReplaceOpenUserVotes(ctx context.Context, activityID, userID int64, votes []model.Vote) error {
	return r.replace(ctx, activityID, userID, votes, true)
}

// completeVotes 用户的投票是否覆盖活动的全部当前选项，须在持有咨询锁的事务内调用
func completeVotes(tx *gorm.DB, activityID, userID int64) (bool, error) {
	var row struct {
		Options int64
		Voted   int64
	}
	err := tx.Raw(`
		SELECT COUNT(so.id) AS options,
		       COUNT(sa.id) AS voted
		  FROM sortvoting_options so
		  LEFT JOIN sortvoting_answers sa
		    ON sa.option_id = so.id AND sa.user_id = ?
		 WHERE so.sortvoting_id = ?`, userID, activityID).
		Scan(&row).Error
	if err != nil {
		return false, err
	}
	return row.Options > 0 && row.Voted >= row.Options, nil
}

func (r *voteRepo) replace(ctx context.Context, activityID, userID int64, votes []model.Vote, rejectComplete bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", voteLockKey(activityID, userID)).Error; err != nil {
			return err
		}

		if rejectComplete {
			complete, err := completeVotes(tx, activityID, userID)
			if err != nil {
				return err
			}
			if complete {
				return pkgerrors.ErrVoteLocked
			}
		}

		// 硬删除：替换场景无需保留旧数据
		if err := tx.Where("sortvoting_id = ? AND user_id = ?", activityID, userID).
			Delete(&model.Vote{}).Error; err != nil {
			return err
		}

		if len(votes) == 0 {
			return nil
		}
		if err := tx.Create(&votes).Error; err != nil {
			if pkgerrors.IsUniqueViolation(err, positionIndex) {
				return pkgerrors.ErrDuplicatePosition
			}
			return err
		}
		return nil
	})
}

func (r *voteRepo) ListByActivityAndUser(ctx context.Context, activityID, userID int64) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.WithContext(ctx).
		Where("sortvoting_id = ? AND user_id = ?", activityID, userID).
		Order("position ASC").
		Find(&votes).Error
	return votes, err
}

func (r *voteRepo) ListByActivity(ctx context.Context, activityID int64) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.WithContext(ctx).
		Where("sortvoting_id = ?", activityID).
		Order("user_id ASC, position ASC").
		Find(&votes).Error
	return votes, err
}

func (r *voteRepo) CountVoters(ctx context.Context, activityID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("sortvoting_id = ?", activityID).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

func (r *voteRepo) DeleteByActivityAndUsers(ctx context.Context, activityID int64, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("sortvoting_id = ? AND user_id IN ?", activityID, userIDs).
		Delete(&model.Vote{})
	return result.RowsAffected, result.Error
}

func (r *voteRepo) AveragePositions(ctx context.Context, activityID int64) ([]OptionAverage, error) {
	var rows []OptionAverage
	err := r.db.WithContext(ctx).Raw(`
		SELECT so.id                       AS option_id,
		       so.text                     AS text,
		       ROUND(AVG(sa.position), 2)  AS average,
		       COUNT(sa.id)                AS vote_count
		  FROM sortvoting_answers sa
		  JOIN sortvoting_options so ON sa.option_id = so.id
		 WHERE so.sortvoting_id = ?
		 GROUP BY so.id, so.text
		 ORDER BY average ASC, so.id ASC`, activityID).
		Scan(&rows).Error
	return rows, err
}
