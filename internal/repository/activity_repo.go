package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sort-voting/internal/model"
	pkgerrors "sort-voting/pkg/errors"
)

// OptionSync 编辑活动时的选项变更集
type OptionSync struct {
	Create []model.Option // 新增选项（ActivityID 由仓储填充）
	Update []model.Option // 按 ID 修改文本
	Delete []int64        // 删除的选项 ID，其投票一并删除
}

// Empty 无任何选项变更
func (s OptionSync) Empty() bool {
	return len(s.Create) == 0 && len(s.Update) == 0 && len(s.Delete) == 0
}

// ActivityRepository 排序投票活动数据访问接口
type ActivityRepository interface {
	// Create 连同 Options 一起写入
	Create(ctx context.Context, activity *model.Activity) error
	// GetByID 预加载选项（按 id 升序）
	GetByID(ctx context.Context, id int64) (*model.Activity, error)
	ListByCourse(ctx context.Context, courseID int64, offset, limit int) ([]model.Activity, int64, error)
	// Update 在事务中更新活动字段并同步选项；version 不匹配返回 ErrOptimisticLock
	Update(ctx context.Context, activity *model.Activity, sync OptionSync) error
	// Delete 级联删除投票、选项与活动
	Delete(ctx context.Context, id int64) error
}

type activityRepo struct {
	db *gorm.DB
}

// NewActivityRepo 创建 ActivityRepository 实例
func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepo) GetByID(ctx context.Context, id int64) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepo) ListByCourse(ctx context.Context, courseID int64, offset, limit int) ([]model.Activity, int64, error) {
	var activities []model.Activity
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Activity{}).Where("course_id = ?", courseID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).
		Offset(offset).Limit(limit).
		Order("id ASC").
		Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

func (r *activityRepo) Update(ctx context.Context, activity *model.Activity, sync OptionSync) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&model.Activity{}).
			Where("id = ? AND version = ?", activity.ID, activity.Version).
			Updates(map[string]interface{}{
				"name":              activity.Name,
				"intro":             activity.Intro,
				"allow_update":      activity.AllowUpdate,
				"show_results":      activity.ShowResults,
				"completion_submit": activity.CompletionSubmit,
				"updated_at":        now,
				"version":           gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		if len(sync.Delete) > 0 {
			// 先删投票再删选项
			if err := tx.Where("sortvoting_id = ? AND option_id IN ?", activity.ID, sync.Delete).
				Delete(&model.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("sortvoting_id = ? AND id IN ?", activity.ID, sync.Delete).
				Delete(&model.Option{}).Error; err != nil {
				return err
			}
		}

		for _, opt := range sync.Update {
			if err := tx.Model(&model.Option{}).
				Where("id = ? AND sortvoting_id = ?", opt.ID, activity.ID).
				Updates(map[string]interface{}{"text": opt.Text, "updated_at": now}).Error; err != nil {
				return err
			}
		}

		if len(sync.Create) > 0 {
			options := make([]model.Option, len(sync.Create))
			for i, opt := range sync.Create {
				options[i] = model.Option{ActivityID: activity.ID, Text: opt.Text, UpdatedAt: now}
			}
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}

		activity.Version++
		activity.UpdatedAt = now
		return nil
	})
}

func (r *activityRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sortvoting_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sortvoting_id = ?", id).Delete(&model.Option{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Activity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
