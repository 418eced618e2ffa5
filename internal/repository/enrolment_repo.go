package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sort-voting/internal/model"
)

// EnrolmentRepository 选课数据访问接口
type EnrolmentRepository interface {
	// Upsert 已选课则更新课程内角色
	Upsert(ctx context.Context, enrolment *model.Enrolment) error
	Get(ctx context.Context, courseID, userID int64) (*model.Enrolment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]model.Enrolment, error)
	Delete(ctx context.Context, courseID, userID int64) error
}

type enrolmentRepo struct {
	db *gorm.DB
}

// NewEnrolmentRepo 创建 EnrolmentRepository 实例
func NewEnrolmentRepo(db *gorm.DB) EnrolmentRepository {
	return &enrolmentRepo{db: db}
}

func (r *enrolmentRepo) Upsert(ctx context.Context, enrolment *model.Enrolment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(enrolment).Error
}

func (r *enrolmentRepo) Get(ctx context.Context, courseID, userID int64) (*model.Enrolment, error) {
	var e model.Enrolment
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrolmentRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.Enrolment, error) {
	var list []model.Enrolment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("course_id = ?", courseID).
		Order("role ASC, user_id ASC").
		Find(&list).Error
	return list, err
}

func (r *enrolmentRepo) Delete(ctx context.Context, courseID, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Delete(&model.Enrolment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
