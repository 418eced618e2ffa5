package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

const pgUniqueViolation = "23505"

// IsUniqueViolation 判断是否为 PostgreSQL 唯一约束冲突
// constraint 非空时还要求命中指定的约束/索引名
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// ErrDuplicatePosition 同一用户的投票中出现重复名次
var ErrDuplicatePosition = errors.New("所有名次必须唯一")

// ErrVoteLocked 活动不允许修改，且用户已提交完整投票
var ErrVoteLocked = errors.New("该活动不允许修改已提交的投票")
