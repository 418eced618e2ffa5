package model

import "time"

// Vote 用户对某选项给出的名次，对应 sortvoting_answers
// 同一 (活动, 用户) 下名次唯一，且覆盖活动的全部选项
type Vote struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"            json:"id"`
	ActivityID int64     `gorm:"column:sortvoting_id;not null"       json:"activity_id"`
	UserID     int64     `gorm:"not null"                            json:"user_id"`
	OptionID   int64     `gorm:"not null"                            json:"option_id"`
	Position   int       `gorm:"not null"                            json:"position"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"  json:"updated_at"`
}

// TableName 指定表名
func (Vote) TableName() string { return "sortvoting_answers" }
