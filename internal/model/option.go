package model

import "time"

// Option 活动选项，对应 sortvoting_options
type Option struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"                json:"id"`
	ActivityID int64     `gorm:"column:sortvoting_id;not null;index"     json:"activity_id"`
	Text       string    `gorm:"type:text;not null"                      json:"text"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"      json:"updated_at"`
}

// TableName 指定表名
func (Option) TableName() string { return "sortvoting_options" }
