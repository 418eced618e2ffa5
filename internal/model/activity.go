package model

// Activity 排序投票活动，对应 sortvotings
type Activity struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"   json:"id"`
	CourseID         int64  `gorm:"not null;index"             json:"course_id"`
	Name             string `gorm:"type:varchar(255);not null" json:"name"`
	Intro            string `gorm:"type:text;not null"         json:"intro"`
	AllowUpdate      bool   `gorm:"not null;default:false"     json:"allow_update"`
	ShowResults      bool   `gorm:"not null;default:false"     json:"show_results"`
	CompletionSubmit bool   `gorm:"not null;default:false"     json:"completion_submit"`
	CreatedBy        *int64 `json:"created_by,omitempty"`
	VersionedModel

	// 关联
	Options []Option `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// TableName 指定表名
func (Activity) TableName() string { return "sortvotings" }
