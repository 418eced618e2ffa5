package model

import "time"

// 课程内角色
const (
	CourseRoleTeacher = "teacher"
	CourseRoleStudent = "student"
)

// Enrolment 选课表，对应 course_enrolments
// 课程本身由外部系统维护，这里只保存 course_id
type Enrolment struct {
	CourseID  int64     `gorm:"primaryKey;autoIncrement:false" json:"course_id"`
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Role      string    `gorm:"type:varchar(20);not null"      json:"role"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (Enrolment) TableName() string { return "course_enrolments" }
