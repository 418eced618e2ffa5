package model

// 全局角色
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User 用户表，对应 users
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"          json:"id"`
	Username     string `gorm:"type:varchar(64);not null;unique" json:"username"`
	Name         string `gorm:"type:varchar(100);not null"       json:"name"`
	Email        string `gorm:"type:varchar(255);not null"       json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"       json:"-"`
	Role         string `gorm:"type:varchar(20);not null"        json:"role"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
