package dto

// ── 选课模块 DTO ──

// EnrolRequest 选课请求
type EnrolRequest struct {
	UserID int64  `json:"user_id" binding:"required,min=1"`
	Role   string `json:"role"    binding:"required,oneof=teacher student"`
}

// EnrolmentResponse 选课信息
type EnrolmentResponse struct {
	CourseID  int64         `json:"course_id"`
	UserID    int64         `json:"user_id"`
	Role      string        `json:"role"`
	User      *UserResponse `json:"user,omitempty"`
	CreatedAt string        `json:"created_at"`
}
