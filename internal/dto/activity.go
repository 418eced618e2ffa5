package dto

// ── 活动模块 DTO ──

// CreateActivityRequest 创建活动请求
type CreateActivityRequest struct {
	Name             string   `json:"name"              binding:"required,min=1,max=255"`
	Intro            string   `json:"intro"`
	AllowUpdate      bool     `json:"allow_update"`
	ShowResults      bool     `json:"show_results"`
	CompletionSubmit bool     `json:"completion_submit"`
	Options          []string `json:"options"           binding:"required"`
}

// OptionInput 编辑时的选项：ID 为 0 表示新增，Text 为空表示删除
type OptionInput struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// UpdateActivityRequest 更新活动请求（Version 用于乐观锁）
type UpdateActivityRequest struct {
	Version          int           `json:"version"           binding:"required,min=1"`
	Name             *string       `json:"name"              binding:"omitempty,min=1,max=255"`
	Intro            *string       `json:"intro"`
	AllowUpdate      *bool         `json:"allow_update"`
	ShowResults      *bool         `json:"show_results"`
	CompletionSubmit *bool         `json:"completion_submit"`
	Options          []OptionInput `json:"options"`
}

// OptionResponse 选项
type OptionResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// ActivityResponse 活动详情
type ActivityResponse struct {
	ID               int64            `json:"id"`
	CourseID         int64            `json:"course_id"`
	Name             string           `json:"name"`
	Intro            string           `json:"intro"`
	AllowUpdate      bool             `json:"allow_update"`
	ShowResults      bool             `json:"show_results"`
	CompletionSubmit bool             `json:"completion_submit"`
	Version          int              `json:"version"`
	Options          []OptionResponse `json:"options"`
	VoterCount       int64            `json:"voter_count"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
}
