package dto

// ── 投票模块 DTO ──

// VoteItem 单个选项的名次
type VoteItem struct {
	OptionID int64 `json:"option_id" binding:"required,min=1"`
	Position int   `json:"position"  binding:"required,min=1"`
}

// SubmitVoteRequest 提交投票请求
type SubmitVoteRequest struct {
	Votes []VoteItem `json:"votes" binding:"required,min=1,dive"`
}

// SubmitVoteResponse 提交结果；AllowFurtherUpdate=false 时前端应锁定排序
type SubmitVoteResponse struct {
	Success            bool `json:"success"`
	AllowFurtherUpdate bool `json:"allow_further_update"`
}

// BallotOption 选票中的一项
type BallotOption struct {
	OptionID int64  `json:"option_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
	Voted    bool   `json:"voted"`
}

// BallotResponse 当前用户的选票（按名次排列）
type BallotResponse struct {
	ActivityID int64          `json:"activity_id"`
	Options    []BallotOption `json:"options"`
	Completed  bool           `json:"completed"`
	CanUpdate  bool           `json:"can_update"`
}

// DeleteResponsesRequest 删除指定用户的投票（教师）
type DeleteResponsesRequest struct {
	UserIDs []int64 `json:"user_ids" binding:"required,min=1"`
}

// DeleteResponsesResponse 删除结果
type DeleteResponsesResponse struct {
	Deleted int64 `json:"deleted"`
}
