package dto

// ── 结果模块 DTO ──

// OptionResult 单个选项的平均名次
type OptionResult struct {
	OptionID        int64   `json:"option_id"`
	OptionText      string  `json:"option_text"`
	AveragePosition float64 `json:"average_position"`
	VoteCount       int64   `json:"vote_count"`
}

// ResultsResponse 活动结果：按平均名次升序，未获投票的选项不出现
type ResultsResponse struct {
	ActivityID int64          `json:"activity_id"`
	VoterCount int64          `json:"voter_count"`
	Results    []OptionResult `json:"results"`
}
