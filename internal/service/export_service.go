package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sort-voting/internal/model"
	"sort-voting/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

const (
	resultsSheet   = "Results"
	responsesSheet = "Responses"
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// Excel 格式：
//   - Sheet "Results"：选项 | 平均名次 | 票数（与结果接口一致的顺序）
//   - Sheet "Responses"：每个用户一行，第 N 列为其排在第 N 名的选项
type ExportService interface {
	ExportResponses(ctx context.Context, caller Caller, activityID int64) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	perm   PermissionService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, perm PermissionService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, perm: perm, logger: logger}
}

func (s *exportService) ExportResponses(ctx context.Context, caller Caller, activityID int64) (*bytes.Buffer, string, error) {
	// 1. 加载活动并校验管理权限
	activity, err := getActivity(ctx, s.repo, activityID)
	if err != nil {
		return nil, "", err
	}
	if err := s.perm.CanManage(ctx, caller, activity.CourseID); err != nil {
		return nil, "", err
	}

	// 2. 聚合结果与原始答卷
	results, err := computeResults(ctx, s.repo, activityID)
	if err != nil {
		return nil, "", err
	}
	votes, err := s.repo.Vote.ListByActivity(ctx, activityID)
	if err != nil {
		s.logger.Error("查询答卷失败", zap.Int64("activity_id", activityID), zap.Error(err))
		return nil, "", err
	}

	// 3. 按用户分组（votes 已按 user_id, position 排序）
	var userIDs []int64
	byUser := make(map[int64][]model.Vote)
	for _, v := range votes {
		if _, ok := byUser[v.UserID]; !ok {
			userIDs = append(userIDs, v.UserID)
		}
		byUser[v.UserID] = append(byUser[v.UserID], v)
	}
	users, err := s.repo.User.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, "", err
	}
	userIndex := make(map[int64]model.User, len(users))
	for _, u := range users {
		userIndex[u.ID] = u
	}
	optionText := make(map[int64]string, len(activity.Options))
	for _, o := range activity.Options {
		optionText[o.ID] = o.Text
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(resultsSheet)
	f.SetActiveSheet(idx)
	f.NewSheet(responsesSheet)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	avgStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00

	// Results
	f.SetColWidth(resultsSheet, "A", "A", 30)
	f.SetColWidth(resultsSheet, "B", "C", 14)
	f.SetCellValue(resultsSheet, "A1", "选项")
	f.SetCellValue(resultsSheet, "B1", "平均名次")
	f.SetCellValue(resultsSheet, "C1", "票数")
	f.SetCellStyle(resultsSheet, "A1", "C1", headerStyle)
	for i, r := range results.Results {
		row := i + 2
		f.SetCellValue(resultsSheet, cell("A", row), r.OptionText)
		f.SetCellValue(resultsSheet, cell("B", row), r.AveragePosition)
		f.SetCellStyle(resultsSheet, cell("B", row), cell("B", row), avgStyle)
		f.SetCellValue(resultsSheet, cell("C", row), r.VoteCount)
	}

	// Responses
	n := len(activity.Options)
	f.SetColWidth(responsesSheet, "A", "B", 16)
	f.SetCellValue(responsesSheet, "A1", "用户名")
	f.SetCellValue(responsesSheet, "B1", "姓名")
	for p := 1; p <= n; p++ {
		f.SetCellValue(responsesSheet, cell(colName(1+p), 1), fmt.Sprintf("第%d名", p))
		f.SetColWidth(responsesSheet, colName(1+p), colName(1+p), 22)
	}
	f.SetCellValue(responsesSheet, cell(colName(2+n), 1), "提交时间")
	f.SetCellStyle(responsesSheet, "A1", cell(colName(2+n), 1), headerStyle)

	for i, uid := range userIDs {
		row := i + 2
		u := userIndex[uid]
		f.SetCellValue(responsesSheet, cell("A", row), u.Username)
		f.SetCellValue(responsesSheet, cell("B", row), u.Name)

		var submitted time.Time
		for _, v := range byUser[uid] {
			if v.Position >= 1 && v.Position <= n {
				f.SetCellValue(responsesSheet, cell(colName(1+v.Position), row), optionText[v.OptionID])
			}
			if v.UpdatedAt.After(submitted) {
				submitted = v.UpdatedAt
			}
		}
		if !submitted.IsZero() {
			f.SetCellValue(responsesSheet, cell(colName(2+n), row), formatTime(submitted))
		}
	}

	// 5. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	s.logger.Info("导出答卷",
		zap.Int64("activity_id", activityID),
		zap.Int("respondents", len(userIDs)),
		zap.Int64("operator", caller.UserID),
	)

	filename := fmt.Sprintf("sortvoting_%d_responses.xlsx", activityID)
	return buf, filename, nil
}

// ── 辅助函数 ──

// colName 0 起始的列序号转列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
