package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func (e *testEnv) exportService() ExportService {
	return NewExportService(e.repo, e.perm, e.logger)
}

func TestExportService_ExportResponses_Success(t *testing.T) {
	env := newTestEnv()
	a, ids := env.seedActivity(true, false, "A", "B", "C")
	ctx := context.Background()
	votes := env.voteService()
	_, _ = votes.Submit(ctx, studentA, a.ID, ballot(ids[0], 1, ids[1], 2, ids[2], 3))
	_, _ = votes.Submit(ctx, studentB, a.ID, ballot(ids[0], 2, ids[1], 1, ids[2], 3))

	buf, filename, err := env.exportService().ExportResponses(ctx, teacher, a.ID)
	if err != nil {
		t.Fatalf("ExportResponses 应成功: %v", err)
	}
	if filename == "" {
		t.Error("文件名不应为空")
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != resultsSheet || sheets[1] != responsesSheet {
		t.Errorf("期望 Sheet [Results Responses]，实际 %v", sheets)
	}

	// Results：A(1.5) B(1.5) C(3)
	first, _ := f.GetCellValue(resultsSheet, "A2")
	last, _ := f.GetCellValue(resultsSheet, "A4")
	if first != "A" || last != "C" {
		t.Errorf("结果顺序不符: A2=%q A4=%q", first, last)
	}

	// Responses：bob (user 3) 第 1 名为 B
	rows, _ := f.GetRows(responsesSheet)
	if len(rows) != 3 {
		t.Fatalf("期望表头 + 2 行，实际 %d 行", len(rows))
	}
	if rows[2][0] != "bob" || rows[2][2] != "B" {
		t.Errorf("答卷行不符: %v", rows[2])
	}

	// 提交时间为 UTC RFC3339
	for _, row := range rows[1:] {
		if len(row) < 6 {
			t.Fatalf("答卷行缺少提交时间: %v", row)
		}
		ts, err := time.Parse(time.RFC3339, row[5])
		if err != nil || !strings.HasSuffix(row[5], "Z") {
			t.Errorf("提交时间应为 UTC RFC3339，实际 %q (%v)", row[5], err)
		}
		if time.Since(ts) > time.Hour || time.Until(ts) > time.Minute {
			t.Errorf("提交时间与当前时间相差过大: %s", ts)
		}
	}
}

func TestExportService_ExportResponses_Forbidden(t *testing.T) {
	env := newTestEnv()
	a, _ := env.seedActivity(true, true, "A", "B")

	_, _, err := env.exportService().ExportResponses(context.Background(), studentA, a.ID)
	if !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}
}

func TestExportService_ExportResponses_NotFound(t *testing.T) {
	env := newTestEnv()
	_, _, err := env.exportService().ExportResponses(context.Background(), admin, 77)
	if !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("期望 ErrActivityNotFound，实际: %v", err)
	}
}
