package record_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/usecase/record"
	"github.com/m-mizutani/gt"
)

func TestAggregate(t *testing.T) {
	t0 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	at := func(i int) time.Time { return t0.Add(time.Duration(i) * time.Minute) }

	records := []model.SummaryRecord{
		*newRecord(at(0), "编辑 main.rs", "VS Code", model.ActionActive, ".rs", "编辑"),
		*newRecord(at(1), "浏览文档", "Chrome", model.ActionActive, "浏览"),
		*newRecord(at(2), "编译失败", "Terminal", model.ActionIssue, "错误"),
		*newRecord(at(3), "浏览文档", "Chrome", model.ActionActive, "浏览"),
		*newRecord(at(4), "运行测试", "Terminal", model.ActionError, "运行"),
		*newRecord(at(5), "聊天", "Slack", model.ActionActive),
		*newRecord(at(6), "编辑 lib.rs", "VS Code", model.ActionActive, ".rs", "编辑"),
		*newRecord(at(7), "阅读 issue", "Chrome", model.ActionActive),
		*newRecord(at(8), "查看 PR", "Chrome", model.ActionActive),
	}

	agg := record.Aggregate(records)

	gt.V(t, agg.StartTime).Equal("2025-04-01T09:00:00")
	gt.V(t, agg.EndTime).Equal("2025-04-01T09:08:00")
	gt.V(t, agg.RecordCount).Equal(9)

	// Chrome 4, then VS Code and Terminal tie at 2 (VS Code seen first)
	gt.V(t, agg.Apps).Equal([]string{"Chrome", "VS Code", "Terminal"})
	gt.V(t, agg.Keywords).Equal([]string{".rs", "编辑", "浏览", "错误", "运行"})
	gt.V(t, agg.MainActivities).Equal([]string{"编辑 main.rs", "浏览文档", "编译失败", "运行测试", "聊天"})

	gt.True(t, agg.HasErrors)
	gt.V(t, *agg.ErrorSummary).Equal("编译失败; 运行测试")
	gt.V(t, agg.Summary).Equal("使用 Chrome、VS Code、Terminal 进行了 编辑 main.rs 等操作")
}

func TestAggregateWithoutErrors(t *testing.T) {
	records := []model.SummaryRecord{
		*newRecord(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC), "阅读", "Notion", model.ActionActive),
	}
	agg := record.Aggregate(records)
	gt.False(t, agg.HasErrors)
	gt.True(t, agg.ErrorSummary == nil)
	gt.V(t, agg.Summary).Equal("使用 Notion 进行了 阅读 等操作")
}

func TestAggregateEmpty(t *testing.T) {
	agg := record.Aggregate(nil)
	gt.V(t, agg.RecordCount).Equal(0)
	gt.V(t, agg.Summary).Equal("使用  进行了 未知 等操作")
}
