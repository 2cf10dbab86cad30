package lifecycle

import (
	"time"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// ApplyTaskStatus 写入新状态并维护 completedAt:
// 进入 Done 时若未记录则记为 now, 离开 Done 时清空. 返回原状态
func ApplyTaskStatus(t *model.Task, to string, now time.Time) (string, error) {
	if !constants.IsValidTaskStatus(to) {
		return "", pkgErrors.Validation("无效的任务状态").WithDetail("status", to)
	}
	from := t.Status
	t.Status = to
	if to == constants.TaskStatusDone {
		if t.CompletedAt == nil {
			completedAt := now
			t.CompletedAt = &completedAt
		}
	} else {
		t.CompletedAt = nil
	}
	return from, nil
}

// CheckTaskMutable 已关闭项目下的任务只读
func CheckTaskMutable(project *model.Project) error {
	if project != nil && project.IsClosed() {
		return pkgErrors.Conflict("项目已关闭，任务不可修改").WithDetail("projectId", project.ID)
	}
	return nil
}
