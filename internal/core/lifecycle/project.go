package lifecycle

import (
	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// DerivedStatus 根据任务完成情况推导展示状态; Closed 优先于任何推导结果
//
// anyStarted 表示存在非 Todo 状态的任务
func DerivedStatus(p *model.Project, total, done int64, anyStarted bool) string {
	if p.IsClosed() {
		return constants.ProjectStatusClosed
	}
	switch {
	case total == 0:
		return constants.ProjectStatusNotStarted
	case done == total:
		return constants.ProjectStatusCompleted
	case done > 0 || anyStarted:
		return constants.ProjectStatusInProgress
	default:
		return constants.ProjectStatusNotStarted
	}
}

// Progress 完成百分比, 向下取整; 已关闭项目固定 100
func Progress(p *model.Project, total, done int64) int {
	if p.IsClosed() {
		return 100
	}
	if total <= 0 {
		return 0
	}
	return int(done * 100 / total)
}

// CheckStoredStatus 手工设置的存储状态不能是 Closed, 已关闭的项目不能再修改
func CheckStoredStatus(p *model.Project, to string) error {
	if p.IsClosed() {
		return pkgErrors.Conflict("项目已关闭，无法修改").WithDetail("projectId", p.ID)
	}
	if !constants.IsValidProjectStatus(to) {
		return pkgErrors.Validation("无效的项目状态").WithDetail("status", to)
	}
	if to == constants.ProjectStatusClosed {
		return pkgErrors.Validation("关闭项目请使用关闭操作").WithDetail("status", to)
	}
	return nil
}

// CheckClose 关闭前置条件: 未关闭, 至少一个任务, 全部完成
func CheckClose(p *model.Project, total, done int64) error {
	if p.IsClosed() {
		return pkgErrors.Conflict("项目已关闭").WithDetail("projectId", p.ID)
	}
	if total == 0 {
		return pkgErrors.Conflict("项目没有任务，无法关闭").
			WithDetail("totalTasks", total).
			WithDetail("pendingTasks", int64(0))
	}
	if pending := total - done; pending > 0 {
		return pkgErrors.Conflict("项目仍有未完成的任务").
			WithDetail("totalTasks", total).
			WithDetail("pendingTasks", pending)
	}
	return nil
}

// CheckDelete 只能删除已关闭的项目, 并复查任务全部完成
func CheckDelete(p *model.Project, total, done int64) error {
	if !p.IsClosed() {
		return pkgErrors.Conflict("只能删除已关闭的项目").WithDetail("status", p.Status)
	}
	if pending := total - done; pending > 0 {
		return pkgErrors.Conflict("项目仍有未完成的任务").WithDetail("pendingTasks", pending)
	}
	return nil
}
