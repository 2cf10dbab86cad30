package lifecycle

import (
	pkgErrors "taskhub/pkg/errors"
)

// References 删除用户前需要为 0 的引用计数
type References struct {
	AssignedTasks   int64
	AssignedByTasks int64
	LedProjects     int64
	MemberProjects  int64
}

// CheckUserRemoval 依次检查四类引用, 每类给出独立的原因和数量, 不做任何自动解除
func CheckUserRemoval(refs References) error {
	if refs.AssignedTasks > 0 {
		return pkgErrors.Conflict("用户仍有分配的任务，请先转派").
			WithDetail("reason", "assigned_tasks").
			WithDetail("assignedTasks", refs.AssignedTasks)
	}
	if refs.AssignedByTasks > 0 {
		return pkgErrors.Conflict("用户仍是任务的分配人，请先删除或转交这些任务").
			WithDetail("reason", "assigned_by_tasks").
			WithDetail("assignedByTasks", refs.AssignedByTasks)
	}
	if refs.LedProjects > 0 {
		return pkgErrors.Conflict("用户仍是项目负责人，请先更换负责人").
			WithDetail("reason", "led_projects").
			WithDetail("ledProjects", refs.LedProjects)
	}
	if refs.MemberProjects > 0 {
		return pkgErrors.Conflict("用户仍是项目成员，请先移出项目").
			WithDetail("reason", "member_projects").
			WithDetail("memberProjects", refs.MemberProjects)
	}
	return nil
}
