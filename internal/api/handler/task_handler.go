package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type TaskHandler struct {
	service service.TaskService
}

func NewTaskHandler(service service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create 创建任务
// @Summary 创建任务
// @Description project_id 为空时创建个人任务
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTaskRequest true "任务"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks [post]
func (h *TaskHandler) Create(c *gin.Context, p *identity.Principal) {
	var req dto.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.service.Create(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, task)
}

// List 任务列表
// @Summary 任务列表
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Param project_id query int false "项目ID"
// @Param assigned_to_id query int false "执行人ID"
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} responses.Response{data=responses.PageData{items=[]dto.TaskResponse}}
// @Router /api/v1/tasks [get]
func (h *TaskHandler) List(c *gin.Context, p *identity.Principal) {
	var req dto.TaskListQuery
	if !bindQuery(c, &req) {
		return
	}

	tasks, total, err := h.service.List(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.PageSuccess(c, tasks, total, req.GetPage(), req.GetPageSize())
}

// Get 任务详情
// @Summary 任务详情
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	task, err := h.service.Get(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, task)
}

// Update 更新任务
// @Summary 更新任务详情
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Param request body dto.UpdateTaskRequest true "任务"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.service.Update(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, task)
}

// UpdateStatus 修改任务状态
// @Summary 修改任务状态
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Param request body dto.UpdateTaskStatusRequest true "状态"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id}/status [put]
func (h *TaskHandler) UpdateStatus(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.UpdateTaskStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.service.UpdateStatus(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, task)
}

// Reassign 转派任务
// @Summary 转派任务
// @Description 项目任务只能转派给项目成员, 否则返回 409
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Param request body dto.ReassignTaskRequest true "执行人"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id}/assignee [put]
func (h *TaskHandler) Reassign(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.ReassignTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.service.Reassign(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, task)
}

// ToggleSubtask 切换子任务完成状态
// @Summary 切换子任务
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Param subtask_id path string true "子任务ID"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id}/subtasks/{subtask_id}/toggle [post]
func (h *TaskHandler) ToggleSubtask(c *gin.Context, p *identity.Principal) {
	var param dto.SubtaskParam
	if !bindURI(c, &param) {
		return
	}

	task, err := h.service.ToggleSubtask(c.Request.Context(), p, param.ID, param.SubtaskID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, task)
}

// Delete 删除任务
// @Summary 删除任务
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Success 200 {object} responses.Response
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	if err := h.service.Delete(c.Request.Context(), p, param.ID); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, nil)
}
