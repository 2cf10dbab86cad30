package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type ProjectHandler struct {
	service service.ProjectService
}

func NewProjectHandler(service service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create 创建项目
// @Summary 创建项目
// @Description Admin 与 Lead 可创建, 非 Admin 创建时自己即为负责人
// @Tags 项目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateProjectRequest true "项目"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects [post]
func (h *ProjectHandler) Create(c *gin.Context, p *identity.Principal) {
	var req dto.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.service.Create(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// List 项目列表
// @Summary 项目列表
// @Description 只返回当前身份可见的项目
// @Tags 项目
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} responses.Response{data=responses.PageData{items=[]dto.ProjectResponse}}
// @Router /api/v1/projects [get]
func (h *ProjectHandler) List(c *gin.Context, p *identity.Principal) {
	var req dto.ProjectListQuery
	if !bindQuery(c, &req) {
		return
	}

	projects, total, err := h.service.List(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.PageSuccess(c, projects, total, req.GetPage(), req.GetPageSize())
}

// Get 项目详情
// @Summary 项目详情
// @Tags 项目
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	project, err := h.service.Get(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// Update 更新项目
// @Summary 更新项目
// @Tags 项目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param request body dto.UpdateProjectRequest true "项目"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.service.Update(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// AddMember 添加项目成员
// @Summary 添加项目成员
// @Tags 项目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param request body dto.AddMemberRequest true "成员"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.service.AddMember(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// RemoveMember 移除项目成员
// @Summary 移除项目成员
// @Tags 项目
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param user_id path int true "用户ID"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id}/members/{user_id} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context, p *identity.Principal) {
	var param dto.MemberParam
	if !bindURI(c, &param) {
		return
	}

	project, err := h.service.RemoveMember(c.Request.Context(), p, param.ID, param.UserID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// ChangeLead 更换负责人
// @Summary 更换项目负责人
// @Tags 项目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param request body dto.ChangeLeadRequest true "负责人"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id}/lead [put]
func (h *ProjectHandler) ChangeLead(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.ChangeLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.service.ChangeLead(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// Close 关闭项目
// @Summary 关闭项目
// @Description 仍有未完成任务时返回 409, details.pending_tasks 为未完成数量
// @Tags 项目
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Success 200 {object} responses.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id}/close [post]
func (h *ProjectHandler) Close(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	project, err := h.service.Close(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

// Delete 删除项目
// @Summary 删除已关闭的项目
// @Tags 项目
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Success 200 {object} responses.Response{data=dto.DeleteProjectResponse}
// @Router /api/v1/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	result, err := h.service.Delete(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, result)
}
