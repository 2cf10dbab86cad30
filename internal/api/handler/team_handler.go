package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type TeamHandler struct {
	service service.TeamService
}

func NewTeamHandler(service service.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

// Create 创建团队
// @Summary 创建团队
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTeamRequest true "团队"
// @Success 200 {object} responses.Response{data=dto.TeamResponse}
// @Router /api/v1/teams [post]
func (h *TeamHandler) Create(c *gin.Context, p *identity.Principal) {
	var req dto.CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.service.Create(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, team)
}

// List 团队列表
// @Summary 团队列表
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param keyword query string false "名称关键字"
// @Success 200 {object} responses.Response{data=[]dto.TeamResponse}
// @Router /api/v1/teams [get]
func (h *TeamHandler) List(c *gin.Context, p *identity.Principal) {
	teams, err := h.service.List(c.Request.Context(), p, c.Query("keyword"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, teams)
}

// Get 团队详情
// @Summary 团队详情
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param id path int true "团队ID"
// @Success 200 {object} responses.Response{data=dto.TeamResponse}
// @Router /api/v1/teams/{id} [get]
func (h *TeamHandler) Get(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	team, err := h.service.GetByID(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, team)
}

// Update 更新团队
// @Summary 更新团队
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "团队ID"
// @Param request body dto.UpdateTeamRequest true "团队"
// @Success 200 {object} responses.Response{data=dto.TeamResponse}
// @Router /api/v1/teams/{id} [put]
func (h *TeamHandler) Update(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.UpdateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.service.Update(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, team)
}

// Delete 删除团队
// @Summary 删除团队
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param id path int true "团队ID"
// @Success 200 {object} responses.Response
// @Router /api/v1/teams/{id} [delete]
func (h *TeamHandler) Delete(c *gin.Context, p *identity.Principal) {
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

// AddMember 添加团队成员
// @Summary 添加团队成员
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "团队ID"
// @Param request body dto.TeamMemberRequest true "成员"
// @Success 200 {object} responses.Response{data=dto.TeamResponse}
// @Router /api/v1/teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.TeamMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.service.AddMember(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, team)
}

// RemoveMember 移除团队成员
// @Summary 移除团队成员
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param id path int true "团队ID"
// @Param user_id path int true "用户ID"
// @Success 200 {object} responses.Response{data=dto.TeamResponse}
// @Router /api/v1/teams/{id}/members/{user_id} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context, p *identity.Principal) {
	var param dto.MemberParam
	if !bindURI(c, &param) {
		return
	}

	team, err := h.service.RemoveMember(c.Request.Context(), p, param.ID, param.UserID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, team)
}
