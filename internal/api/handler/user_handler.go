package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List 用户搜索
// @Summary 用户列表
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param keyword query string false "名称或邮箱"
// @Param role query string false "角色"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} responses.Response{data=responses.PageData{items=[]dto.UserResponse}}
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context, p *identity.Principal) {
	var req dto.UserSearchQuery
	if !bindQuery(c, &req) {
		return
	}

	users, total, err := h.service.List(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.PageSuccess(c, users, total, req.GetPage(), req.GetPageSize())
}

// Get 用户详情
// @Summary 用户详情
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} responses.Response{data=dto.UserResponse}
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	user, err := h.service.Get(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, user)
}

// UpdateProfile 修改资料
// @Summary 修改用户资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.UpdateProfileRequest true "资料"
// @Success 200 {object} responses.Response{data=dto.UserResponse}
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) UpdateProfile(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, user)
}

// ChangeRole 修改角色
// @Summary 修改用户角色
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body dto.ChangeRoleRequest true "角色"
// @Success 200 {object} responses.Response{data=dto.UserResponse}
// @Router /api/v1/users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.ChangeRole(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, user)
}

// Delete 删除用户
// @Summary 删除用户
// @Description 仍有任务或项目引用时返回 409, 团队/密码条目等关联会被解除并返回数量
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} responses.Response{data=dto.DeleteUserResponse}
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context, p *identity.Principal) {
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

// ListRoles 获取系统角色列表
// @Summary 角色列表
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.Response{data=[]string}
// @Router /api/v1/roles [get]
func (h *UserHandler) ListRoles(c *gin.Context) {
	responses.Success(c, h.service.ListRoles())
}
