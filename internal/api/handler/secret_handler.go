package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type SecretHandler struct {
	service service.SecretService
}

func NewSecretHandler(service service.SecretService) *SecretHandler {
	return &SecretHandler{service: service}
}

// Create 创建密码条目
// @Summary 创建密码条目
// @Tags 密码库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SecretRequest true "条目"
// @Success 200 {object} responses.Response{data=dto.SecretResponse}
// @Router /api/v1/secrets [post]
func (h *SecretHandler) Create(c *gin.Context, p *identity.Principal) {
	var req dto.SecretRequest
	if !bindJSON(c, &req) {
		return
	}

	secret, err := h.service.Create(c.Request.Context(), p, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, secret)
}

// List 密码条目列表
// @Summary 密码条目列表
// @Tags 密码库
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.Response{data=[]dto.SecretResponse}
// @Router /api/v1/secrets [get]
func (h *SecretHandler) List(c *gin.Context, p *identity.Principal) {
	secrets, err := h.service.List(c.Request.Context(), p)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, secrets)
}

// Get 密码条目详情
// @Summary 密码条目详情
// @Tags 密码库
// @Produce json
// @Security BearerAuth
// @Param id path int true "条目ID"
// @Success 200 {object} responses.Response{data=dto.SecretResponse}
// @Router /api/v1/secrets/{id} [get]
func (h *SecretHandler) Get(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	secret, err := h.service.Get(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, secret)
}

// Update 更新密码条目
// @Summary 更新密码条目
// @Tags 密码库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "条目ID"
// @Param request body dto.SecretRequest true "条目"
// @Success 200 {object} responses.Response{data=dto.SecretResponse}
// @Router /api/v1/secrets/{id} [put]
func (h *SecretHandler) Update(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.SecretRequest
	if !bindJSON(c, &req) {
		return
	}

	secret, err := h.service.Update(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, secret)
}

// Delete 删除密码条目
// @Summary 删除密码条目
// @Tags 密码库
// @Produce json
// @Security BearerAuth
// @Param id path int true "条目ID"
// @Success 200 {object} responses.Response
// @Router /api/v1/secrets/{id} [delete]
func (h *SecretHandler) Delete(c *gin.Context, p *identity.Principal) {
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
