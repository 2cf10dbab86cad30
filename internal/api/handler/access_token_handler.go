package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type AccessTokenHandler struct {
	service service.AccessTokenService
}

func NewAccessTokenHandler(service service.AccessTokenService) *AccessTokenHandler {
	return &AccessTokenHandler{service: service}
}

// Create 签发访客码
// @Summary 签发访客码
// @Description 访客码会以邮件形式发送给访客
// @Tags 访客码
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param request body dto.CreateAccessTokenRequest true "访客"
// @Success 200 {object} responses.Response{data=dto.AccessTokenResponse}
// @Router /api/v1/projects/{id}/access-tokens [post]
func (h *AccessTokenHandler) Create(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.CreateAccessTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.service.Create(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, token)
}

// List 访客码列表
// @Summary 项目访客码列表
// @Tags 访客码
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Success 200 {object} responses.Response{data=[]dto.AccessTokenResponse}
// @Router /api/v1/projects/{id}/access-tokens [get]
func (h *AccessTokenHandler) List(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}

	tokens, err := h.service.List(c.Request.Context(), p, param.ID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, tokens)
}

// Deactivate 停用访客码
// @Summary 停用访客码
// @Tags 访客码
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param token_id path int true "访客码ID"
// @Success 200 {object} responses.Response
// @Router /api/v1/projects/{id}/access-tokens/{token_id} [delete]
func (h *AccessTokenHandler) Deactivate(c *gin.Context, p *identity.Principal) {
	var param dto.TokenParam
	if !bindURI(c, &param) {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), p, param.ID, param.TokenID); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, nil)
}
