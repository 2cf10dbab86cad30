package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type MembershipHandler struct {
	service service.MembershipService
}

func NewMembershipHandler(service service.MembershipService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// Request 申请加入项目
// @Summary 申请加入项目
// @Tags 项目成员申请
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "项目ID"
// @Param request body dto.MembershipRequestCreate false "申请说明"
// @Success 200 {object} responses.Response{data=dto.MembershipRequestResponse}
// @Router /api/v1/projects/{id}/membership-requests [post]
func (h *MembershipHandler) Request(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.MembershipRequestCreate
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	mr, err := h.service.Request(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, mr)
}

// ListPending 待审批的申请
// @Summary 待审批的加入申请
// @Tags 项目成员申请
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.Response{data=[]dto.MembershipRequestResponse}
// @Router /api/v1/membership-requests [get]
func (h *MembershipHandler) ListPending(c *gin.Context, p *identity.Principal) {
	list, err := h.service.ListPending(c.Request.Context(), p)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, list)
}

// Decide 审批申请
// @Summary 审批加入申请
// @Tags 项目成员申请
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Param request body dto.MembershipDecision true "审批结果"
// @Success 200 {object} responses.Response{data=dto.MembershipRequestResponse}
// @Router /api/v1/membership-requests/{id}/decision [post]
func (h *MembershipHandler) Decide(c *gin.Context, p *identity.Principal) {
	var param dto.IDParam
	if !bindURI(c, &param) {
		return
	}
	var req dto.MembershipDecision
	if !bindJSON(c, &req) {
		return
	}

	mr, err := h.service.Decide(c.Request.Context(), p, param.ID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, mr)
}
