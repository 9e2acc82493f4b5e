package v1

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gettruefans/truefans-api/internal/api/handler/v1/request"
	"github.com/gettruefans/truefans-api/internal/api/handler/v1/response"
	"github.com/gettruefans/truefans-api/internal/service"
)

// HandleListTemplates godoc
// @Summary      List a brand's pass templates
// @Tags         templates
// @Produce      json
// @Param        brandID   path      int   true   "brand ID"
// @Param        active    query     bool  false  "only active templates"
// @Success      200      {array}    domain.PassTemplate
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/templates [get]
// @Security BearerAuth
func (h *BrandHandler) HandleListTemplates(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brandID, respErr := parseIDParam(ctx, "brandID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	templates, err := h.svc.ListTemplates(ctx.Request.Context(), user, brandID, ctx.Query("active") == "true")
	if err != nil {
		renderServiceErr(ctx, "HandleListTemplates -> h.svc.ListTemplates", err)
		return
	}

	ctx.JSON(http.StatusOK, templates)
}

// HandleCreateTemplate godoc
// @Summary      Create a pass template
// @Tags         templates
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.TemplateRequest true "request body"
// @Success      201      {object}   domain.PassTemplate
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/templates [post]
// @Security BearerAuth
func (h *BrandHandler) HandleCreateTemplate(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brandID, respErr := parseIDParam(ctx, "brandID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	tmpl, err := h.svc.CreateTemplate(ctx.Request.Context(), user, req.ToDomain(brandID))
	if err != nil {
		renderServiceErr(ctx, "HandleCreateTemplate -> h.svc.CreateTemplate", err)
		return
	}

	ctx.JSON(http.StatusCreated, tmpl)
}

// HandleUpdateTemplate godoc
// @Summary      Update a pass template
// @Tags         templates
// @Produce      json
// @Param        brandID      path      int  true  "brand ID"
// @Param        templateID   path      int  true  "template ID"
// @Param        request      body      request.TemplateRequest true "request body"
// @Success      200      {object}   domain.PassTemplate
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/templates/{templateID} [put]
// @Security BearerAuth
func (h *BrandHandler) HandleUpdateTemplate(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brandID, respErr := parseIDParam(ctx, "brandID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	templateID, respErr := parseIDParam(ctx, "templateID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	tmpl := req.ToDomain(brandID)
	tmpl.ID = templateID

	updated, err := h.svc.UpdateTemplate(ctx.Request.Context(), user, tmpl)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("template", "id", templateID))
			return
		}
		renderServiceErr(ctx, "HandleUpdateTemplate -> h.svc.UpdateTemplate", err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandleActivateTemplate godoc
// @Summary      Make a template available for registration
// @Tags         templates
// @Produce      json
// @Param        brandID      path      int  true  "brand ID"
// @Param        templateID   path      int  true  "template ID"
// @Success      200      {object}   domain.PassTemplate
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/templates/{templateID}/activate [post]
// @Security BearerAuth
func (h *BrandHandler) HandleActivateTemplate(ctx *gin.Context) {
	h.setTemplateActive(ctx, true)
}

// HandleDeactivateTemplate godoc
// @Summary      Stop a template from accepting registrations
// @Tags         templates
// @Produce      json
// @Param        brandID      path      int  true  "brand ID"
// @Param        templateID   path      int  true  "template ID"
// @Success      200      {object}   domain.PassTemplate
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/templates/{templateID}/deactivate [post]
// @Security BearerAuth
func (h *BrandHandler) HandleDeactivateTemplate(ctx *gin.Context) {
	h.setTemplateActive(ctx, false)
}

func (h *BrandHandler) setTemplateActive(ctx *gin.Context, active bool) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brandID, respErr := parseIDParam(ctx, "brandID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	templateID, respErr := parseIDParam(ctx, "templateID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	tmpl, err := h.svc.SetTemplateActive(ctx.Request.Context(), user, brandID, templateID, active)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("template", "id", templateID))
			return
		}
		renderServiceErr(ctx, "setTemplateActive -> h.svc.SetTemplateActive", err)
		return
	}

	ctx.JSON(http.StatusOK, tmpl)
}

// HandleGetPublicTemplate godoc
// @Summary      Get the brand and template shown on the registration page
// @Tags         templates
// @Produce      json
// @Param        brandID      path      int  true  "brand ID"
// @Param        templateID   path      int  true  "template ID"
// @Success      200      {object}   response.PublicTemplateResponse
// @Failure      404      {object}   response.Err
// @Router       /public/brands/{brandID}/templates/{templateID} [get]
func (h *BrandHandler) HandleGetPublicTemplate(ctx *gin.Context) {
	brandID, respErr := parseIDParam(ctx, "brandID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	templateID, respErr := parseIDParam(ctx, "templateID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brand, tmpl, err := h.svc.GetPublicTemplate(ctx.Request.Context(), brandID, templateID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetPublicTemplate -> h.svc.GetPublicTemplate", err)
		return
	}

	resp := response.PublicTemplateResponse{
		BrandID:      brand.ID,
		BrandName:    brand.Name,
		Wallet:       brand.Wallet,
		TemplateID:   tmpl.ID,
		Name:         tmpl.Name,
		Description:  tmpl.Description,
		Benefits:     tmpl.Benefits,
		ValidityDays: tmpl.ValidityDays,
		Color:        tmpl.Color,
		Punches:      tmpl.Punches,
		ImageURL:     tmpl.ImageURL,
	}
	if brand.Promotion.IsCurrent(time.Now()) {
		promo := brand.Promotion
		resp.Promotion = &promo
	}

	ctx.JSON(http.StatusOK, resp)
}

// HandleTemplateQRCode godoc
// @Summary      QR code linking to the registration page for a template
// @Tags         templates
// @Produce      png
// @Param        brandID      path      int  true  "brand ID"
// @Param        templateID   path      int  true  "template ID"
// @Success      200
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/templates/{templateID}/qrcode [get]
// @Security BearerAuth
func (h *BrandHandler) HandleTemplateQRCode(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brandID, respErr := parseIDParam(ctx, "brandID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	templateID, respErr := parseIDParam(ctx, "templateID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	png, err := h.svc.RegistrationQRCode(ctx.Request.Context(), user, brandID, templateID)
	if err != nil {
		renderServiceErr(ctx, "HandleTemplateQRCode -> h.svc.RegistrationQRCode", err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`inline; filename="brand-%d-template-%d.png"`, brandID, templateID))
	ctx.Data(http.StatusOK, "image/png", png)
}
