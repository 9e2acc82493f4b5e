package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gettruefans/truefans-api/internal/api/handler/v1/request"
	"github.com/gettruefans/truefans-api/internal/api/handler/v1/response"
	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
	"github.com/gettruefans/truefans-api/internal/service"
)

type PassService interface {
	Issue(ctx context.Context, reg domain.Registration) (domain.IssuedPass, service.Artifact, error)
	GetPass(ctx context.Context, user domain.User, serial string) (domain.IssuedPass, error)
	UpdateCounters(ctx context.Context, user domain.User, serial string, u domain.CounterUpdate) (domain.IssuedPass, error)
	Validate(ctx context.Context, user domain.User, serial string, brandID uint) (domain.ValidationResult, error)
	Revoke(ctx context.Context, user domain.User, serial string) (domain.IssuedPass, error)
	ListBrandPasses(ctx context.Context, user domain.User, brandID uint, filter domain.PassFilter) ([]domain.IssuedPass, error)
	WalletFile(ctx context.Context, serial string, platform pkpass.Platform) (service.Artifact, error)
}

type PassHandler struct {
	svc  PassService
	uSvc UserService
}

func NewPassHandler(svc PassService, uSvc UserService) *PassHandler {
	return &PassHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleGeneratePass godoc
// @Summary      Register a diner and issue their digital pass
// @Tags         digital-passes
// @Produce      json
// @Param        request    body      request.GeneratePassRequest true "request body"
// @Param        download   query     bool  false  "stream the wallet file instead of JSON"
// @Success      201      {object}   response.IssuePassResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /digital-passes/generate [post]
func (h *PassHandler) HandleGeneratePass(ctx *gin.Context) {
	var req request.GeneratePassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	pass, artifact, err := h.svc.Issue(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBrandNotFound):
			response.RenderErr(ctx, response.ErrNotFound("brand", "id", req.BrandID))
		case errors.Is(err, service.ErrTemplateNotFound) && req.TemplateID != nil:
			response.RenderErr(ctx, response.ErrNotFound("template", "id", *req.TemplateID))
		default:
			renderServiceErr(ctx, "HandleGeneratePass -> h.svc.Issue", err)
		}
		return
	}

	if ctx.Query("download") == "true" {
		renderArtifact(ctx, artifact)
		return
	}

	ctx.JSON(http.StatusCreated, response.IssuePassResponse{
		Success:     true,
		PassID:      pass.Serial,
		DownloadURL: pass.ArtifactURL,
		ExpiresAt:   pass.ExpiresAt,
	})
}

// HandleGetPass godoc
// @Summary      Get an issued pass
// @Tags         digital-passes
// @Produce      json
// @Param        passId   path      string  true  "pass ID"
// @Success      200      {object}   response.PassResponse
// @Failure      404      {object}   response.Err
// @Router       /digital-passes/{passId} [get]
// @Security BearerAuth
func (h *PassHandler) HandleGetPass(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	serial, respErr := parseSerialParam(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	pass, err := h.svc.GetPass(ctx.Request.Context(), user, serial)
	if err != nil {
		h.renderPassErr(ctx, "HandleGetPass -> h.svc.GetPass", serial, err)
		return
	}

	ctx.JSON(http.StatusOK, response.PassResponse{Success: true, Pass: pass})
}

// HandleUpdatePass godoc
// @Summary      Set or shift a pass's points and visits
// @Tags         digital-passes
// @Produce      json
// @Param        passId    path      string  true  "pass ID"
// @Param        request   body      request.UpdatePassRequest true "request body"
// @Success      200      {object}   response.PassResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /digital-passes/{passId}/update [put]
// @Security BearerAuth
func (h *PassHandler) HandleUpdatePass(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UpdatePassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	serial, respErr := parseSerialParam(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	pass, err := h.svc.UpdateCounters(ctx.Request.Context(), user, serial, req.ToDomain())
	if err != nil {
		h.renderPassErr(ctx, "HandleUpdatePass -> h.svc.UpdateCounters", serial, err)
		return
	}

	ctx.JSON(http.StatusOK, response.PassResponse{Success: true, Pass: pass})
}

// HandleValidatePass godoc
// @Summary      Validate a scanned pass and record a visit
// @Tags         digital-passes
// @Produce      json
// @Param        request   body      request.ValidatePassRequest true "request body"
// @Success      200      {object}   response.ValidationResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /digital-passes/validate [post]
// @Security BearerAuth
func (h *PassHandler) HandleValidatePass(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ValidatePassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.Validate(ctx.Request.Context(), user, req.PassID, req.BrandID)
	if err != nil {
		h.renderPassErr(ctx, "HandleValidatePass -> h.svc.Validate", req.PassID, err)
		return
	}

	ctx.JSON(http.StatusOK, response.ValidationResponse{Success: true, ValidationResult: result})
}

// HandleRevokePass godoc
// @Summary      Revoke a pass
// @Tags         digital-passes
// @Produce      json
// @Param        passId   path      string  true  "pass ID"
// @Success      200      {object}   response.PassResponse
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /digital-passes/{passId}/revoke [post]
// @Security BearerAuth
func (h *PassHandler) HandleRevokePass(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	serial, respErr := parseSerialParam(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	pass, err := h.svc.Revoke(ctx.Request.Context(), user, serial)
	if err != nil {
		h.renderPassErr(ctx, "HandleRevokePass -> h.svc.Revoke", serial, err)
		return
	}

	ctx.JSON(http.StatusOK, response.PassResponse{Success: true, Pass: pass})
}

// HandleWalletFile godoc
// @Summary      Download the wallet file of a pass
// @Tags         digital-passes
// @Produce      application/vnd.apple.pkpass
// @Param        passId     path      string  true   "pass ID"
// @Param        platform   query     string  false  "ios or android"
// @Success      200
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /digital-passes/{passId}/wallet [get]
func (h *PassHandler) HandleWalletFile(ctx *gin.Context) {
	platform, err := pkpass.ParsePlatform(ctx.Query("platform"))
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	serial, respErr := parseSerialParam(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	artifact, err := h.svc.WalletFile(ctx.Request.Context(), serial, platform)
	if err != nil {
		h.renderPassErr(ctx, "HandleWalletFile -> h.svc.WalletFile", serial, err)
		return
	}

	renderArtifact(ctx, artifact)
}

// HandleListBrandPasses godoc
// @Summary      List the passes issued by a brand
// @Tags         digital-passes
// @Produce      json
// @Param        brandID   path      int     true   "brand ID"
// @Param        status    query     string  false  "pending, active, failed, expired or revoked"
// @Param        active    query     bool    false  "only active passes"
// @Param        phone     query     string  false  "only passes held by this diner phone"
// @Success      200      {array}    domain.IssuedPass
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/passes [get]
// @Security BearerAuth
func (h *PassHandler) HandleListBrandPasses(ctx *gin.Context) {
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

	filter := domain.PassFilter{
		Status:     domain.PassStatus(ctx.Query("status")),
		ActiveOnly: ctx.Query("active") == "true",
		DinerPhone: strings.TrimSpace(ctx.Query("phone")),
	}
	switch filter.Status {
	case "", domain.PassPending, domain.PassActive, domain.PassFailed, domain.PassExpired, domain.PassRevoked:
	default:
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("unknown pass status %q", filter.Status)))
		return
	}

	passes, err := h.svc.ListBrandPasses(ctx.Request.Context(), user, brandID, filter)
	if err != nil {
		renderServiceErr(ctx, "HandleListBrandPasses -> h.svc.ListBrandPasses", err)
		return
	}

	ctx.JSON(http.StatusOK, passes)
}

func (h *PassHandler) renderPassErr(ctx *gin.Context, op, serial string, err error) {
	if errors.Is(err, service.ErrIssuedPassNotFound) {
		response.RenderErr(ctx, response.ErrNotFound("pass", "pass_id", serial))
		return
	}

	renderServiceErr(ctx, op, err)
}

func renderArtifact(ctx *gin.Context, artifact service.Artifact) {
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.FileName))
	ctx.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
