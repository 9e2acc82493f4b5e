package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gettruefans/truefans-api/internal/api/handler/v1/response"
	"github.com/gettruefans/truefans-api/internal/api/middleware"
	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/passid"
	"github.com/gettruefans/truefans-api/internal/service"
)

var errNoUserInContext = errors.New("no authenticated user in context")

// notFoundSentinels is ordered from most to least specific.
var notFoundSentinels = []error{
	service.ErrIssuedPassNotFound,
	service.ErrTemplateNotFound,
	service.ErrLocationNotFound,
	service.ErrDinerNotFound,
	service.ErrSubscriptionNotFound,
	service.ErrBrandNotFound,
	service.ErrUserNotFound,
}

// HandleHealthcheck godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200      {object}   response.Healthcheck
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, response.Healthcheck{Status: "ok"})
}

func getUserFromContext(ctx *gin.Context, uSvc UserService) (domain.User, *response.Err) {
	userID := ctx.GetUint(middleware.ContextKeyUserID)
	if userID == 0 {
		return domain.User{}, response.ErrInvalidToken(errNoUserInContext)
	}

	user, err := uSvc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrInvalidToken(err)
		}

		err = fmt.Errorf("getUserFromContext -> uSvc.GetUser -> %w", err)
		return domain.User{}, response.ErrInternalServerError(err)
	}

	return user, nil
}

func parseIDParam(ctx *gin.Context, name string) (uint, *response.Err) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid %s: %q", name, ctx.Param(name)))
	}

	return uint(id), nil
}

// parseSerialParam reports a malformed pass ID as not found without
// touching the store.
func parseSerialParam(ctx *gin.Context) (string, *response.Err) {
	serial := ctx.Param("passId")
	if !passid.Valid(serial) {
		return "", response.ErrNotFound("pass", "pass_id", serial)
	}

	return serial, nil
}

// renderServiceErr maps service errors onto HTTP responses. op names the
// failing call for the log.
func renderServiceErr(ctx *gin.Context, op string, err error) {
	var issuanceErr *service.IssuanceError

	switch {
	case errors.As(err, &issuanceErr):
		response.RenderErr(ctx, response.ErrIssuance(issuanceErr.Serial, issuanceErr.Retryable(), fmt.Errorf("%s -> %w", op, err)))
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrUnsupportedPlatform), errors.Is(err, service.ErrUserEmailExists):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, service.ErrPermissionDenied):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrNotFound):
		response.RenderErr(ctx, response.ErrResourceNotFound(notFoundMessage(err)))
	case errors.Is(err, service.ErrDuplicate):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrBillingDisabled):
		response.RenderErr(ctx, response.ErrServiceUnavailable(service.ErrBillingDisabled.Error(), err))
	case errors.Is(err, service.ErrExternalService):
		response.RenderErr(ctx, response.ErrBadGateway(fmt.Errorf("%s -> %w", op, err)))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
	}
}

func notFoundMessage(err error) string {
	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return service.ErrNotFound.Error()
}
