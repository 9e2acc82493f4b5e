package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gettruefans/truefans-api/internal/api/handler/v1/request"
	"github.com/gettruefans/truefans-api/internal/api/handler/v1/response"
	"github.com/gettruefans/truefans-api/internal/domain"
)

type BillingService interface {
	Subscribe(ctx context.Context, user domain.User, brandID uint, email, paymentMethodID string) (domain.CheckoutResult, error)
	GetSubscription(ctx context.Context, user domain.User, brandID uint) (domain.Subscription, error)
	UpdateSubscription(ctx context.Context, user domain.User, brandID uint, cancel bool) (domain.Subscription, error)
}

type BillingHandler struct {
	svc  BillingService
	uSvc UserService
}

func NewBillingHandler(svc BillingService, uSvc UserService) *BillingHandler {
	return &BillingHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleSubscribe godoc
// @Summary      Start the brand's subscription
// @Tags         billing
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.SubscribeRequest true "request body"
// @Success      201      {object}   domain.CheckoutResult
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      502      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /brands/{brandID}/subscription [post]
// @Security BearerAuth
func (h *BillingHandler) HandleSubscribe(ctx *gin.Context) {
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

	var req request.SubscribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.Subscribe(ctx.Request.Context(), user, brandID, req.Email, req.PaymentMethodID)
	if err != nil {
		renderServiceErr(ctx, "HandleSubscribe -> h.svc.Subscribe", err)
		return
	}

	ctx.JSON(http.StatusCreated, result)
}

// HandleGetSubscription godoc
// @Summary      Get the brand's subscription status
// @Tags         billing
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Success      200      {object}   domain.Subscription
// @Failure      404      {object}   response.Err
// @Failure      502      {object}   response.Err
// @Router       /brands/{brandID}/subscription [get]
// @Security BearerAuth
func (h *BillingHandler) HandleGetSubscription(ctx *gin.Context) {
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

	sub, err := h.svc.GetSubscription(ctx.Request.Context(), user, brandID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetSubscription -> h.svc.GetSubscription", err)
		return
	}

	ctx.JSON(http.StatusOK, sub)
}

// HandleUpdateSubscription godoc
// @Summary      Cancel or resume the subscription at period end
// @Tags         billing
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.UpdateSubscriptionRequest true "request body"
// @Success      200      {object}   domain.Subscription
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/subscription [put]
// @Security BearerAuth
func (h *BillingHandler) HandleUpdateSubscription(ctx *gin.Context) {
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

	var req request.UpdateSubscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	sub, err := h.svc.UpdateSubscription(ctx.Request.Context(), user, brandID, *req.Cancel)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateSubscription -> h.svc.UpdateSubscription", err)
		return
	}

	ctx.JSON(http.StatusOK, sub)
}
