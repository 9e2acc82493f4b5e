package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gettruefans/truefans-api/internal/api/handler/v1/request"
	"github.com/gettruefans/truefans-api/internal/api/handler/v1/response"
	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BrandService interface {
	CreateBrand(ctx context.Context, owner domain.User, brand domain.Brand) (domain.Brand, error)
	ListBrands(ctx context.Context, user domain.User) ([]domain.Brand, error)
	GetBrand(ctx context.Context, user domain.User, brandID uint) (domain.Brand, error)
	FindNearbyBrands(ctx context.Context, point domain.GeoPoint, radiusMeters float64) ([]domain.NearbyBrand, error)
	UpdateBrand(ctx context.Context, user domain.User, brand domain.Brand) (domain.Brand, error)
	DeleteBrand(ctx context.Context, user domain.User, brandID uint) error
	UpdatePromotion(ctx context.Context, user domain.User, brandID uint, promo domain.Promotion) (domain.Brand, error)

	AddStaff(ctx context.Context, user domain.User, brandID uint, staff domain.User) (domain.User, error)
	ListStaff(ctx context.Context, user domain.User, brandID uint) ([]domain.User, error)

	ListLocations(ctx context.Context, user domain.User, brandID uint) ([]domain.Location, error)
	CreateLocation(ctx context.Context, user domain.User, location domain.Location) (domain.Location, error)
	UpdateLocation(ctx context.Context, user domain.User, location domain.Location) (domain.Location, error)
	DeleteLocation(ctx context.Context, user domain.User, brandID, locationID uint) error

	ListTemplates(ctx context.Context, user domain.User, brandID uint, activeOnly bool) ([]domain.PassTemplate, error)
	CreateTemplate(ctx context.Context, user domain.User, tmpl domain.PassTemplate) (domain.PassTemplate, error)
	UpdateTemplate(ctx context.Context, user domain.User, tmpl domain.PassTemplate) (domain.PassTemplate, error)
	SetTemplateActive(ctx context.Context, user domain.User, brandID, templateID uint, active bool) (domain.PassTemplate, error)
	GetPublicTemplate(ctx context.Context, brandID, templateID uint) (domain.Brand, domain.PassTemplate, error)
	RegistrationQRCode(ctx context.Context, user domain.User, brandID, templateID uint) ([]byte, error)

	ListDiners(ctx context.Context, user domain.User, brandID uint) ([]domain.Diner, error)
	ExportDiners(ctx context.Context, user domain.User, brandID uint) ([]byte, error)
}

type BrandHandler struct {
	svc  BrandService
	uSvc UserService
}

func NewBrandHandler(svc BrandService, uSvc UserService) *BrandHandler {
	return &BrandHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleCreateBrand godoc
// @Summary      Create a brand owned by the caller
// @Tags         brands
// @Produce      json
// @Param        request   body      request.BrandRequest true "request body"
// @Success      201      {object}   domain.Brand
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /brands [post]
// @Security BearerAuth
func (h *BrandHandler) HandleCreateBrand(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.BrandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	brand, err := h.svc.CreateBrand(ctx.Request.Context(), user, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "HandleCreateBrand -> h.svc.CreateBrand", err)
		return
	}

	ctx.JSON(http.StatusCreated, brand)
}

// HandleListBrands godoc
// @Summary      List the brands the caller owns or works for
// @Tags         brands
// @Produce      json
// @Success      200      {array}    domain.Brand
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /brands [get]
// @Security BearerAuth
func (h *BrandHandler) HandleListBrands(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	brands, err := h.svc.ListBrands(ctx.Request.Context(), user)
	if err != nil {
		renderServiceErr(ctx, "HandleListBrands -> h.svc.ListBrands", err)
		return
	}

	ctx.JSON(http.StatusOK, brands)
}

// HandleNearbyBrands godoc
// @Summary      Find brands near a point
// @Tags         brands
// @Produce      json
// @Param        lat      query     number  true   "latitude"
// @Param        lng      query     number  true   "longitude"
// @Param        radius   query     number  false  "search radius in meters (default 500)"
// @Success      200      {array}    response.NearbyBrandResponse
// @Failure      400      {object}   response.Err
// @Router       /public/brands/nearby [get]
func (h *BrandHandler) HandleNearbyBrands(ctx *gin.Context) {
	var req request.NearbyBrandsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	brands, err := h.svc.FindNearbyBrands(ctx.Request.Context(), req.ToDomain(), req.Radius)
	if err != nil {
		renderServiceErr(ctx, "HandleNearbyBrands -> h.svc.FindNearbyBrands", err)
		return
	}

	resp := make([]response.NearbyBrandResponse, len(brands))
	for i, b := range brands {
		resp[i] = response.NearbyBrandResponse{
			ID:             b.ID,
			Name:           b.Name,
			Address:        b.Address,
			Location:       b.Location,
			LogoURL:        b.Wallet.LogoURL,
			DistanceMeters: b.DistanceMeters,
		}
	}

	ctx.JSON(http.StatusOK, resp)
}

// HandleGetBrand godoc
// @Summary      Get a brand
// @Tags         brands
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Success      200      {object}   domain.Brand
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID} [get]
// @Security BearerAuth
func (h *BrandHandler) HandleGetBrand(ctx *gin.Context) {
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

	brand, err := h.svc.GetBrand(ctx.Request.Context(), user, brandID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetBrand -> h.svc.GetBrand", err)
		return
	}

	ctx.JSON(http.StatusOK, brand)
}

// HandleUpdateBrand godoc
// @Summary      Update a brand's profile and wallet styling
// @Tags         brands
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.BrandRequest true "request body"
// @Success      200      {object}   domain.Brand
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID} [put]
// @Security BearerAuth
func (h *BrandHandler) HandleUpdateBrand(ctx *gin.Context) {
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

	var req request.BrandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	brand := req.ToDomain()
	brand.ID = brandID

	updated, err := h.svc.UpdateBrand(ctx.Request.Context(), user, brand)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateBrand -> h.svc.UpdateBrand", err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandleDeleteBrand godoc
// @Summary      Delete a brand
// @Tags         brands
// @Param        brandID   path      int  true  "brand ID"
// @Success      204
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID} [delete]
// @Security BearerAuth
func (h *BrandHandler) HandleDeleteBrand(ctx *gin.Context) {
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

	if err := h.svc.DeleteBrand(ctx.Request.Context(), user, brandID); err != nil {
		renderServiceErr(ctx, "HandleDeleteBrand -> h.svc.DeleteBrand", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleUpdatePromotion godoc
// @Summary      Set the brand's current promotion
// @Tags         brands
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.PromotionRequest true "request body"
// @Success      200      {object}   domain.Brand
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/promotion [put]
// @Security BearerAuth
func (h *BrandHandler) HandleUpdatePromotion(ctx *gin.Context) {
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

	var req request.PromotionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	brand, err := h.svc.UpdatePromotion(ctx.Request.Context(), user, brandID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "HandleUpdatePromotion -> h.svc.UpdatePromotion", err)
		return
	}

	ctx.JSON(http.StatusOK, brand)
}

// HandleAddStaff godoc
// @Summary      Create a staff login for a brand
// @Tags         brands
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.AddStaffRequest true "request body"
// @Success      201      {object}   domain.User
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/staff [post]
// @Security BearerAuth
func (h *BrandHandler) HandleAddStaff(ctx *gin.Context) {
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

	var req request.AddStaffRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	staff, err := h.svc.AddStaff(ctx.Request.Context(), user, brandID, domain.User{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		renderServiceErr(ctx, "HandleAddStaff -> h.svc.AddStaff", err)
		return
	}

	ctx.JSON(http.StatusCreated, staff)
}

// HandleListStaff godoc
// @Summary      List a brand's staff
// @Tags         brands
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Success      200      {array}    domain.User
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/staff [get]
// @Security BearerAuth
func (h *BrandHandler) HandleListStaff(ctx *gin.Context) {
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

	staff, err := h.svc.ListStaff(ctx.Request.Context(), user, brandID)
	if err != nil {
		renderServiceErr(ctx, "HandleListStaff -> h.svc.ListStaff", err)
		return
	}

	ctx.JSON(http.StatusOK, staff)
}

// HandleListLocations godoc
// @Summary      List a brand's locations
// @Tags         locations
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Success      200      {array}    domain.Location
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/locations [get]
// @Security BearerAuth
func (h *BrandHandler) HandleListLocations(ctx *gin.Context) {
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

	locations, err := h.svc.ListLocations(ctx.Request.Context(), user, brandID)
	if err != nil {
		renderServiceErr(ctx, "HandleListLocations -> h.svc.ListLocations", err)
		return
	}

	ctx.JSON(http.StatusOK, locations)
}

// HandleCreateLocation godoc
// @Summary      Add a location to a brand
// @Tags         locations
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Param        request   body      request.LocationRequest true "request body"
// @Success      201      {object}   domain.Location
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/locations [post]
// @Security BearerAuth
func (h *BrandHandler) HandleCreateLocation(ctx *gin.Context) {
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

	var req request.LocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	location, err := h.svc.CreateLocation(ctx.Request.Context(), user, domain.Location{
		BrandID: brandID,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		renderServiceErr(ctx, "HandleCreateLocation -> h.svc.CreateLocation", err)
		return
	}

	ctx.JSON(http.StatusCreated, location)
}

// HandleUpdateLocation godoc
// @Summary      Update a location
// @Tags         locations
// @Produce      json
// @Param        brandID      path      int  true  "brand ID"
// @Param        locationID   path      int  true  "location ID"
// @Param        request      body      request.LocationRequest true "request body"
// @Success      200      {object}   domain.Location
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/locations/{locationID} [put]
// @Security BearerAuth
func (h *BrandHandler) HandleUpdateLocation(ctx *gin.Context) {
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

	locationID, respErr := parseIDParam(ctx, "locationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.LocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	location, err := h.svc.UpdateLocation(ctx.Request.Context(), user, domain.Location{
		ID:      locationID,
		BrandID: brandID,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrLocationNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("location", "id", locationID))
			return
		}
		renderServiceErr(ctx, "HandleUpdateLocation -> h.svc.UpdateLocation", err)
		return
	}

	ctx.JSON(http.StatusOK, location)
}

// HandleDeleteLocation godoc
// @Summary      Delete a location
// @Tags         locations
// @Param        brandID      path      int  true  "brand ID"
// @Param        locationID   path      int  true  "location ID"
// @Success      204
// @Failure      404      {object}   response.Err
// @Router       /brands/{brandID}/locations/{locationID} [delete]
// @Security BearerAuth
func (h *BrandHandler) HandleDeleteLocation(ctx *gin.Context) {
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

	locationID, respErr := parseIDParam(ctx, "locationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteLocation(ctx.Request.Context(), user, brandID, locationID); err != nil {
		if errors.Is(err, service.ErrLocationNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("location", "id", locationID))
			return
		}
		renderServiceErr(ctx, "HandleDeleteLocation -> h.svc.DeleteLocation", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleListDiners godoc
// @Summary      List the diners registered with a brand
// @Tags         diners
// @Produce      json
// @Param        brandID   path      int  true  "brand ID"
// @Success      200      {array}    domain.Diner
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/diners [get]
// @Security BearerAuth
func (h *BrandHandler) HandleListDiners(ctx *gin.Context) {
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

	diners, err := h.svc.ListDiners(ctx.Request.Context(), user, brandID)
	if err != nil {
		renderServiceErr(ctx, "HandleListDiners -> h.svc.ListDiners", err)
		return
	}

	ctx.JSON(http.StatusOK, diners)
}

// HandleExportDiners godoc
// @Summary      Download the diner roster as a spreadsheet
// @Tags         diners
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        brandID   path      int  true  "brand ID"
// @Success      200
// @Failure      403      {object}   response.Err
// @Router       /brands/{brandID}/diners/export [get]
// @Security BearerAuth
func (h *BrandHandler) HandleExportDiners(ctx *gin.Context) {
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

	data, err := h.svc.ExportDiners(ctx.Request.Context(), user, brandID)
	if err != nil {
		renderServiceErr(ctx, "HandleExportDiners -> h.svc.ExportDiners", err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="diners-%d.xlsx"`, brandID))
	ctx.Data(http.StatusOK, xlsxContentType, data)
}
