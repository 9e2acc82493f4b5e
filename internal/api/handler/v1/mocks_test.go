package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gettruefans/truefans-api/internal/api/middleware"
	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
	"github.com/gettruefans/truefans-api/internal/service"
)

var (
	tacoBrandID = uint(7)
	ownerUser   = domain.User{ID: 1, Email: "owner@tacobros.com", Name: "Ana", Role: domain.RoleOwner}
	staffUser   = domain.User{ID: 2, Email: "counter@tacobros.com", Name: "Luis", Role: domain.RoleStaff, BrandID: &tacoBrandID}
)

// newTestRouter authenticates every request as userID. Zero leaves the
// request anonymous.
func newTestRouter(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(ctx *gin.Context) {
		if userID != 0 {
			ctx.Set(middleware.ContextKeyUserID, userID)
		}
		ctx.Next()
	})

	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

// usersByID answers GetUser from a fixed set of accounts.
func usersByID(users ...domain.User) *mockUserService {
	m := &mockUserService{}
	for _, u := range users {
		m.On("GetUser", mock.Anything, u.ID).Return(u, nil)
	}
	m.On("GetUser", mock.Anything, mock.Anything).Return(domain.User{}, service.ErrUserNotFound)
	return m
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Signup(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.User), args.Error(1)
}

type mockPassService struct {
	mock.Mock
}

func (m *mockPassService) Issue(ctx context.Context, reg domain.Registration) (domain.IssuedPass, service.Artifact, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(domain.IssuedPass), args.Get(1).(service.Artifact), args.Error(2)
}

func (m *mockPassService) GetPass(ctx context.Context, user domain.User, serial string) (domain.IssuedPass, error) {
	args := m.Called(ctx, user, serial)
	return args.Get(0).(domain.IssuedPass), args.Error(1)
}

func (m *mockPassService) UpdateCounters(ctx context.Context, user domain.User, serial string, u domain.CounterUpdate) (domain.IssuedPass, error) {
	args := m.Called(ctx, user, serial, u)
	return args.Get(0).(domain.IssuedPass), args.Error(1)
}

func (m *mockPassService) Validate(ctx context.Context, user domain.User, serial string, brandID uint) (domain.ValidationResult, error) {
	args := m.Called(ctx, user, serial, brandID)
	return args.Get(0).(domain.ValidationResult), args.Error(1)
}

func (m *mockPassService) Revoke(ctx context.Context, user domain.User, serial string) (domain.IssuedPass, error) {
	args := m.Called(ctx, user, serial)
	return args.Get(0).(domain.IssuedPass), args.Error(1)
}

func (m *mockPassService) ListBrandPasses(ctx context.Context, user domain.User, brandID uint, filter domain.PassFilter) ([]domain.IssuedPass, error) {
	args := m.Called(ctx, user, brandID, filter)
	return args.Get(0).([]domain.IssuedPass), args.Error(1)
}

func (m *mockPassService) WalletFile(ctx context.Context, serial string, platform pkpass.Platform) (service.Artifact, error) {
	args := m.Called(ctx, serial, platform)
	return args.Get(0).(service.Artifact), args.Error(1)
}

type mockBrandService struct {
	mock.Mock
}

func (m *mockBrandService) CreateBrand(ctx context.Context, owner domain.User, brand domain.Brand) (domain.Brand, error) {
	args := m.Called(ctx, owner, brand)
	return args.Get(0).(domain.Brand), args.Error(1)
}

func (m *mockBrandService) ListBrands(ctx context.Context, user domain.User) ([]domain.Brand, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]domain.Brand), args.Error(1)
}

func (m *mockBrandService) GetBrand(ctx context.Context, user domain.User, brandID uint) (domain.Brand, error) {
	args := m.Called(ctx, user, brandID)
	return args.Get(0).(domain.Brand), args.Error(1)
}

func (m *mockBrandService) FindNearbyBrands(ctx context.Context, point domain.GeoPoint, radiusMeters float64) ([]domain.NearbyBrand, error) {
	args := m.Called(ctx, point, radiusMeters)
	return args.Get(0).([]domain.NearbyBrand), args.Error(1)
}

func (m *mockBrandService) UpdateBrand(ctx context.Context, user domain.User, brand domain.Brand) (domain.Brand, error) {
	args := m.Called(ctx, user, brand)
	return args.Get(0).(domain.Brand), args.Error(1)
}

func (m *mockBrandService) DeleteBrand(ctx context.Context, user domain.User, brandID uint) error {
	return m.Called(ctx, user, brandID).Error(0)
}

func (m *mockBrandService) UpdatePromotion(ctx context.Context, user domain.User, brandID uint, promo domain.Promotion) (domain.Brand, error) {
	args := m.Called(ctx, user, brandID, promo)
	return args.Get(0).(domain.Brand), args.Error(1)
}

func (m *mockBrandService) AddStaff(ctx context.Context, user domain.User, brandID uint, staff domain.User) (domain.User, error) {
	args := m.Called(ctx, user, brandID, staff)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockBrandService) ListStaff(ctx context.Context, user domain.User, brandID uint) ([]domain.User, error) {
	args := m.Called(ctx, user, brandID)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockBrandService) ListLocations(ctx context.Context, user domain.User, brandID uint) ([]domain.Location, error) {
	args := m.Called(ctx, user, brandID)
	return args.Get(0).([]domain.Location), args.Error(1)
}

func (m *mockBrandService) CreateLocation(ctx context.Context, user domain.User, location domain.Location) (domain.Location, error) {
	args := m.Called(ctx, user, location)
	return args.Get(0).(domain.Location), args.Error(1)
}

func (m *mockBrandService) UpdateLocation(ctx context.Context, user domain.User, location domain.Location) (domain.Location, error) {
	args := m.Called(ctx, user, location)
	return args.Get(0).(domain.Location), args.Error(1)
}

func (m *mockBrandService) DeleteLocation(ctx context.Context, user domain.User, brandID, locationID uint) error {
	return m.Called(ctx, user, brandID, locationID).Error(0)
}

func (m *mockBrandService) ListTemplates(ctx context.Context, user domain.User, brandID uint, activeOnly bool) ([]domain.PassTemplate, error) {
	args := m.Called(ctx, user, brandID, activeOnly)
	return args.Get(0).([]domain.PassTemplate), args.Error(1)
}

func (m *mockBrandService) CreateTemplate(ctx context.Context, user domain.User, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	args := m.Called(ctx, user, tmpl)
	return args.Get(0).(domain.PassTemplate), args.Error(1)
}

func (m *mockBrandService) UpdateTemplate(ctx context.Context, user domain.User, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	args := m.Called(ctx, user, tmpl)
	return args.Get(0).(domain.PassTemplate), args.Error(1)
}

func (m *mockBrandService) SetTemplateActive(ctx context.Context, user domain.User, brandID, templateID uint, active bool) (domain.PassTemplate, error) {
	args := m.Called(ctx, user, brandID, templateID, active)
	return args.Get(0).(domain.PassTemplate), args.Error(1)
}

func (m *mockBrandService) GetPublicTemplate(ctx context.Context, brandID, templateID uint) (domain.Brand, domain.PassTemplate, error) {
	args := m.Called(ctx, brandID, templateID)
	return args.Get(0).(domain.Brand), args.Get(1).(domain.PassTemplate), args.Error(2)
}

func (m *mockBrandService) RegistrationQRCode(ctx context.Context, user domain.User, brandID, templateID uint) ([]byte, error) {
	args := m.Called(ctx, user, brandID, templateID)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockBrandService) ListDiners(ctx context.Context, user domain.User, brandID uint) ([]domain.Diner, error) {
	args := m.Called(ctx, user, brandID)
	return args.Get(0).([]domain.Diner), args.Error(1)
}

func (m *mockBrandService) ExportDiners(ctx context.Context, user domain.User, brandID uint) ([]byte, error) {
	args := m.Called(ctx, user, brandID)
	return args.Get(0).([]byte), args.Error(1)
}

type mockBillingService struct {
	mock.Mock
}

func (m *mockBillingService) Subscribe(ctx context.Context, user domain.User, brandID uint, email, paymentMethodID string) (domain.CheckoutResult, error) {
	args := m.Called(ctx, user, brandID, email, paymentMethodID)
	return args.Get(0).(domain.CheckoutResult), args.Error(1)
}

func (m *mockBillingService) GetSubscription(ctx context.Context, user domain.User, brandID uint) (domain.Subscription, error) {
	args := m.Called(ctx, user, brandID)
	return args.Get(0).(domain.Subscription), args.Error(1)
}

func (m *mockBillingService) UpdateSubscription(ctx context.Context, user domain.User, brandID uint, cancel bool) (domain.Subscription, error) {
	args := m.Called(ctx, user, brandID, cancel)
	return args.Get(0).(domain.Subscription), args.Error(1)
}
