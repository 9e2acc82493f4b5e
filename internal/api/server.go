package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	"github.com/gettruefans/truefans-api/docs"
	v1 "github.com/gettruefans/truefans-api/internal/api/handler/v1"
	"github.com/gettruefans/truefans-api/internal/api/middleware"
	"github.com/gettruefans/truefans-api/internal/config"
	"github.com/gettruefans/truefans-api/internal/pkg/imageutil"
	"github.com/gettruefans/truefans-api/internal/pkg/mailer"
	"github.com/gettruefans/truefans-api/internal/pkg/objectstore"
	"github.com/gettruefans/truefans-api/internal/pkg/payments"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
	"github.com/gettruefans/truefans-api/internal/repository"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
	"github.com/gettruefans/truefans-api/internal/service"
)

const logoFetchTimeout = 10 * time.Second

// Integrations holds the optional external clients. A nil field turns the
// feature off.
type Integrations struct {
	// Mongo stores issued passes when the mongo pass backend is selected.
	Mongo   *mongo.Database
	Store   *objectstore.Store
	Mailer  *mailer.Mailer
	Billing *payments.StripeGateway
}

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

type handlers struct {
	auth    *v1.AuthHandler
	user    *v1.UserHandler
	brand   *v1.BrandHandler
	pass    *v1.PassHandler
	billing *v1.BillingHandler
}

func NewServer(conf *config.AppConfig, db *gorm.DB, ext Integrations) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	brandRepo := repository.NewBrandRepository(dao.NewBrandDAO(db))
	uSvc := service.NewUserService(userRepo)

	s.MountHandlers(handlers{
		auth:    s.initAuthHandler(userRepo),
		user:    v1.NewUserHandler(uSvc),
		brand:   s.initBrandHandler(db, userRepo, brandRepo, uSvc),
		pass:    s.initPassHandler(db, ext, brandRepo, uSvc),
		billing: s.initBillingHandler(db, ext, brandRepo, uSvc),
	})

	return s
}

func (s *Server) initAuthHandler(userRepo *repository.UserRepository) *v1.AuthHandler {
	svc := service.NewAuthService(userRepo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initBrandHandler(db *gorm.DB, userRepo *repository.UserRepository, brandRepo *repository.BrandRepository, uSvc *service.UserService) *v1.BrandHandler {
	templateRepo := repository.NewTemplateRepository(dao.NewTemplateDAO(db))
	dinerRepo := repository.NewDinerRepository(dao.NewDinerDAO(db))
	svc := service.NewBrandService(brandRepo, templateRepo, dinerRepo, userRepo, s.Config.API.RegistrationURL)
	handler := v1.NewBrandHandler(svc, uSvc)

	return handler
}

func (s *Server) initPassHandler(db *gorm.DB, ext Integrations, brandRepo *repository.BrandRepository, uSvc *service.UserService) *v1.PassHandler {
	var passDAO repository.IssuedPassDAO = dao.NewIssuedPassDAO(db)
	if ext.Mongo != nil {
		passDAO = dao.NewMongoIssuedPassDAO(ext.Mongo)
	}

	builder := pkpass.NewBuilder(pkpass.Config{
		PassTypeIdentifier: s.Config.Wallet.PassTypeIdentifier,
		TeamIdentifier:     s.Config.Wallet.TeamIdentifier,
		CertPath:           s.Config.Wallet.CertPath,
		KeyPath:            s.Config.Wallet.KeyPath,
		WWDRPath:           s.Config.Wallet.WWDRPath,
		ModelDir:           s.Config.Wallet.ModelDir,
	})

	svc := service.NewPassService(
		repository.NewPassRepository(passDAO),
		brandRepo,
		repository.NewTemplateRepository(dao.NewTemplateDAO(db)),
		repository.NewDinerRepository(dao.NewDinerDAO(db)),
		builder,
		service.PassConfig{
			DefaultValidityDays: s.Config.Passes.DefaultValidityDays,
			DedupeRegistrations: s.Config.Passes.DedupeRegistrations,
			PublicURL:           s.Config.API.PublicURL,
			ArchiveDir:          s.Config.Wallet.OutputDir,
		},
	).WithLogoFetcher(imageutil.NewFetcher(&http.Client{Timeout: logoFetchTimeout}))

	// Optional clients are only attached when present so the service never
	// holds a typed nil.
	if ext.Store != nil {
		svc.WithArtifactStore(ext.Store)
	}
	if ext.Mailer != nil {
		svc.WithNotifier(ext.Mailer)
	}

	return v1.NewPassHandler(svc, uSvc)
}

func (s *Server) initBillingHandler(db *gorm.DB, ext Integrations, brandRepo *repository.BrandRepository, uSvc *service.UserService) *v1.BillingHandler {
	var gateway service.BillingGateway
	if ext.Billing != nil {
		gateway = ext.Billing
	}

	subRepo := repository.NewSubscriptionRepository(dao.NewSubscriptionDAO(db))
	svc := service.NewBillingService(brandRepo, subRepo, gateway)
	handler := v1.NewBillingHandler(svc, uSvc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h handlers) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/signup", h.auth.HandleSignup)
		public.POST("/auth/login", h.auth.HandleLogin)

		public.GET("/public/brands/nearby", h.brand.HandleNearbyBrands)
		public.GET("/public/brands/:brandID/templates/:templateID", h.brand.HandleGetPublicTemplate)

		public.POST("/digital-passes/generate", h.pass.HandleGeneratePass)
		public.GET("/digital-passes/:passId/wallet", h.pass.HandleWalletFile)
	}

	authed := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		authed.GET("/users/me", h.user.HandleGetMe)

		authed.POST("/brands", h.brand.HandleCreateBrand)
		authed.GET("/brands", h.brand.HandleListBrands)
		authed.GET("/brands/:brandID", h.brand.HandleGetBrand)
		authed.PUT("/brands/:brandID", h.brand.HandleUpdateBrand)
		authed.DELETE("/brands/:brandID", h.brand.HandleDeleteBrand)
		authed.PUT("/brands/:brandID/promotion", h.brand.HandleUpdatePromotion)
		authed.POST("/brands/:brandID/staff", h.brand.HandleAddStaff)
		authed.GET("/brands/:brandID/staff", h.brand.HandleListStaff)

		authed.GET("/brands/:brandID/locations", h.brand.HandleListLocations)
		authed.POST("/brands/:brandID/locations", h.brand.HandleCreateLocation)
		authed.PUT("/brands/:brandID/locations/:locationID", h.brand.HandleUpdateLocation)
		authed.DELETE("/brands/:brandID/locations/:locationID", h.brand.HandleDeleteLocation)

		authed.GET("/brands/:brandID/templates", h.brand.HandleListTemplates)
		authed.POST("/brands/:brandID/templates", h.brand.HandleCreateTemplate)
		authed.PUT("/brands/:brandID/templates/:templateID", h.brand.HandleUpdateTemplate)
		authed.POST("/brands/:brandID/templates/:templateID/activate", h.brand.HandleActivateTemplate)
		authed.POST("/brands/:brandID/templates/:templateID/deactivate", h.brand.HandleDeactivateTemplate)
		authed.GET("/brands/:brandID/templates/:templateID/qrcode", h.brand.HandleTemplateQRCode)

		authed.GET("/brands/:brandID/diners", h.brand.HandleListDiners)
		authed.GET("/brands/:brandID/diners/export", h.brand.HandleExportDiners)

		authed.GET("/brands/:brandID/passes", h.pass.HandleListBrandPasses)
		authed.POST("/brands/:brandID/subscription", h.billing.HandleSubscribe)
		authed.GET("/brands/:brandID/subscription", h.billing.HandleGetSubscription)
		authed.PUT("/brands/:brandID/subscription", h.billing.HandleUpdateSubscription)

		authed.POST("/digital-passes/validate", h.pass.HandleValidatePass)
		authed.GET("/digital-passes/:passId", h.pass.HandleGetPass)
		authed.PUT("/digital-passes/:passId/update", h.pass.HandleUpdatePass)
		authed.POST("/digital-passes/:passId/revoke", h.pass.HandleRevokePass)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "TrueFans API"
	docs.SwaggerInfo.Description = "Digital loyalty passes for restaurant brands."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
