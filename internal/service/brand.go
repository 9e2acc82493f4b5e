package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"github.com/xuri/excelize/v2"

	"github.com/gettruefans/truefans-api/internal/domain"
)

const (
	qrCodeSize   = 256
	dinersSheet  = "Diners"
	birthdayForm = "2006-01-02"

	DefaultNearbyRadius = 500.0
	MaxNearbyRadius     = 50000.0
	nearbyLimit         = 50
)

var maxDiscount = decimal.NewFromInt(100)

type BrandRepository interface {
	Create(ctx context.Context, brand domain.Brand) (domain.Brand, error)
	FindByID(ctx context.Context, id uint) (domain.Brand, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]domain.Brand, error)
	FindNearby(ctx context.Context, point domain.GeoPoint, radiusMeters float64, limit int) ([]domain.NearbyBrand, error)
	UpdateProfile(ctx context.Context, brand domain.Brand) (domain.Brand, error)
	UpdatePromotion(ctx context.Context, brandID uint, promo domain.Promotion) (domain.Brand, error)
	Delete(ctx context.Context, id uint) error
	CreateLocation(ctx context.Context, location domain.Location) (domain.Location, error)
	FindLocations(ctx context.Context, brandID uint) ([]domain.Location, error)
	UpdateLocation(ctx context.Context, location domain.Location) (domain.Location, error)
	DeleteLocation(ctx context.Context, brandID, locationID uint) error
}

type TemplateRepository interface {
	Create(ctx context.Context, tmpl domain.PassTemplate) (domain.PassTemplate, error)
	FindByID(ctx context.Context, id uint) (domain.PassTemplate, error)
	FindByBrand(ctx context.Context, brandID uint, activeOnly bool) ([]domain.PassTemplate, error)
	Update(ctx context.Context, tmpl domain.PassTemplate) (domain.PassTemplate, error)
	SetActive(ctx context.Context, brandID, id uint, active bool) (domain.PassTemplate, error)
}

type DinerRepository interface {
	Create(ctx context.Context, diner domain.Diner) (domain.Diner, error)
	FindByBrand(ctx context.Context, brandID uint) ([]domain.Diner, error)
}

type StaffRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindStaffByBrand(ctx context.Context, brandID uint) ([]domain.User, error)
}

// BrandService manages everything an owner configures: brands, their
// locations and pass templates, staff accounts and the diner roster.
type BrandService struct {
	brands          BrandRepository
	templates       TemplateRepository
	diners          DinerRepository
	staff           StaffRepository
	registrationURL string
}

func NewBrandService(brands BrandRepository, templates TemplateRepository, diners DinerRepository, staff StaffRepository, registrationURL string) *BrandService {
	return &BrandService{
		brands:          brands,
		templates:       templates,
		diners:          diners,
		staff:           staff,
		registrationURL: registrationURL,
	}
}

func (s *BrandService) CreateBrand(ctx context.Context, owner domain.User, brand domain.Brand) (domain.Brand, error) {
	if owner.Role != domain.RoleOwner {
		return domain.Brand{}, ErrPermissionDenied
	}

	brand.ID = 0
	brand.OwnerID = owner.ID
	brand.SubscriptionStatus = domain.SubscriptionTrial
	brand.BillingCustomerID = ""

	created, err := s.brands.Create(ctx, brand)
	if err != nil {
		return domain.Brand{}, fmt.Errorf("s.brands.Create -> %w", err)
	}

	return created, nil
}

// ListBrands returns the brands an owner holds, or the one a staff member
// works at.
func (s *BrandService) ListBrands(ctx context.Context, user domain.User) ([]domain.Brand, error) {
	if user.Role == domain.RoleStaff {
		if user.BrandID == nil {
			return []domain.Brand{}, nil
		}
		brand, err := s.brands.FindByID(ctx, *user.BrandID)
		if err != nil {
			return nil, fmt.Errorf("s.brands.FindByID -> %w", err)
		}
		return []domain.Brand{brand}, nil
	}

	brands, err := s.brands.FindByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("s.brands.FindByOwner -> %w", err)
	}

	return brands, nil
}

func (s *BrandService) GetBrand(ctx context.Context, user domain.User, brandID uint) (domain.Brand, error) {
	return authorizeBrand(ctx, s.brands, user, brandID, true)
}

// UpdateBrand replaces the profile and wallet styling. Ownership, billing
// and the promotion are not touched.
// FindNearbyBrands lists brands within radiusMeters of point, nearest
// first. A zero radius searches DefaultNearbyRadius.
func (s *BrandService) FindNearbyBrands(ctx context.Context, point domain.GeoPoint, radiusMeters float64) ([]domain.NearbyBrand, error) {
	if radiusMeters == 0 {
		radiusMeters = DefaultNearbyRadius
	}
	if radiusMeters < 0 || radiusMeters > MaxNearbyRadius {
		return nil, validationError(fmt.Errorf("radius must be between 0 and %.0f meters", MaxNearbyRadius))
	}

	err := validation.ValidateStruct(&point,
		validation.Field(&point.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&point.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)
	if err != nil {
		return nil, validationError(err)
	}

	brands, err := s.brands.FindNearby(ctx, point, radiusMeters, nearbyLimit)
	if err != nil {
		return nil, fmt.Errorf("s.brands.FindNearby -> %w", err)
	}

	return brands, nil
}

func (s *BrandService) UpdateBrand(ctx context.Context, user domain.User, brand domain.Brand) (domain.Brand, error) {
	current, err := authorizeBrand(ctx, s.brands, user, brand.ID, false)
	if err != nil {
		return domain.Brand{}, err
	}
	brand.OwnerID = current.OwnerID

	updated, err := s.brands.UpdateProfile(ctx, brand)
	if err != nil {
		return domain.Brand{}, fmt.Errorf("s.brands.UpdateProfile -> %w", err)
	}

	return updated, nil
}

func (s *BrandService) DeleteBrand(ctx context.Context, user domain.User, brandID uint) error {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return err
	}

	if err := s.brands.Delete(ctx, brandID); err != nil {
		return fmt.Errorf("s.brands.Delete -> %w", err)
	}

	return nil
}

func (s *BrandService) UpdatePromotion(ctx context.Context, user domain.User, brandID uint, promo domain.Promotion) (domain.Brand, error) {
	if promo.Discount.IsNegative() || promo.Discount.GreaterThan(maxDiscount) {
		return domain.Brand{}, validationError(fmt.Errorf("discount must be between 0 and 100, got %s", promo.Discount))
	}

	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return domain.Brand{}, err
	}

	updated, err := s.brands.UpdatePromotion(ctx, brandID, promo)
	if err != nil {
		return domain.Brand{}, fmt.Errorf("s.brands.UpdatePromotion -> %w", err)
	}

	return updated, nil
}

// AddStaff creates a staff login bound to the brand.
func (s *BrandService) AddStaff(ctx context.Context, user domain.User, brandID uint, staff domain.User) (domain.User, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return domain.User{}, err
	}

	if _, err := s.staff.FindByEmail(ctx, staff.Email); err == nil {
		return domain.User{}, ErrUserEmailExists
	}

	hashedPassword, err := hashPassword(staff.Password)
	if err != nil {
		return domain.User{}, err
	}
	staff.Password = hashedPassword
	staff.Role = domain.RoleStaff
	staff.BrandID = &brandID

	created, err := s.staff.Create(ctx, staff)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.staff.Create -> %w", err)
	}

	return created, nil
}

func (s *BrandService) ListStaff(ctx context.Context, user domain.User, brandID uint) ([]domain.User, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return nil, err
	}

	staff, err := s.staff.FindStaffByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("s.staff.FindStaffByBrand -> %w", err)
	}

	return staff, nil
}

func (s *BrandService) ListLocations(ctx context.Context, user domain.User, brandID uint) ([]domain.Location, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, true); err != nil {
		return nil, err
	}

	locations, err := s.brands.FindLocations(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("s.brands.FindLocations -> %w", err)
	}

	return locations, nil
}

func (s *BrandService) CreateLocation(ctx context.Context, user domain.User, location domain.Location) (domain.Location, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, location.BrandID, false); err != nil {
		return domain.Location{}, err
	}

	created, err := s.brands.CreateLocation(ctx, location)
	if err != nil {
		return domain.Location{}, fmt.Errorf("s.brands.CreateLocation -> %w", err)
	}

	return created, nil
}

func (s *BrandService) UpdateLocation(ctx context.Context, user domain.User, location domain.Location) (domain.Location, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, location.BrandID, false); err != nil {
		return domain.Location{}, err
	}

	updated, err := s.brands.UpdateLocation(ctx, location)
	if err != nil {
		return domain.Location{}, fmt.Errorf("s.brands.UpdateLocation -> %w", err)
	}

	return updated, nil
}

func (s *BrandService) DeleteLocation(ctx context.Context, user domain.User, brandID, locationID uint) error {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return err
	}

	if err := s.brands.DeleteLocation(ctx, brandID, locationID); err != nil {
		return fmt.Errorf("s.brands.DeleteLocation -> %w", err)
	}

	return nil
}

func (s *BrandService) ListTemplates(ctx context.Context, user domain.User, brandID uint, activeOnly bool) ([]domain.PassTemplate, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, true); err != nil {
		return nil, err
	}

	templates, err := s.templates.FindByBrand(ctx, brandID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("s.templates.FindByBrand -> %w", err)
	}

	return templates, nil
}

func (s *BrandService) CreateTemplate(ctx context.Context, user domain.User, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	if err := validateTemplate(&tmpl); err != nil {
		return domain.PassTemplate{}, err
	}
	if _, err := authorizeBrand(ctx, s.brands, user, tmpl.BrandID, false); err != nil {
		return domain.PassTemplate{}, err
	}

	created, err := s.templates.Create(ctx, tmpl)
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("s.templates.Create -> %w", err)
	}

	return created, nil
}

func (s *BrandService) UpdateTemplate(ctx context.Context, user domain.User, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	if err := validateTemplate(&tmpl); err != nil {
		return domain.PassTemplate{}, err
	}
	if _, err := authorizeBrand(ctx, s.brands, user, tmpl.BrandID, false); err != nil {
		return domain.PassTemplate{}, err
	}

	updated, err := s.templates.Update(ctx, tmpl)
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("s.templates.Update -> %w", err)
	}

	return updated, nil
}

// SetTemplateActive activates or deactivates a template. Deactivated
// templates keep resolving for passes already issued from them.
func (s *BrandService) SetTemplateActive(ctx context.Context, user domain.User, brandID, templateID uint, active bool) (domain.PassTemplate, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return domain.PassTemplate{}, err
	}

	tmpl, err := s.templates.SetActive(ctx, brandID, templateID, active)
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("s.templates.SetActive -> %w", err)
	}

	return tmpl, nil
}

// GetPublicTemplate returns what the registration page shows. Inactive or
// foreign templates are not found.
func (s *BrandService) GetPublicTemplate(ctx context.Context, brandID, templateID uint) (domain.Brand, domain.PassTemplate, error) {
	brand, err := s.brands.FindByID(ctx, brandID)
	if err != nil {
		return domain.Brand{}, domain.PassTemplate{}, fmt.Errorf("s.brands.FindByID -> %w", err)
	}

	tmpl, err := s.brandTemplate(ctx, brandID, templateID)
	if err != nil {
		return domain.Brand{}, domain.PassTemplate{}, err
	}
	if !tmpl.Active {
		return domain.Brand{}, domain.PassTemplate{}, ErrTemplateNotFound
	}

	return brand, tmpl, nil
}

// RegistrationLink is the public URL diners open to register.
func (s *BrandService) RegistrationLink(brandID, templateID uint) string {
	q := url.Values{}
	q.Set("brandId", strconv.FormatUint(uint64(brandID), 10))
	q.Set("passId", strconv.FormatUint(uint64(templateID), 10))

	return s.registrationURL + "?" + q.Encode()
}

// RegistrationQRCode renders the registration link of a template as PNG.
func (s *BrandService) RegistrationQRCode(ctx context.Context, user domain.User, brandID, templateID uint) ([]byte, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, true); err != nil {
		return nil, err
	}
	if _, err := s.brandTemplate(ctx, brandID, templateID); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.RegistrationLink(brandID, templateID), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("qrcode.Encode -> %w", err)
	}

	return png, nil
}

func (s *BrandService) ListDiners(ctx context.Context, user domain.User, brandID uint) ([]domain.Diner, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
		return nil, err
	}

	diners, err := s.diners.FindByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("s.diners.FindByBrand -> %w", err)
	}

	return diners, nil
}

// ExportDiners returns the roster as an xlsx workbook.
func (s *BrandService) ExportDiners(ctx context.Context, user domain.User, brandID uint) ([]byte, error) {
	diners, err := s.ListDiners(ctx, user, brandID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err = f.SetSheetName("Sheet1", dinersSheet); err != nil {
		return nil, fmt.Errorf("f.SetSheetName -> %w", err)
	}

	header := []interface{}{"Name", "Phone", "Email", "Birthday", "Referral source", "Template", "Registered at"}
	if err = setRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, d := range diners {
		templateID := ""
		if d.TemplateID != nil {
			templateID = strconv.FormatUint(uint64(*d.TemplateID), 10)
		}
		row := []interface{}{d.Name, d.Phone, d.Email, d.Birthday, d.ReferralSource, templateID, d.CreatedAt.UTC().Format(time.RFC3339)}
		if err = setRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("f.WriteToBuffer -> %w", err)
	}

	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("excelize.CoordinatesToCellName -> %w", err)
	}

	if err = f.SetSheetRow(dinersSheet, cell, &values); err != nil {
		return fmt.Errorf("f.SetSheetRow -> %w", err)
	}

	return nil
}

func (s *BrandService) brandTemplate(ctx context.Context, brandID, templateID uint) (domain.PassTemplate, error) {
	tmpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("s.templates.FindByID -> %w", err)
	}
	if tmpl.BrandID != brandID {
		return domain.PassTemplate{}, ErrTemplateNotFound
	}

	return tmpl, nil
}

func validateTemplate(tmpl *domain.PassTemplate) error {
	if tmpl.ValidityDays == 0 {
		tmpl.ValidityDays = domain.DefaultValidityDays
	}

	err := validation.ValidateStruct(tmpl,
		validation.Field(&tmpl.Name, validation.Required),
		validation.Field(&tmpl.ValidityDays, validation.Min(1)),
		validation.Field(&tmpl.Punches, validation.Min(0), validation.Max(domain.MaxPunches)),
	)
	if err != nil {
		return validationError(err)
	}

	return nil
}
