package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/mailer"
	"github.com/gettruefans/truefans-api/internal/pkg/passid"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
)

type PassRepository interface {
	Create(ctx context.Context, pass domain.IssuedPass) (domain.IssuedPass, error)
	FindBySerial(ctx context.Context, serial string) (domain.IssuedPass, error)
	FindByBrand(ctx context.Context, brandID uint, filter domain.PassFilter) ([]domain.IssuedPass, error)
	FindActiveForDiner(ctx context.Context, brandID uint, templateID *uint, phone string, now time.Time) (domain.IssuedPass, error)
	SetStatus(ctx context.Context, serial string, status domain.PassStatus, active bool) (domain.IssuedPass, error)
	Commit(ctx context.Context, serial, artifactURL string) (domain.IssuedPass, error)
	UpdateCounters(ctx context.Context, serial string, u domain.CounterUpdate) (domain.IssuedPass, error)
	RecordVisit(ctx context.Context, serial string, brandID uint, now time.Time) (domain.IssuedPass, error)
	ExpireDue(ctx context.Context, brandID uint, now time.Time) (int64, error)
}

type TemplateFinder interface {
	FindByID(ctx context.Context, id uint) (domain.PassTemplate, error)
}

type DinerWriter interface {
	Create(ctx context.Context, diner domain.Diner) (domain.Diner, error)
	Delete(ctx context.Context, id uint) error
}

type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	URL(ctx context.Context, key string) (string, error)
}

type Notifier interface {
	SendPassIssued(ctx context.Context, msg mailer.PassIssued) (string, error)
}

type PassConfig struct {
	DefaultValidityDays int
	DedupeRegistrations bool
	// PublicURL is where the API is reachable by diners, used for wallet
	// links when no artifact store is configured.
	PublicURL string
	// ArchiveDir, when set, keeps a copy of every committed wallet file on
	// local disk.
	ArchiveDir string
}

type PassService struct {
	passes    PassRepository
	brands    BrandFinder
	templates TemplateFinder
	diners    DinerWriter
	builder   WalletBuilder
	conf      PassConfig

	logos    LogoFetcher
	store    ArtifactStore
	notifier Notifier

	newSerial func() (string, error)
	now       func() time.Time
}

func NewPassService(passes PassRepository, brands BrandFinder, templates TemplateFinder, diners DinerWriter, builder WalletBuilder, conf PassConfig) *PassService {
	if conf.DefaultValidityDays <= 0 {
		conf.DefaultValidityDays = 365
	}

	return &PassService{
		passes:    passes,
		brands:    brands,
		templates: templates,
		diners:    diners,
		builder:   builder,
		conf:      conf,
		newSerial: passid.New,
		now:       time.Now,
	}
}

func (s *PassService) WithLogoFetcher(f LogoFetcher) *PassService {
	s.logos = f
	return s
}

// WithArtifactStore uploads built wallet files and hands out presigned
// links instead of API wallet URLs.
func (s *PassService) WithArtifactStore(store ArtifactStore) *PassService {
	s.store = store
	return s
}

func (s *PassService) WithNotifier(n Notifier) *PassService {
	s.notifier = n
	return s
}

// Issue registers a diner and issues their pass.
//
// Nothing is written when the brand or template cannot be resolved. Once
// the pending record exists, failures to build, store or commit the wallet
// file leave it failed and are returned as *IssuanceError.
func (s *PassService) Issue(ctx context.Context, reg domain.Registration) (domain.IssuedPass, Artifact, error) {
	if err := validateRegistration(&reg); err != nil {
		return domain.IssuedPass{}, Artifact{}, err
	}

	brand, err := s.brands.FindByID(ctx, reg.BrandID)
	if err != nil {
		return domain.IssuedPass{}, Artifact{}, fmt.Errorf("s.brands.FindByID -> %w", err)
	}

	var tmpl *domain.PassTemplate
	if reg.TemplateID != nil {
		t, err := s.templates.FindByID(ctx, *reg.TemplateID)
		if err != nil {
			return domain.IssuedPass{}, Artifact{}, fmt.Errorf("s.templates.FindByID -> %w", err)
		}
		if t.BrandID != brand.ID || !t.Active {
			return domain.IssuedPass{}, Artifact{}, ErrTemplateNotFound
		}
		tmpl = &t
	}

	now := s.now()

	if s.conf.DedupeRegistrations {
		existing, err := s.passes.FindActiveForDiner(ctx, brand.ID, reg.TemplateID, reg.Phone, now)
		switch {
		case err == nil:
			artifact, err := s.buildArtifact(ctx, existing, brand, tmpl)
			if err != nil {
				return domain.IssuedPass{}, Artifact{}, &IssuanceError{Serial: existing.Serial, Err: err}
			}
			return existing, artifact, nil
		case !errors.Is(err, ErrIssuedPassNotFound):
			return domain.IssuedPass{}, Artifact{}, fmt.Errorf("s.passes.FindActiveForDiner -> %w", err)
		}
	}

	diner, err := s.diners.Create(ctx, domain.Diner{
		Name:           reg.Name,
		Phone:          reg.Phone,
		Email:          reg.Email,
		Birthday:       reg.Birthday,
		ReferralSource: reg.ReferralSource,
		BrandID:        brand.ID,
		TemplateID:     reg.TemplateID,
	})
	if err != nil {
		return domain.IssuedPass{}, Artifact{}, fmt.Errorf("s.diners.Create -> %w", err)
	}

	pass, err := s.reserve(ctx, domain.IssuedPass{
		DinerID:    diner.ID,
		DinerName:  diner.Name,
		DinerPhone: diner.Phone,
		BrandID:    brand.ID,
		TemplateID: reg.TemplateID,
		Status:     domain.PassPending,
		IsActive:   false,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, s.validityDays(tmpl)),
	})
	if err != nil {
		s.discardDiner(ctx, diner.ID)
		return domain.IssuedPass{}, Artifact{}, err
	}

	artifact, err := s.buildArtifact(ctx, pass, brand, tmpl)
	if err != nil {
		s.markFailed(ctx, pass.Serial, err)
		return domain.IssuedPass{}, Artifact{}, &IssuanceError{Serial: pass.Serial, Err: err}
	}

	committed, err := s.publish(ctx, pass.Serial, artifact)
	if err != nil {
		s.markFailed(ctx, pass.Serial, err)
		return domain.IssuedPass{}, Artifact{}, &IssuanceError{Serial: pass.Serial, Err: err}
	}

	if reg.Email != "" {
		s.notify(ctx, reg.Email, committed, brand)
	}

	return committed, artifact, nil
}

// discardDiner removes a diner whose pass could not be reserved, so the
// roster never lists a diner without a pass.
func (s *PassService) discardDiner(ctx context.Context, id uint) {
	if err := s.diners.Delete(context.WithoutCancel(ctx), id); err != nil {
		zap.L().Error("could not remove diner without pass", zap.Uint("diner_id", id), zap.Error(err))
	}
}

// reserve inserts the pending record under a fresh serial, minting once
// more if the first one collides.
func (s *PassService) reserve(ctx context.Context, pass domain.IssuedPass) (domain.IssuedPass, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		pass.Serial, err = s.newSerial()
		if err != nil {
			return domain.IssuedPass{}, fmt.Errorf("s.newSerial -> %w", err)
		}

		var created domain.IssuedPass
		created, err = s.passes.Create(ctx, pass)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return domain.IssuedPass{}, fmt.Errorf("s.passes.Create -> %w", err)
		}
		zap.L().Warn("pass serial collision", zap.String("serial", pass.Serial), zap.Int("attempt", attempt+1))
	}

	return domain.IssuedPass{}, fmt.Errorf("s.passes.Create -> %w", err)
}

// publish stores the artifact when an artifact store is configured and
// commits the pass active with its download URL.
func (s *PassService) publish(ctx context.Context, serial string, artifact Artifact) (domain.IssuedPass, error) {
	downloadURL := s.walletURL(serial)

	if s.conf.ArchiveDir != "" {
		if _, err := pkpass.WriteFile(s.conf.ArchiveDir, serial, artifact.Data); err != nil {
			return domain.IssuedPass{}, fmt.Errorf("pkpass.WriteFile -> %w", err)
		}
	}

	if s.store != nil {
		key := "passes/" + artifact.FileName
		if err := s.store.Put(ctx, key, artifact.ContentType, artifact.Data); err != nil {
			return domain.IssuedPass{}, fmt.Errorf("s.store.Put -> %w", err)
		}

		url, err := s.store.URL(ctx, key)
		if err != nil {
			return domain.IssuedPass{}, fmt.Errorf("s.store.URL -> %w", err)
		}
		downloadURL = url
	}

	pass, err := s.passes.Commit(ctx, serial, downloadURL)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("s.passes.Commit -> %w", err)
	}

	return pass, nil
}

func (s *PassService) markFailed(ctx context.Context, serial string, cause error) {
	zap.L().Error("pass issuance failed", zap.String("serial", serial), zap.Error(cause))

	if _, err := s.passes.SetStatus(context.WithoutCancel(ctx), serial, domain.PassFailed, false); err != nil {
		zap.L().Error("could not mark pass failed", zap.String("serial", serial), zap.Error(err))
	}
}

func (s *PassService) notify(ctx context.Context, to string, pass domain.IssuedPass, brand domain.Brand) {
	if s.notifier == nil {
		return
	}

	msg := mailer.PassIssued{
		To:            to,
		DinerName:     pass.DinerName,
		BrandName:     brand.Name,
		DownloadURL:   pass.ArtifactURL,
		ExpiresAt:     pass.ExpiresAt,
		PrimaryColor:  firstNonEmpty(brand.Wallet.PrimaryColor, brand.Wallet.CardBackground, defaultBackground),
		TextColor:     firstNonEmpty(brand.Wallet.CardTextColor, defaultForeground),
		CustomMessage: brand.Wallet.CustomMessage,
	}
	if brand.Promotion.IsCurrent(s.now()) {
		msg.PromotionTitle = brand.Promotion.Title
	}

	id, err := s.notifier.SendPassIssued(ctx, msg)
	if err != nil {
		zap.L().Warn("pass email not sent", zap.String("serial", pass.Serial), zap.Error(err))
		return
	}
	zap.L().Info("pass email sent", zap.String("serial", pass.Serial), zap.String("email_id", id))
}

func (s *PassService) walletURL(serial string) string {
	return strings.TrimRight(s.conf.PublicURL, "/") + "/api/v1/digital-passes/" + serial + "/wallet"
}

func (s *PassService) validityDays(tmpl *domain.PassTemplate) int {
	if tmpl != nil && tmpl.ValidityDays > 0 {
		return tmpl.ValidityDays
	}
	return s.conf.DefaultValidityDays
}

// GetPass returns a pass to the owner or staff of its brand. Passes of
// other brands are reported as not found.
func (s *PassService) GetPass(ctx context.Context, user domain.User, serial string) (domain.IssuedPass, error) {
	pass, err := s.authorizedPass(ctx, user, serial, true)
	if err != nil {
		return domain.IssuedPass{}, err
	}

	return s.expireIfDue(ctx, pass), nil
}

func (s *PassService) UpdateCounters(ctx context.Context, user domain.User, serial string, u domain.CounterUpdate) (domain.IssuedPass, error) {
	if u.IsEmpty() {
		return domain.IssuedPass{}, validationError(errors.New("nothing to update"))
	}
	if (u.Points != nil && *u.Points < 0) || (u.Visits != nil && *u.Visits < 0) {
		return domain.IssuedPass{}, validationError(errors.New("points and visits cannot be negative"))
	}
	if !counterInRange(u.Points) || !counterInRange(u.Visits) ||
		!deltaInRange(u.PointsDelta) || !deltaInRange(u.VisitsDelta) {
		return domain.IssuedPass{}, validationError(fmt.Errorf("counters are limited to %d", domain.MaxCounterValue))
	}

	if _, err := s.authorizedPass(ctx, user, serial, true); err != nil {
		return domain.IssuedPass{}, err
	}

	pass, err := s.passes.UpdateCounters(ctx, serial, u)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("s.passes.UpdateCounters -> %w", err)
	}

	return pass, nil
}

func counterInRange(v *int) bool {
	return v == nil || *v <= domain.MaxCounterValue
}

func deltaInRange(d int) bool {
	return d >= -domain.MaxCounterValue && d <= domain.MaxCounterValue
}

// Validate records a visit on a scanned pass. Staff validate for their own
// brand; owners name the brand. A pass that belongs to another brand, is
// inactive or has expired is not found.
func (s *PassService) Validate(ctx context.Context, user domain.User, serial string, brandID uint) (domain.ValidationResult, error) {
	switch user.Role {
	case domain.RoleStaff:
		if user.BrandID == nil || (brandID != 0 && brandID != *user.BrandID) {
			return domain.ValidationResult{}, ErrIssuedPassNotFound
		}
		brandID = *user.BrandID
	default:
		if brandID == 0 {
			return domain.ValidationResult{}, validationError(errors.New("brand_id is required"))
		}
		if _, err := authorizeBrand(ctx, s.brands, user, brandID, false); err != nil {
			if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrBrandNotFound) {
				return domain.ValidationResult{}, ErrIssuedPassNotFound
			}
			return domain.ValidationResult{}, err
		}
	}

	now := s.now()
	pass, err := s.passes.RecordVisit(ctx, serial, brandID, now)
	if err != nil {
		if errors.Is(err, ErrIssuedPassNotFound) {
			s.expireStale(ctx, serial, brandID, now)
		}
		return domain.ValidationResult{}, fmt.Errorf("s.passes.RecordVisit -> %w", err)
	}

	return domain.ValidationResult{
		IsValid: true,
		Pass:    pass,
		Diner: domain.DinerRef{
			ID:    pass.DinerID,
			Name:  pass.DinerName,
			Phone: pass.DinerPhone,
		},
		Points: pass.Points,
		Visits: pass.Visits,
	}, nil
}

// Revoke voids a pass. Only the brand owner may revoke.
func (s *PassService) Revoke(ctx context.Context, user domain.User, serial string) (domain.IssuedPass, error) {
	if _, err := s.authorizedPass(ctx, user, serial, false); err != nil {
		return domain.IssuedPass{}, err
	}

	pass, err := s.passes.SetStatus(ctx, serial, domain.PassRevoked, false)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("s.passes.SetStatus -> %w", err)
	}

	return pass, nil
}

// ListBrandPasses lists a brand's passes for its owner. Staff may only look
// up the passes of one diner by phone.
func (s *PassService) ListBrandPasses(ctx context.Context, user domain.User, brandID uint, filter domain.PassFilter) ([]domain.IssuedPass, error) {
	if _, err := authorizeBrand(ctx, s.brands, user, brandID, filter.DinerPhone != ""); err != nil {
		return nil, err
	}

	if n, err := s.passes.ExpireDue(ctx, brandID, s.now()); err != nil {
		return nil, fmt.Errorf("s.passes.ExpireDue -> %w", err)
	} else if n > 0 {
		zap.L().Info("expired passes", zap.Uint("brand_id", brandID), zap.Int64("count", n))
	}

	passes, err := s.passes.FindByBrand(ctx, brandID, filter)
	if err != nil {
		return nil, fmt.Errorf("s.passes.FindByBrand -> %w", err)
	}

	return passes, nil
}

// WalletFile builds the wallet file of a pass. The serial is the
// capability, so no user is required. Pending or failed passes are
// committed active once their file builds.
func (s *PassService) WalletFile(ctx context.Context, serial string, platform pkpass.Platform) (Artifact, error) {
	if platform != pkpass.PlatformIOS {
		return Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}

	pass, err := s.passes.FindBySerial(ctx, serial)
	if err != nil {
		return Artifact{}, fmt.Errorf("s.passes.FindBySerial -> %w", err)
	}
	pass = s.expireIfDue(ctx, pass)

	brand, err := s.brands.FindByID(ctx, pass.BrandID)
	if err != nil {
		return Artifact{}, fmt.Errorf("s.brands.FindByID -> %w", err)
	}

	var tmpl *domain.PassTemplate
	if pass.TemplateID != nil {
		t, err := s.templates.FindByID(ctx, *pass.TemplateID)
		switch {
		case err == nil:
			tmpl = &t
		case !errors.Is(err, ErrTemplateNotFound):
			return Artifact{}, fmt.Errorf("s.templates.FindByID -> %w", err)
		}
	}

	artifact, err := s.buildArtifact(ctx, pass, brand, tmpl)
	if err != nil {
		return Artifact{}, err
	}

	if (pass.Status == domain.PassFailed || pass.Status == domain.PassPending) && !pass.IsExpired(s.now()) {
		if _, err = s.publish(ctx, pass.Serial, artifact); err != nil {
			return Artifact{}, err
		}
		zap.L().Info("pass regenerated", zap.String("serial", pass.Serial))
	}

	return artifact, nil
}

func (s *PassService) authorizedPass(ctx context.Context, user domain.User, serial string, allowStaff bool) (domain.IssuedPass, error) {
	pass, err := s.passes.FindBySerial(ctx, serial)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("s.passes.FindBySerial -> %w", err)
	}

	if _, err = authorizeBrand(ctx, s.brands, user, pass.BrandID, allowStaff); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return domain.IssuedPass{}, ErrIssuedPassNotFound
		}
		return domain.IssuedPass{}, err
	}

	return pass, nil
}

// expireIfDue flips an active pass past its expiry to expired.
func (s *PassService) expireIfDue(ctx context.Context, pass domain.IssuedPass) domain.IssuedPass {
	if pass.Status != domain.PassActive || !pass.IsExpired(s.now()) {
		return pass
	}

	expired, err := s.passes.SetStatus(ctx, pass.Serial, domain.PassExpired, false)
	if err != nil {
		zap.L().Warn("could not expire pass", zap.String("serial", pass.Serial), zap.Error(err))
		return pass
	}

	return expired
}

func (s *PassService) expireStale(ctx context.Context, serial string, brandID uint, now time.Time) {
	pass, err := s.passes.FindBySerial(ctx, serial)
	if err != nil || pass.BrandID != brandID || !pass.IsExpired(now) {
		return
	}
	s.expireIfDue(ctx, pass)
}

func validateRegistration(reg *domain.Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Email = strings.TrimSpace(reg.Email)

	err := validation.ValidateStruct(reg,
		validation.Field(&reg.Name, validation.Required),
		validation.Field(&reg.Phone, validation.Required),
		validation.Field(&reg.Birthday, validation.Date(birthdayForm)),
		validation.Field(&reg.BrandID, validation.Required),
	)
	if err != nil {
		return validationError(err)
	}

	return nil
}
